package domain

import "time"

// Material is a reading resource assigned to club members.
type Material struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Active      bool      `json:"active"`
	Order       int       `json:"order"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Quiz is an ordered set of questions scoped to one material.
type Quiz struct {
	ID             string     `json:"id"`
	MaterialID     string     `json:"materialId"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Active         bool       `json:"active"`
	Order          int        `json:"order"`
	MaterialActive bool       `json:"materialActive"`
	Questions      []Question `json:"questions,omitempty"`
}

// Visible reports whether students may see and attempt the quiz.
func (q Quiz) Visible() bool {
	return q.Active && q.MaterialActive
}

// ScoreKey identifies one best-attempt row. QuizID is empty when scores are kept per material.
type ScoreKey struct {
	UserID     string
	MaterialID string
	QuizID     string
}

// Score is the persisted best attempt for a ScoreKey.
type Score struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	MaterialID  string    `json:"materialId"`
	QuizID      string    `json:"quizId,omitempty"`
	Points      int       `json:"points"`
	MaxPoints   int       `json:"maxPoints"`
	Percentage  int       `json:"percentage"`
	TotalPoints int       `json:"totalPoints"`
	CompletedAt time.Time `json:"completedAt"`
}

// Key returns the row identity of the score.
func (s Score) Key() ScoreKey {
	return ScoreKey{UserID: s.UserID, MaterialID: s.MaterialID, QuizID: s.QuizID}
}

// AnswerRecord is a single answer persisted eagerly, keyed on (user, question).
type AnswerRecord struct {
	UserID       string    `json:"userId"`
	QuizID       string    `json:"quizId"`
	QuestionID   string    `json:"questionId"`
	Answer       string    `json:"answer"`
	Correct      bool      `json:"correct"`
	PointsEarned int       `json:"pointsEarned"`
	AnsweredAt   time.Time `json:"answeredAt"`
}

// QuestionOutcome is the graded state of one question in a submission.
type QuestionOutcome struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
	Answered   bool   `json:"answered"`
	Correct    bool   `json:"correct"`
	Points     int    `json:"points"`
}

// ScoreResult summarizes a submitted attempt. Improved reports whether the stored best changed.
type ScoreResult struct {
	AttemptID    string            `json:"attemptId"`
	UserID       string            `json:"userId"`
	MaterialID   string            `json:"materialId"`
	QuizID       string            `json:"quizId"`
	EarnedPoints int               `json:"earnedPoints"`
	MaxPoints    int               `json:"maxPoints"`
	Percentage   int               `json:"percentage"`
	Outcomes     []QuestionOutcome `json:"outcomes"`
	Improved     bool              `json:"improved"`
	CompletedAt  time.Time         `json:"completedAt"`
}

// LeaderboardEntry is a snapshot-friendly view of a user's standing.
type LeaderboardEntry struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	TotalPoints int    `json:"totalPoints"`
}

// ScoreSummary aggregates a user's score rows.
type ScoreSummary struct {
	TotalPoints       int `json:"totalPoints"`
	CompletedCount    int `json:"completedCount"`
	AveragePercentage int `json:"averagePercentage"`
}

// UserStats is a summary plus the user's leaderboard position. Rank is zero when Ranked is false.
type UserStats struct {
	ScoreSummary
	Rank   int  `json:"rank"`
	Ranked bool `json:"ranked"`
}

// UserProfile is created at sign-up and read at every login.
type UserProfile struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	IsAdmin  bool      `json:"isAdmin"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Credentials is the stored login secret for a profile.
type Credentials struct {
	UserID       string
	PasswordHash string
}

// AuthSession is issued on successful authentication.
type AuthSession struct {
	UserID    string      `json:"userId"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	Profile   UserProfile `json:"profile"`
}
