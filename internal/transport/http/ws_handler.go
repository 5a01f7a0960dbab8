package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"reading-club-service/internal/app"
	"reading-club-service/internal/domain"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// WSHandler runs one quiz attempt per websocket connection.
type WSHandler struct {
	service  *app.QuizService
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, log *zap.Logger, allowedOrigins []string) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker accepts every origin when none are configured.
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		for _, o := range allowed {
			if o == origin || o == "*" {
				return true
			}
		}
		return false
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Value      string `json:"value"`
}

type jumpPayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type persistErrorPayload struct {
	Message string             `json:"message"`
	Result  domain.ScoreResult `json:"result"`
}

// questionView is what a student sees: no correct answer.
type questionView struct {
	ID      string              `json:"id"`
	Text    string              `json:"text"`
	Type    domain.QuestionType `json:"type"`
	Options []string            `json:"options,omitempty"`
	Points  int                 `json:"points"`
}

type attemptView struct {
	ID         string            `json:"id"`
	MaterialID string            `json:"materialId"`
	QuizID     string            `json:"quizId"`
	Cursor     int               `json:"cursor"`
	Total      int               `json:"total"`
	Questions  []questionView    `json:"questions"`
	Answers    map[string]string `json:"answers"`
	Complete   bool              `json:"complete"`
	Unanswered []string          `json:"unanswered"`
}

func viewOf(a app.Attempt) attemptView {
	questions := make([]questionView, 0, len(a.Questions))
	for _, q := range a.Questions {
		view := questionView{ID: q.ID, Text: q.Text, Options: q.Options(), Points: q.Points}
		if q.Kind != nil {
			view.Type = q.Kind.Type()
		}
		questions = append(questions, view)
	}
	return attemptView{
		ID:         a.ID,
		MaterialID: a.MaterialID,
		QuizID:     a.QuizID,
		Cursor:     a.Cursor,
		Total:      len(a.Questions),
		Questions:  questions,
		Answers:    a.Answers,
		Complete:   a.IsComplete(),
		Unanswered: a.Unanswered(),
	}
}

// ServeWS upgrades the request and drives the caller's attempt at quizId.
// Closing the socket before submitting abandons the attempt.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	materialID := r.URL.Query().Get("materialId")
	userID := userIDFrom(r.Context())
	if quizID == "" || userID == "" {
		http.Error(w, "missing quizId or session", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	attempt, err := h.service.StartAttempt(ctx, userID, materialID, quizID)
	if err != nil {
		_ = conn.WriteJSON(h.failure(userID, err))
		return
	}
	attemptID := attempt.ID
	defer h.abandonIfOpen(ctx, userID, attemptID)

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.String("user_id", userID), zap.Error(err))
				for range send {
				}
				return
			}
		}
	}()

	// a burst of 10 covers rapid navigation; sustained traffic is held to 5 messages a second
	limiter := rate.NewLimiter(rate.Limit(5), 10)
	send <- outboundMessage[any]{Type: "attempt", Payload: viewOf(attempt)}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if !limiter.Allow() {
			send <- wsError("too many messages, slow down")
			continue
		}
		send <- h.dispatch(ctx, userID, inbound)
	}

	close(send)
	<-writerDone
}

func wsError(message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}}
}

// failure maps err the way REST responses do, so store details stay in the logs.
func (h *WSHandler) failure(userID string, err error) outboundMessage[any] {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("ws request failed", zap.String("user_id", userID), zap.Error(err))
	}
	return wsError(errorMessage(err, status))
}

func (h *WSHandler) dispatch(ctx context.Context, userID string, inbound inboundMessage) outboundMessage[any] {
	var (
		attempt app.Attempt
		err     error
	)
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return wsError("invalid answer payload")
		}
		attempt, err = h.service.RecordAnswer(ctx, userID, payload.QuestionID, payload.Value)
	case "next":
		attempt, err = h.service.Advance(ctx, userID, app.Next)
	case "prev":
		attempt, err = h.service.Advance(ctx, userID, app.Prev)
	case "jump":
		var payload jumpPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return wsError("invalid jump payload")
		}
		attempt, err = h.service.JumpTo(ctx, userID, payload.Index)
	case "submit":
		result, err := h.service.Submit(ctx, userID)
		return h.result(userID, result, err)
	case "retry":
		result, err := h.service.RetryPersist(ctx, userID)
		return h.result(userID, result, err)
	default:
		return wsError("unsupported message type")
	}
	if err != nil {
		return h.failure(userID, err)
	}
	return outboundMessage[any]{Type: "attempt", Payload: viewOf(attempt)}
}

func (h *WSHandler) result(userID string, result domain.ScoreResult, err error) outboundMessage[any] {
	if app.IsPersistenceError(err) {
		return outboundMessage[any]{Type: "persistError", Payload: persistErrorPayload{
			Message: "your score was calculated but could not be saved; send retry to try again",
			Result:  result,
		}}
	}
	if err != nil {
		return h.failure(userID, err)
	}
	return outboundMessage[any]{Type: "result", Payload: result}
}

// abandonIfOpen drops the attempt this connection started unless it was submitted or
// replaced by a newer one.
func (h *WSHandler) abandonIfOpen(ctx context.Context, userID, attemptID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	current, err := h.service.CurrentAttempt(ctx, userID)
	if err != nil || current.ID != attemptID {
		return
	}
	if err := h.service.Abandon(ctx, userID); err != nil {
		h.log.Warn("abandon attempt failed", zap.String("user_id", userID), zap.Error(err))
	}
}
