package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// QuestionType is the wire tag of a question variant.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeTrueFalse      QuestionType = "true_false"
	TypeShortAnswer    QuestionType = "short_answer"
)

// QuestionKind is the type-specific part of a question. The set of variants is closed.
type QuestionKind interface {
	Type() QuestionType
	// CorrectAnswer is the exact string a submitted answer must equal.
	CorrectAnswer() string
	// Accepts reports whether value is a well-formed answer for this variant.
	Accepts(value string) bool
	validate() error
}

// MultipleChoice has an ordered option list; Correct must equal one option.
type MultipleChoice struct {
	Options []string
	Correct string
}

func (MultipleChoice) Type() QuestionType { return TypeMultipleChoice }

func (m MultipleChoice) CorrectAnswer() string { return m.Correct }

func (m MultipleChoice) Accepts(value string) bool {
	if value == "" {
		return false
	}
	for _, opt := range m.Options {
		if opt == value {
			return true
		}
	}
	return false
}

func (m MultipleChoice) validate() error {
	if len(m.Options) < 2 {
		return fmt.Errorf("%w: multiple choice needs at least two options", ErrInvalidQuestion)
	}
	if !m.Accepts(m.Correct) {
		return fmt.Errorf("%w: correct answer %q is not an option", ErrInvalidQuestion, m.Correct)
	}
	return nil
}

// TrueFalse answers are the tokens "true" and "false".
type TrueFalse struct {
	Correct bool
}

func (TrueFalse) Type() QuestionType { return TypeTrueFalse }

func (t TrueFalse) CorrectAnswer() string { return strconv.FormatBool(t.Correct) }

func (TrueFalse) Accepts(value string) bool {
	return value == "true" || value == "false"
}

func (TrueFalse) validate() error { return nil }

// ShortAnswer accepts free text, including the empty string.
type ShortAnswer struct {
	Correct string
}

func (ShortAnswer) Type() QuestionType { return TypeShortAnswer }

func (s ShortAnswer) CorrectAnswer() string { return s.Correct }

func (ShortAnswer) Accepts(string) bool { return true }

func (ShortAnswer) validate() error { return nil }

// Question belongs to exactly one quiz. Points defaults to 1 when a set is normalised.
type Question struct {
	ID         string
	QuizID     string
	MaterialID string
	Text       string
	Points     int
	Order      int
	Kind       QuestionKind
}

// Validate checks the variant invariants.
func (q Question) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidQuestion)
	}
	if q.Kind == nil {
		return fmt.Errorf("%w: question %s has no type", ErrInvalidQuestion, q.ID)
	}
	return q.Kind.validate()
}

// IsCorrect compares a submitted value with exact, case-sensitive equality.
func (q Question) IsCorrect(answer string) bool {
	return q.Kind != nil && answer == q.Kind.CorrectAnswer()
}

// Options returns the candidate answers a client may render; nil for short answers.
func (q Question) Options() []string {
	switch k := q.Kind.(type) {
	case MultipleChoice:
		return k.Options
	case TrueFalse:
		return []string{"true", "false"}
	default:
		return nil
	}
}

type questionJSON struct {
	ID            string       `json:"id"`
	QuizID        string       `json:"quiz_id,omitempty"`
	MaterialID    string       `json:"material_id,omitempty"`
	Text          string       `json:"question_text"`
	Type          QuestionType `json:"question_type"`
	Options       []string     `json:"options,omitempty"`
	OptionA       string       `json:"option_a,omitempty"`
	OptionB       string       `json:"option_b,omitempty"`
	OptionC       string       `json:"option_c,omitempty"`
	OptionD       string       `json:"option_d,omitempty"`
	CorrectAnswer string       `json:"correct_answer"`
	Points        int          `json:"points"`
	Order         int          `json:"order_index"`
}

// MarshalJSON writes the flat row shape used by the question table.
func (q Question) MarshalJSON() ([]byte, error) {
	raw := questionJSON{
		ID:         q.ID,
		QuizID:     q.QuizID,
		MaterialID: q.MaterialID,
		Text:       q.Text,
		Points:     q.Points,
		Order:      q.Order,
	}
	if q.Kind != nil {
		raw.Type = q.Kind.Type()
		raw.CorrectAnswer = q.Kind.CorrectAnswer()
		if mc, ok := q.Kind.(MultipleChoice); ok {
			raw.Options = mc.Options
		}
	}
	return json.Marshal(raw)
}

// UnmarshalJSON accepts both the options-array schema and the four lettered option fields.
func (q *Question) UnmarshalJSON(data []byte) error {
	var raw questionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kind, err := NewQuestionKind(raw.Type, raw.options(), raw.CorrectAnswer)
	if err != nil {
		return err
	}
	*q = Question{
		ID:         raw.ID,
		QuizID:     raw.QuizID,
		MaterialID: raw.MaterialID,
		Text:       raw.Text,
		Points:     raw.Points,
		Order:      raw.Order,
		Kind:       kind,
	}
	return nil
}

func (raw questionJSON) options() []string {
	if len(raw.Options) > 0 {
		return raw.Options
	}
	var out []string
	for _, opt := range []string{raw.OptionA, raw.OptionB, raw.OptionC, raw.OptionD} {
		if opt != "" {
			out = append(out, opt)
		}
	}
	return out
}

// NewQuestionKind builds the variant for a stored type tag.
func NewQuestionKind(typ QuestionType, options []string, correct string) (QuestionKind, error) {
	switch typ {
	case TypeMultipleChoice:
		return MultipleChoice{Options: options, Correct: correct}, nil
	case TypeTrueFalse:
		switch correct {
		case "true":
			return TrueFalse{Correct: true}, nil
		case "false":
			return TrueFalse{Correct: false}, nil
		}
		return nil, fmt.Errorf("%w: true/false answer must be \"true\" or \"false\", got %q", ErrInvalidQuestion, correct)
	case TypeShortAnswer:
		return ShortAnswer{Correct: correct}, nil
	default:
		return nil, fmt.Errorf("%w: unknown question type %q", ErrInvalidQuestion, typ)
	}
}
