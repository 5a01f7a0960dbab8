package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionDecodesBothOptionSchemas(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "options array",
			raw:  `{"id":"q1","question_text":"Pick","question_type":"multiple_choice","options":["A","B","C"],"correct_answer":"B","points":10}`,
			want: []string{"A", "B", "C"},
		},
		{
			name: "lettered fields",
			raw:  `{"id":"q1","question_text":"Pick","question_type":"multiple_choice","option_a":"A","option_b":"B","option_c":"","option_d":"D","correct_answer":"D","points":10}`,
			want: []string{"A", "B", "D"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q Question
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &q))
			mc, ok := q.Kind.(MultipleChoice)
			require.True(t, ok, "expected multiple choice, got %T", q.Kind)
			assert.Equal(t, tt.want, mc.Options)
			assert.NoError(t, q.Validate())
		})
	}
}

func TestQuestionRoundTripKeepsVariant(t *testing.T) {
	in := Question{ID: "q2", Text: "Sky is blue", Points: 5, Order: 2, Kind: TrueFalse{Correct: true}}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Question
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
	assert.Equal(t, "true", out.Kind.CorrectAnswer())
}

func TestQuestionValidate(t *testing.T) {
	bad := Question{ID: "q1", Kind: MultipleChoice{Options: []string{"A", "B"}, Correct: "C"}}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidQuestion)

	single := Question{ID: "q1", Kind: MultipleChoice{Options: []string{"A"}, Correct: "A"}}
	assert.ErrorIs(t, single.Validate(), ErrInvalidQuestion)

	untyped := Question{ID: "q1"}
	assert.ErrorIs(t, untyped.Validate(), ErrInvalidQuestion)

	_, err := NewQuestionKind(TypeTrueFalse, nil, "True")
	assert.ErrorIs(t, err, ErrInvalidQuestion)

	_, err = NewQuestionKind("essay", nil, "")
	assert.ErrorIs(t, err, ErrInvalidQuestion)
}

func TestIsCorrectIsExact(t *testing.T) {
	q := Question{ID: "q1", Kind: ShortAnswer{Correct: "Orwell"}}
	assert.True(t, q.IsCorrect("Orwell"))
	assert.False(t, q.IsCorrect("orwell"))
	assert.False(t, q.IsCorrect(" Orwell"))

	mc := MultipleChoice{Options: []string{"A", "B"}, Correct: "A"}
	assert.False(t, mc.Accepts(""))
	assert.False(t, mc.Accepts("a"))
	assert.True(t, ShortAnswer{}.Accepts(""))
}
