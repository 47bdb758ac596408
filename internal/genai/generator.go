package genai

import (
	"context"
	"fmt"

	"github.com/schoolconnect/schoolconnect-api/internal/grading"
	"github.com/schoolconnect/schoolconnect-api/internal/quiz"
)

// Request describes the quiz a teacher wants drafted.
type Request struct {
	Topic         string   `json:"topic" validate:"required"`
	Difficulty    string   `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	NumQuestions  int      `json:"numQuestions" validate:"omitempty,min=1,max=25"`
	QuestionTypes []string `json:"questionTypes" validate:"omitempty,dive,oneof=multiple_choice true_false short_answer"`
}

// Generator produces draft questions for teacher review. Drafts are never
// published directly.
type Generator interface {
	Generate(ctx context.Context, req Request) ([]quiz.Question, error)
}

// validateQuestions rejects model output that would not survive quiz
// creation: unknown types, mismatched keys, out-of-range option indexes.
func validateQuestions(qs []quiz.Question) error {
	if len(qs) == 0 {
		return fmt.Errorf("generator returned no questions")
	}
	for i, q := range qs {
		if q.Prompt == "" {
			return fmt.Errorf("question %d: empty prompt", i+1)
		}
		if err := grading.CheckKey(q.Type, q.CorrectAnswer); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
		if q.Type == grading.TypeMultipleChoice {
			if len(q.Options) < 2 {
				return fmt.Errorf("question %d: needs at least 2 options", i+1)
			}
			if idx := *q.CorrectAnswer.Option; idx < 0 || idx >= len(q.Options) {
				return fmt.Errorf("question %d: correct answer index out of range", i+1)
			}
		}
		if q.Points <= 0 {
			return fmt.Errorf("question %d: non-positive points", i+1)
		}
	}
	return nil
}
