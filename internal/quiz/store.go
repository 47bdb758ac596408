package quiz

import (
	"context"

	"github.com/schoolconnect/schoolconnect-api/internal/analytics"
)

type ListOpts struct {
	AuthorID string // filter by author
	Status   string // filter by status
	Limit    int
	Offset   int
}

type AttemptListOpts struct {
	QuizID    string
	StudentID string
	Status    string
	Limit     int
	Offset    int
}

type Store interface {
	PutQuiz(ctx context.Context, q Quiz) error
	GetQuiz(ctx context.Context, id string) (Quiz, error)
	ListQuizzes(ctx context.Context, opts ListOpts) ([]Quiz, error)
	DeleteQuiz(ctx context.Context, id string) error
	UpdateAnalytics(ctx context.Context, quizID string, a analytics.Running) error

	// CreateAttempt must enforce uniqueness of
	// (quiz_id, student_id, attempt_number) and return ErrDuplicateAttempt
	// when a concurrent start already claimed the slot.
	CreateAttempt(ctx context.Context, a Attempt) error
	UpdateAttempt(ctx context.Context, a Attempt) error
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	// GetActiveAttempt returns the in_progress attempt for (quiz, student),
	// or ErrAttemptNotFound.
	GetActiveAttempt(ctx context.Context, quizID, studentID string) (Attempt, error)
	CountTerminalAttempts(ctx context.Context, quizID, studentID string) (int, error)
	CountAttempts(ctx context.Context, quizID string) (int, error)
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error)
}
