package quiz

import "errors"

var (
	// ErrQuizNotFound is returned when a quiz id resolves to nothing.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAttemptNotFound is returned when an attempt id resolves to nothing.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrQuizNotPublished rejects attempts against draft/archived quizzes.
	ErrQuizNotPublished = errors.New("quiz is not published")
	// ErrDeadlineExpired rejects new attempts after the quiz due date.
	ErrDeadlineExpired = errors.New("quiz deadline has passed")
	// ErrAttemptLimitReached rejects new attempts past settings.maxAttempts.
	ErrAttemptLimitReached = errors.New("attempt limit reached")
	// ErrAttemptNotInProgress rejects save/submit on a terminal attempt.
	ErrAttemptNotInProgress = errors.New("attempt is not in progress")
	// ErrNotOwner rejects access by anyone but the resource owner.
	ErrNotOwner = errors.New("not the owner")
	// ErrDuplicateAttempt signals the (quiz, student, attemptNumber)
	// uniqueness constraint fired; callers resume the existing attempt.
	ErrDuplicateAttempt = errors.New("attempt already exists")
)
