package quiz

import (
	"time"

	"github.com/schoolconnect/schoolconnect-api/internal/analytics"
	"github.com/schoolconnect/schoolconnect-api/internal/grading"
)

// Quiz status values (wire contract).
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// Attempt status values (wire contract).
const (
	AttemptInProgress  = "in_progress"
	AttemptCompleted   = "completed"
	AttemptAbandoned   = "abandoned"
	AttemptTimeExpired = "time_expired"
)

// TerminalStatus reports whether no further transition is permitted.
func TerminalStatus(s string) bool {
	return s == AttemptCompleted || s == AttemptAbandoned || s == AttemptTimeExpired
}

type Question struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"` // multiple_choice|true_false|short_answer
	Prompt        string         `json:"prompt"`
	Options       []string       `json:"options,omitempty"`
	CorrectAnswer grading.Answer `json:"correctAnswer"`
	Points        float64        `json:"points"`
	Difficulty    string         `json:"difficulty,omitempty"` // easy|medium|hard
}

type Settings struct {
	MaxAttempts      int        `json:"maxAttempts"`
	ShuffleQuestions bool       `json:"shuffleQuestions"`
	ShuffleOptions   bool       `json:"shuffleOptions"`
	PassingScore     float64    `json:"passingScore"`     // percent; 0 means default
	TimeLimitMinutes int        `json:"timeLimitMinutes"` // 0 means no limit
	DueDate          *time.Time `json:"dueDate,omitempty"`
}

type Quiz struct {
	ID          string            `json:"id"`
	AuthorID    string            `json:"authorId"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Status      string            `json:"status"`
	Questions   []Question        `json:"questions"`
	Settings    Settings          `json:"settings"`
	TotalPoints float64           `json:"totalPoints"`
	Analytics   analytics.Running `json:"analytics"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// RecomputeTotalPoints re-derives the invariant totalPoints = sum of
// question points. Called on every save.
func (q *Quiz) RecomputeTotalPoints() {
	var sum float64
	for _, question := range q.Questions {
		sum += question.Points
	}
	q.TotalPoints = sum
}

// QuestionResponse is one graded (or, before submit, stored-ungraded)
// answer inside an attempt. Correctness and points are always derived by
// the grader from the authoritative question, never taken from clients.
type QuestionResponse struct {
	QuestionID       string         `json:"questionId"`
	Answer           grading.Answer `json:"answer"`
	IsCorrect        bool           `json:"isCorrect"`
	PointsEarned     float64        `json:"pointsEarned"`
	TimeSpentSeconds int            `json:"timeSpentSeconds,omitempty"`
}

type Attempt struct {
	ID               string             `json:"id"`
	QuizID           string             `json:"quizId"`
	StudentID        string             `json:"studentId"`
	AttemptNumber    int                `json:"attemptNumber"`
	Status           string             `json:"status"`
	Responses        []QuestionResponse `json:"responses"`
	Score            float64            `json:"score"`
	MaxScore         float64            `json:"maxScore"`
	Percentage       int                `json:"percentage"`
	TimeSpentSeconds int                `json:"timeSpentSeconds"`
	StartedAt        time.Time          `json:"startedAt"`
	CompletedAt      *time.Time         `json:"completedAt,omitempty"`
	SubmittedAt      *time.Time         `json:"submittedAt,omitempty"`
}

// SubmittedResponse is the client payload for progress saves and submits.
type SubmittedResponse struct {
	QuestionID       string         `json:"questionId"`
	Answer           grading.Answer `json:"answer"`
	TimeSpentSeconds int            `json:"timeSpentSeconds,omitempty"`
}

// StudentProgress is the per-student block on a quiz detail view.
type StudentProgress struct {
	AttemptsUsed      int    `json:"attemptsUsed"`
	AttemptsRemaining int    `json:"attemptsRemaining"`
	BestPercentage    int    `json:"bestPercentage"`
	LastStatus        string `json:"lastStatus,omitempty"`
	HasInProgress     bool   `json:"hasInProgress"`
}
