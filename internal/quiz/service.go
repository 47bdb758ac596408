package quiz

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/schoolconnect/schoolconnect-api/internal/analytics"
	"github.com/schoolconnect/schoolconnect-api/internal/events"
	"github.com/schoolconnect/schoolconnect-api/internal/grading"
)

// Service owns the attempt lifecycle: admission, progress saves, grading
// submits and the analytics rollup. All state lives in the Store; the
// service itself is safe for concurrent use.
type Service struct {
	store  Store
	grader grading.Grader
	events events.Log
	logf   func(format string, args ...interface{})
	now    func() time.Time

	// aggMu serializes the read-fold-write of the running aggregates so
	// concurrent submits cannot drop an attempt from the counts.
	aggMu sync.Mutex
}

func NewService(store Store, grader grading.Grader, evlog events.Log) *Service {
	if evlog == nil {
		evlog = events.Nop{}
	}
	return &Service{
		store:  store,
		grader: grader,
		events: evlog,
		logf:   log.Printf,
		now:    time.Now,
	}
}

// --- quiz CRUD ---

func (s *Service) CreateQuiz(ctx context.Context, authorID string, q Quiz) (Quiz, error) {
	if err := prepareQuestions(q.Questions); err != nil {
		return Quiz{}, err
	}
	q.ID = uuid.NewString()
	q.AuthorID = authorID
	q.Status = StatusDraft
	q.Analytics = analytics.Running{}
	q.Settings = normalizeSettings(q.Settings)
	q.RecomputeTotalPoints()
	q.CreatedAt = s.now().UTC()
	q.UpdatedAt = q.CreatedAt
	if err := s.store.PutQuiz(ctx, q); err != nil {
		return Quiz{}, err
	}
	return q, nil
}

// UpdateQuiz replaces content and settings. Attempts already started keep
// the maxScore snapshot taken at admission, so edits never change a
// running attempt's denominator.
func (s *Service) UpdateQuiz(ctx context.Context, quizID, authorID string, upd Quiz) (Quiz, error) {
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return Quiz{}, err
	}
	if q.AuthorID != authorID {
		return Quiz{}, ErrNotOwner
	}
	if err := prepareQuestions(upd.Questions); err != nil {
		return Quiz{}, err
	}
	q.Title = upd.Title
	q.Description = upd.Description
	q.Questions = upd.Questions
	q.Settings = normalizeSettings(upd.Settings)
	q.RecomputeTotalPoints()
	q.UpdatedAt = s.now().UTC()
	if err := s.store.PutQuiz(ctx, q); err != nil {
		return Quiz{}, err
	}
	return q, nil
}

func (s *Service) PublishQuiz(ctx context.Context, quizID, authorID string) (Quiz, error) {
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return Quiz{}, err
	}
	if q.AuthorID != authorID {
		return Quiz{}, ErrNotOwner
	}
	if q.Status == StatusPublished {
		return q, nil
	}
	q.Status = StatusPublished
	q.UpdatedAt = s.now().UTC()
	if err := s.store.PutQuiz(ctx, q); err != nil {
		return Quiz{}, err
	}
	if err := s.events.Append(ctx, events.TypeQuizPublished, q.ID, map[string]string{"authorId": authorID}); err != nil {
		s.logf("event append failed for quiz %s: %v", q.ID, err)
	}
	return q, nil
}

// DeleteQuiz removes a quiz that was never attempted. A quiz with any
// attempt is archived instead so historical analytics stay intact; the
// returned flag reports which path was taken.
func (s *Service) DeleteQuiz(ctx context.Context, quizID, authorID string) (archived bool, err error) {
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return false, err
	}
	if q.AuthorID != authorID {
		return false, ErrNotOwner
	}
	n, err := s.store.CountAttempts(ctx, quizID)
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, s.store.DeleteQuiz(ctx, quizID)
	}
	q.Status = StatusArchived
	q.UpdatedAt = s.now().UTC()
	return true, s.store.PutQuiz(ctx, q)
}

func (s *Service) GetQuiz(ctx context.Context, quizID string) (Quiz, error) {
	return s.store.GetQuiz(ctx, quizID)
}

func (s *Service) ListQuizzes(ctx context.Context, opts ListOpts) ([]Quiz, error) {
	return s.store.ListQuizzes(ctx, opts)
}

// StripAnswerKeys blanks correctness keys before a quiz is served to a
// student.
func StripAnswerKeys(q Quiz) Quiz {
	qs := make([]Question, len(q.Questions))
	copy(qs, q.Questions)
	for i := range qs {
		qs[i].CorrectAnswer = grading.Answer{}
	}
	q.Questions = qs
	return q
}

// --- attempt admission ---

// StartAttempt admits a student into a new attempt, or resumes the
// existing in_progress one. The created flag is false on resume.
func (s *Service) StartAttempt(ctx context.Context, quizID, studentID string) (Attempt, bool, error) {
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return Attempt{}, false, err
	}
	if q.Status != StatusPublished {
		return Attempt{}, false, ErrQuizNotPublished
	}
	if due := q.Settings.DueDate; due != nil && s.now().After(*due) {
		return Attempt{}, false, ErrDeadlineExpired
	}

	if a, err := s.store.GetActiveAttempt(ctx, quizID, studentID); err == nil {
		a, expired, err := s.maybeExpire(ctx, q, a)
		if err != nil {
			return Attempt{}, false, err
		}
		if !expired {
			return a, false, nil
		}
	} else if !errors.Is(err, ErrAttemptNotFound) {
		return Attempt{}, false, err
	}

	terminal, err := s.store.CountTerminalAttempts(ctx, quizID, studentID)
	if err != nil {
		return Attempt{}, false, err
	}
	if terminal >= q.Settings.MaxAttempts {
		return Attempt{}, false, ErrAttemptLimitReached
	}

	a := Attempt{
		ID:            uuid.NewString(),
		QuizID:        quizID,
		StudentID:     studentID,
		AttemptNumber: terminal + 1,
		Status:        AttemptInProgress,
		Responses:     []QuestionResponse{},
		MaxScore:      q.TotalPoints, // snapshot; later quiz edits must not move it
		StartedAt:     s.now().UTC(),
	}
	if err := s.store.CreateAttempt(ctx, a); err != nil {
		if errors.Is(err, ErrDuplicateAttempt) {
			// Lost the race to a concurrent start: resume the winner.
			if existing, gerr := s.store.GetActiveAttempt(ctx, quizID, studentID); gerr == nil {
				return existing, false, nil
			}
			return Attempt{}, false, err
		}
		return Attempt{}, false, err
	}
	return a, true, nil
}

// CurrentAttempt returns the caller's in_progress attempt, or
// ErrAttemptNotFound.
func (s *Service) CurrentAttempt(ctx context.Context, quizID, studentID string) (Attempt, error) {
	a, err := s.store.GetActiveAttempt(ctx, quizID, studentID)
	if err != nil {
		return Attempt{}, err
	}
	q, err := s.store.GetQuiz(ctx, a.QuizID)
	if err != nil {
		return Attempt{}, err
	}
	a, expired, err := s.maybeExpire(ctx, q, a)
	if err != nil {
		return Attempt{}, err
	}
	if expired {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, nil
}

// --- attempt state machine ---

// SaveProgress stores ungraded answers while the attempt is in progress.
// Last write wins; repeated calls are the client's autosave.
func (s *Service) SaveProgress(ctx context.Context, attemptID, studentID string, responses []SubmittedResponse) (Attempt, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.StudentID != studentID {
		return Attempt{}, ErrNotOwner
	}
	q, err := s.store.GetQuiz(ctx, a.QuizID)
	if err != nil {
		return Attempt{}, err
	}
	a, _, err = s.maybeExpire(ctx, q, a)
	if err != nil {
		return Attempt{}, err
	}
	if a.Status != AttemptInProgress {
		return Attempt{}, ErrAttemptNotInProgress
	}

	saved := make([]QuestionResponse, 0, len(responses))
	total := 0
	for _, r := range responses {
		saved = append(saved, QuestionResponse{
			QuestionID:       r.QuestionID,
			Answer:           r.Answer,
			TimeSpentSeconds: r.TimeSpentSeconds,
		})
		total += r.TimeSpentSeconds
	}
	a.Responses = saved
	if total > 0 {
		a.TimeSpentSeconds = total
	}
	if err := s.store.UpdateAttempt(ctx, a); err != nil {
		return Attempt{}, err
	}
	return a, nil
}

// Submit grades every question of the quiz against the submitted answers
// (missing answers grade as empty), finalizes the attempt and kicks the
// analytics rollup. Submitting anything but an in_progress attempt fails
// and mutates nothing.
func (s *Service) Submit(ctx context.Context, attemptID, studentID string, responses []SubmittedResponse) (Attempt, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.StudentID != studentID {
		return Attempt{}, ErrNotOwner
	}
	q, err := s.store.GetQuiz(ctx, a.QuizID)
	if err != nil {
		return Attempt{}, err
	}
	a, _, err = s.maybeExpire(ctx, q, a)
	if err != nil {
		return Attempt{}, err
	}
	if a.Status != AttemptInProgress {
		return Attempt{}, ErrAttemptNotInProgress
	}

	submitted := make(map[string]SubmittedResponse, len(responses))
	for _, r := range responses {
		submitted[r.QuestionID] = r
	}

	graded := make([]QuestionResponse, 0, len(q.Questions))
	var score float64
	totalTime := 0
	for _, question := range q.Questions {
		r := submitted[question.ID] // zero value: unanswered
		res := s.grader.Grade(grading.Q{
			ID:     question.ID,
			Type:   question.Type,
			Points: question.Points,
			Key:    question.CorrectAnswer,
		}, r.Answer)
		graded = append(graded, QuestionResponse{
			QuestionID:       question.ID,
			Answer:           r.Answer,
			IsCorrect:        res.IsCorrect,
			PointsEarned:     res.PointsEarned,
			TimeSpentSeconds: r.TimeSpentSeconds,
		})
		score += res.PointsEarned
		totalTime += r.TimeSpentSeconds
	}

	now := s.now().UTC()
	a.Responses = graded
	a.Score = score
	a.Percentage = percentage(score, a.MaxScore)
	a.Status = AttemptCompleted
	a.CompletedAt = &now
	a.SubmittedAt = &now
	if totalTime > 0 {
		a.TimeSpentSeconds = totalTime
	} else {
		a.TimeSpentSeconds = int(now.Sub(a.StartedAt).Seconds())
	}
	if err := s.store.UpdateAttempt(ctx, a); err != nil {
		return Attempt{}, err
	}

	// Rollup and audit are best-effort: the graded result is already
	// persisted and remains authoritative even if these fail.
	s.afterSubmit(ctx, q, a)
	return a, nil
}

// Abandon terminates an in_progress attempt without grading. The attempt
// still consumes one of the student's slots.
func (s *Service) Abandon(ctx context.Context, attemptID, studentID string) (Attempt, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.StudentID != studentID {
		return Attempt{}, ErrNotOwner
	}
	q, err := s.store.GetQuiz(ctx, a.QuizID)
	if err != nil {
		return Attempt{}, err
	}
	a, expired, err := s.maybeExpire(ctx, q, a)
	if err != nil {
		return Attempt{}, err
	}
	if expired {
		return a, nil
	}
	if a.Status != AttemptInProgress {
		return Attempt{}, ErrAttemptNotInProgress
	}
	a.Status = AttemptAbandoned
	if a.TimeSpentSeconds == 0 {
		a.TimeSpentSeconds = int(s.now().UTC().Sub(a.StartedAt).Seconds())
	}
	if err := s.store.UpdateAttempt(ctx, a); err != nil {
		return Attempt{}, err
	}
	s.advanceAnalytics(ctx, q.ID, 0, 0, false)
	return a, nil
}

func (s *Service) GetAttempt(ctx context.Context, attemptID string) (Attempt, error) {
	return s.store.GetAttempt(ctx, attemptID)
}

func (s *Service) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	return s.store.ListAttempts(ctx, opts)
}

// --- analytics ---

// Statistics recomputes the full summary for a quiz from its completed
// attempts.
func (s *Service) Statistics(ctx context.Context, quizID string) (analytics.Summary, error) {
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return analytics.Summary{}, err
	}
	attempts, err := s.store.ListAttempts(ctx, AttemptListOpts{QuizID: quizID, Status: AttemptCompleted})
	if err != nil {
		return analytics.Summary{}, err
	}
	completed := make([]analytics.CompletedAttempt, 0, len(attempts))
	for _, a := range attempts {
		completed = append(completed, analytics.CompletedAttempt{
			StudentID:   a.StudentID,
			Percentage:  float64(a.Percentage),
			TimeMinutes: float64(a.TimeSpentSeconds) / 60,
		})
	}
	return analytics.Summarize(completed, q.Settings.PassingScore), nil
}

// StudentProgress summarizes one student's standing on a quiz.
func (s *Service) StudentProgress(ctx context.Context, quizID, studentID string) (StudentProgress, error) {
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return StudentProgress{}, err
	}
	attempts, err := s.store.ListAttempts(ctx, AttemptListOpts{QuizID: quizID, StudentID: studentID})
	if err != nil {
		return StudentProgress{}, err
	}
	p := StudentProgress{}
	for _, a := range attempts {
		if a.Status == AttemptInProgress {
			p.HasInProgress = true
			continue
		}
		p.AttemptsUsed++
		if a.Percentage > p.BestPercentage {
			p.BestPercentage = a.Percentage
		}
	}
	if len(attempts) > 0 {
		p.LastStatus = attempts[0].Status
	}
	p.AttemptsRemaining = q.Settings.MaxAttempts - p.AttemptsUsed
	if p.AttemptsRemaining < 0 {
		p.AttemptsRemaining = 0
	}
	return p, nil
}

// --- internals ---

// maybeExpire transitions an in_progress attempt whose time limit has
// elapsed into time_expired. Expiry is enforced lazily on access; there is
// no background sweep.
func (s *Service) maybeExpire(ctx context.Context, q Quiz, a Attempt) (Attempt, bool, error) {
	if a.Status != AttemptInProgress || q.Settings.TimeLimitMinutes <= 0 {
		return a, false, nil
	}
	limit := time.Duration(q.Settings.TimeLimitMinutes) * time.Minute
	if s.now().Before(a.StartedAt.Add(limit)) {
		return a, false, nil
	}
	a.Status = AttemptTimeExpired
	a.TimeSpentSeconds = int(limit.Seconds())
	if err := s.store.UpdateAttempt(ctx, a); err != nil {
		return Attempt{}, false, err
	}
	s.advanceAnalytics(ctx, q.ID, 0, 0, false)
	return a, true, nil
}

// advanceAnalytics reloads the running aggregates under the lock before
// folding, so no concurrent finish can be lost to a stale snapshot.
func (s *Service) advanceAnalytics(ctx context.Context, quizID string, percentage, timeMinutes float64, completed bool) {
	s.aggMu.Lock()
	defer s.aggMu.Unlock()
	q, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		s.logf("analytics reload failed for quiz %s: %v", quizID, err)
		return
	}
	next := analytics.Advance(q.Analytics, percentage, timeMinutes, completed)
	if err := s.store.UpdateAnalytics(ctx, quizID, next); err != nil {
		s.logf("analytics update failed for quiz %s: %v", quizID, err)
	}
}

func (s *Service) afterSubmit(ctx context.Context, q Quiz, a Attempt) {
	s.advanceAnalytics(ctx, q.ID, float64(a.Percentage), float64(a.TimeSpentSeconds)/60, true)
	if err := s.events.Append(ctx, events.TypeAttemptSubmitted, a.ID, map[string]interface{}{
		"quizId":     a.QuizID,
		"studentId":  a.StudentID,
		"percentage": a.Percentage,
	}); err != nil {
		s.logf("event append failed for attempt %s: %v", a.ID, err)
	}
}

func percentage(score, maxScore float64) int {
	if maxScore <= 0 {
		return 0
	}
	return int(math.Round(100 * score / maxScore))
}

func normalizeSettings(st Settings) Settings {
	if st.MaxAttempts < 1 {
		st.MaxAttempts = 1
	}
	if st.PassingScore <= 0 {
		st.PassingScore = analytics.DefaultPassingScore
	}
	return st
}

func prepareQuestions(qs []Question) error {
	for i := range qs {
		if qs[i].ID == "" {
			qs[i].ID = uuid.NewString()
		}
		if err := grading.CheckKey(qs[i].Type, qs[i].CorrectAnswer); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
		if qs[i].Type == grading.TypeMultipleChoice {
			if idx := *qs[i].CorrectAnswer.Option; idx < 0 || idx >= len(qs[i].Options) {
				return fmt.Errorf("question %d: correct answer index out of range", i+1)
			}
		}
	}
	return nil
}
