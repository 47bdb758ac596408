package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/schoolconnect/schoolconnect-api/internal/analytics"
	"github.com/schoolconnect/schoolconnect-api/internal/grading"
	"github.com/schoolconnect/schoolconnect-api/internal/quiz"
	"github.com/schoolconnect/schoolconnect-api/internal/rbac"
)

type questionReq struct {
	ID            string         `json:"id"`
	Type          string         `json:"type" validate:"required,oneof=multiple_choice true_false short_answer"`
	Prompt        string         `json:"prompt" validate:"required"`
	Options       []string       `json:"options" validate:"omitempty,max=10"`
	CorrectAnswer grading.Answer `json:"correctAnswer"`
	Points        float64        `json:"points" validate:"required,gt=0"`
	Difficulty    string         `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

type settingsReq struct {
	MaxAttempts      int        `json:"maxAttempts" validate:"omitempty,min=1,max=20"`
	ShuffleQuestions bool       `json:"shuffleQuestions"`
	ShuffleOptions   bool       `json:"shuffleOptions"`
	PassingScore     float64    `json:"passingScore" validate:"omitempty,min=0,max=100"`
	TimeLimitMinutes int        `json:"timeLimitMinutes" validate:"omitempty,min=0,max=600"`
	DueDate          *time.Time `json:"dueDate"`
}

type quizReq struct {
	Title       string        `json:"title" validate:"required,max=200"`
	Description string        `json:"description" validate:"omitempty,max=2000"`
	Questions   []questionReq `json:"questions" validate:"required,min=1,dive"`
	Settings    settingsReq   `json:"settings"`
}

func (q quizReq) toModel() quiz.Quiz {
	questions := make([]quiz.Question, len(q.Questions))
	for i, src := range q.Questions {
		questions[i] = quiz.Question(src)
	}
	return quiz.Quiz{
		Title:       q.Title,
		Description: q.Description,
		Questions:   questions,
		Settings:    quiz.Settings(q.Settings),
	}
}

func CreateQuizHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req quizReq
		if !decodeValid(w, r, &req) {
			return
		}
		q, err := svc.CreateQuiz(r.Context(), rbac.SubjectFromContext(r.Context()), req.toModel())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

func UpdateQuizHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req quizReq
		if !decodeValid(w, r, &req) {
			return
		}
		q, err := svc.UpdateQuiz(r.Context(), chi.URLParam(r, "quizID"),
			rbac.SubjectFromContext(r.Context()), req.toModel())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

func PublishQuizHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := svc.PublishQuiz(r.Context(), chi.URLParam(r, "quizID"),
			rbac.SubjectFromContext(r.Context()))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

func DeleteQuizHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		archived, err := svc.DeleteQuiz(r.Context(), chi.URLParam(r, "quizID"),
			rbac.SubjectFromContext(r.Context()))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"archived": archived})
	}
}

func ListQuizzesHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := rbac.RoleFromContext(r.Context())
		sub := rbac.SubjectFromContext(r.Context())
		opts := quiz.ListOpts{
			Limit:  parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset: parseIntDefault(r.URL.Query().Get("offset"), 0),
		}
		switch role {
		case "teacher":
			opts.AuthorID = sub
		case "admin":
			// unscoped
		default:
			opts.Status = quiz.StatusPublished
		}
		list, err := svc.ListQuizzes(r.Context(), opts)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if role != "teacher" && role != "admin" {
			for i := range list {
				list[i] = quiz.StripAnswerKeys(list[i])
			}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

type quizDetail struct {
	quiz.Quiz
	StudentProgress *quiz.StudentProgress `json:"studentProgress,omitempty"`
	Statistics      *analytics.Summary    `json:"statistics,omitempty"`
}

// GetQuizHandler serves the quiz detail view: answer keys stripped plus a
// progress block for students, full statistics for the author.
func GetQuizHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := rbac.RoleFromContext(r.Context())
		sub := rbac.SubjectFromContext(r.Context())
		q, err := svc.GetQuiz(r.Context(), chi.URLParam(r, "quizID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		detail := quizDetail{Quiz: q}
		switch {
		case q.AuthorID == sub || role == "admin":
			stats, err := svc.Statistics(r.Context(), q.ID)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			detail.Statistics = &stats
		case role == "student":
			if q.Status != quiz.StatusPublished {
				writeError(w, http.StatusForbidden, quiz.ErrQuizNotPublished.Error(), nil)
				return
			}
			progress, err := svc.StudentProgress(r.Context(), q.ID, sub)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			detail.Quiz = quiz.StripAnswerKeys(q)
			detail.StudentProgress = &progress
		default:
			detail.Quiz = quiz.StripAnswerKeys(q)
		}
		writeJSON(w, http.StatusOK, detail)
	}
}
