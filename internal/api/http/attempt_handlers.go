package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/schoolconnect/schoolconnect-api/internal/grading"
	"github.com/schoolconnect/schoolconnect-api/internal/quiz"
	"github.com/schoolconnect/schoolconnect-api/internal/rbac"
)

type responseReq struct {
	QuestionID       string         `json:"questionId" validate:"required"`
	Answer           grading.Answer `json:"answer"`
	TimeSpentSeconds int            `json:"timeSpentSeconds" validate:"omitempty,min=0"`
}

type submitReq struct {
	Responses []responseReq `json:"responses" validate:"dive"`
}

func (s submitReq) toModel() []quiz.SubmittedResponse {
	out := make([]quiz.SubmittedResponse, len(s.Responses))
	for i, r := range s.Responses {
		out[i] = quiz.SubmittedResponse(r)
	}
	return out
}

// StartAttemptHandler admits the caller into an attempt: 201 on a new
// attempt, 200 when resuming the in_progress one.
func StartAttemptHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := rbac.SubjectFromContext(r.Context())
		a, created, err := svc.StartAttempt(r.Context(), chi.URLParam(r, "quizID"), sub)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, status, a)
	}
}

// CurrentAttemptHandler returns the caller's in_progress attempt for a
// quiz, or null.
func CurrentAttemptHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := rbac.SubjectFromContext(r.Context())
		a, err := svc.CurrentAttempt(r.Context(), chi.URLParam(r, "quizID"), sub)
		if err != nil {
			if errors.Is(err, quiz.ErrAttemptNotFound) {
				writeJSON(w, http.StatusOK, nil)
				return
			}
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// SaveProgressHandler stores ungraded answers (the client's autosave).
func SaveProgressHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitReq
		if !decodeValid(w, r, &req) {
			return
		}
		sub := rbac.SubjectFromContext(r.Context())
		a, err := svc.SaveProgress(r.Context(), chi.URLParam(r, "attemptID"), sub, req.toModel())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// SubmitAttemptHandler grades and finalizes the attempt.
func SubmitAttemptHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitReq
		if !decodeValid(w, r, &req) {
			return
		}
		sub := rbac.SubjectFromContext(r.Context())
		a, err := svc.Submit(r.Context(), chi.URLParam(r, "attemptID"), sub, req.toModel())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// AbandonAttemptHandler lets a student walk away from an in_progress
// attempt. The slot stays spent.
func AbandonAttemptHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := rbac.SubjectFromContext(r.Context())
		a, err := svc.Abandon(r.Context(), chi.URLParam(r, "attemptID"), sub)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GetAttemptHandler serves a single attempt: owners always, otherwise
// only callers holding attempt:view-all.
func GetAttemptHandler(svc *quiz.Service) http.HandlerFunc {
	checker := rbac.NewChecker(nil)
	return func(w http.ResponseWriter, r *http.Request) {
		role := rbac.RoleFromContext(r.Context())
		sub := rbac.SubjectFromContext(r.Context())
		a, err := svc.GetAttempt(r.Context(), chi.URLParam(r, "attemptID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if a.StudentID != sub && !checker.Has(role, "attempt:view-all") {
			writeError(w, http.StatusForbidden, "forbidden", nil)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// ListAttemptsHandler backs teacher dashboards and the student's "my
// attempts" view. Callers without attempt:view-all are pinned to their own
// attempts.
func ListAttemptsHandler(svc *quiz.Service) http.HandlerFunc {
	checker := rbac.NewChecker(nil)
	return func(w http.ResponseWriter, r *http.Request) {
		role := rbac.RoleFromContext(r.Context())
		sub := rbac.SubjectFromContext(r.Context())
		opts := quiz.AttemptListOpts{
			QuizID:    r.URL.Query().Get("quiz_id"),
			StudentID: r.URL.Query().Get("student_id"),
			Status:    r.URL.Query().Get("status"),
			Limit:     parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset:    parseIntDefault(r.URL.Query().Get("offset"), 0),
		}
		if !checker.Has(role, "attempt:view-all") {
			opts.StudentID = sub
		}
		list, err := svc.ListAttempts(r.Context(), opts)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
