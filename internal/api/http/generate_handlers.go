package http

import (
	"net/http"

	"github.com/schoolconnect/schoolconnect-api/internal/genai"
	"github.com/schoolconnect/schoolconnect-api/internal/quiz"
	"github.com/schoolconnect/schoolconnect-api/internal/rbac"
)

// GenerateQuizHandler asks the model for draft questions and saves them as
// a draft quiz owned by the requesting teacher. The draft must be reviewed
// and published separately.
func GenerateQuizHandler(gen genai.Generator, svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gen == nil {
			writeError(w, http.StatusServiceUnavailable, "quiz generation is not configured", nil)
			return
		}
		var req genai.Request
		if !decodeValid(w, r, &req) {
			return
		}
		qs, err := gen.Generate(r.Context(), req)
		if err != nil {
			writeError(w, http.StatusBadGateway, "generation failed", err.Error())
			return
		}
		draft := quiz.Quiz{
			Title:     "Draft: " + req.Topic,
			Questions: qs,
		}
		created, err := svc.CreateQuiz(r.Context(), rbac.SubjectFromContext(r.Context()), draft)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}
