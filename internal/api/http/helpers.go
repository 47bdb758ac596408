package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/schoolconnect/schoolconnect-api/internal/announcement"
	"github.com/schoolconnect/schoolconnect-api/internal/quiz"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type apiError struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, details interface{}) {
	writeJSON(w, status, apiError{Error: msg, Details: details})
}

// decodeValid decodes a JSON body, rejecting unknown fields, then runs
// struct validation. Returns false after writing the 400 itself.
func decodeValid(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad json: "+err.Error(), nil)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			details := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				details[fe.Field()] = fe.Tag()
			}
			writeError(w, http.StatusBadRequest, "validation failed", details)
			return false
		}
		writeError(w, http.StatusBadRequest, "validation failed", nil)
		return false
	}
	return true
}

// writeServiceError maps domain sentinel errors onto the API taxonomy.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, quiz.ErrQuizNotFound),
		errors.Is(err, quiz.ErrAttemptNotFound),
		errors.Is(err, announcement.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, quiz.ErrQuizNotPublished),
		errors.Is(err, quiz.ErrDeadlineExpired),
		errors.Is(err, quiz.ErrAttemptLimitReached),
		errors.Is(err, quiz.ErrNotOwner),
		errors.Is(err, announcement.ErrNotOwner),
		errors.Is(err, announcement.ErrNotRecipient):
		writeError(w, http.StatusForbidden, err.Error(), nil)
	case errors.Is(err, quiz.ErrAttemptNotInProgress),
		errors.Is(err, announcement.ErrAlreadyPublished):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, err.Error(), nil)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
