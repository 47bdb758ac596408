package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/schoolconnect/schoolconnect-api/internal/announcement"
	"github.com/schoolconnect/schoolconnect-api/internal/rbac"
)

type announcementReq struct {
	Title    string   `json:"title" validate:"required,max=200"`
	Content  string   `json:"content" validate:"required,max=10000"`
	Audience []string `json:"audience" validate:"required,min=1,dive,oneof=student teacher parent"`
	Priority string   `json:"priority" validate:"omitempty,oneof=normal high urgent"`
}

func CreateAnnouncementHandler(svc *announcement.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req announcementReq
		if !decodeValid(w, r, &req) {
			return
		}
		a, err := svc.Create(r.Context(), rbac.SubjectFromContext(r.Context()), announcement.Announcement{
			Title:    req.Title,
			Content:  req.Content,
			Audience: req.Audience,
			Priority: req.Priority,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

func PublishAnnouncementHandler(svc *announcement.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := svc.Publish(r.Context(), chi.URLParam(r, "announcementID"),
			rbac.SubjectFromContext(r.Context()))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func DeleteAnnouncementHandler(svc *announcement.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "announcementID"),
			rbac.SubjectFromContext(r.Context())); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// MarkReadHandler records the caller's read receipt. Safe to repeat.
func MarkReadHandler(svc *announcement.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.MarkRead(r.Context(), chi.URLParam(r, "announcementID"),
			rbac.SubjectFromContext(r.Context())); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"read": true})
	}
}

type inboxItem struct {
	announcement.Announcement
	ReadAt interface{} `json:"readAt"`
}

// ListAnnouncementsHandler: authors see their own (with recipient counts
// available via detail); everyone else sees their inbox with read state.
func ListAnnouncementsHandler(svc *announcement.Service) http.HandlerFunc {
	checker := rbac.NewChecker(nil)
	return func(w http.ResponseWriter, r *http.Request) {
		role := rbac.RoleFromContext(r.Context())
		sub := rbac.SubjectFromContext(r.Context())
		if checker.Has(role, "announcement:create") {
			list, err := svc.ListByAuthor(r.Context(), sub)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, list)
			return
		}
		anns, recs, err := svc.ListForRecipient(r.Context(), sub)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]inboxItem, len(anns))
		for i := range anns {
			out[i] = inboxItem{Announcement: anns[i], ReadAt: recs[i].ReadAt}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// GetAnnouncementHandler serves one announcement; authors also get the
// per-recipient read receipts.
func GetAnnouncementHandler(svc *announcement.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := rbac.SubjectFromContext(r.Context())
		a, err := svc.Get(r.Context(), chi.URLParam(r, "announcementID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if a.AuthorID == sub {
			recs, err := svc.Recipients(r.Context(), a.ID)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"announcement": a,
				"recipients":   recs,
			})
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}
