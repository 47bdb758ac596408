package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// Event types appended by the services.
const (
	TypeAttemptSubmitted      = "AttemptSubmitted"
	TypeQuizPublished         = "QuizPublished"
	TypeAnnouncementPublished = "AnnouncementPublished"
)

// Log is an append-only audit log; the request path only ever writes.
// The key is a natural key: attemptID, quizID, announcementID.
type Log interface {
	Append(ctx context.Context, typ, key string, data interface{}) error
}

type Repo struct{ db *sql.DB }

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Append(ctx context.Context, typ, key string, data interface{}) error {
	buf, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		"local", typ, key, string(buf), time.Now().Unix())
	return err
}

// Nop discards events; handy for tests and offline tooling.
type Nop struct{}

func (Nop) Append(context.Context, string, string, interface{}) error { return nil }
