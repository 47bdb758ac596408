package announcement

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

var _ Store = (*SQLStore)(nil)

func (s *SQLStore) Put(ctx context.Context, a Announcement) error {
	aj, err := json.Marshal(a.Audience)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO announcements
		(id,author_id,title,content,audience_json,priority,status,created_at,published_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			title=EXCLUDED.title, content=EXCLUDED.content, audience_json=EXCLUDED.audience_json,
			priority=EXCLUDED.priority, status=EXCLUDED.status, published_at=EXCLUDED.published_at`,
		a.ID, a.AuthorID, a.Title, a.Content, string(aj), a.Priority, a.Status,
		a.CreatedAt.Unix(), nullUnix(a.PublishedAt))
	return err
}

func (s *SQLStore) Get(ctx context.Context, id string) (Announcement, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,author_id,title,content,audience_json,priority,status,created_at,published_at
		FROM announcements WHERE id=$1`, id)
	return scanAnnouncement(row)
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM announcements WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) ListByAuthor(ctx context.Context, authorID string) ([]Announcement, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,author_id,title,content,audience_json,priority,status,created_at,published_at
		FROM announcements WHERE author_id=$1 ORDER BY created_at DESC`, authorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Announcement{}
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListForRecipient(ctx context.Context, userID string) ([]Announcement, []Recipient, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
		a.id,a.author_id,a.title,a.content,a.audience_json,a.priority,a.status,a.created_at,a.published_at,
		r.user_id,r.read_at
		FROM announcements a
		JOIN announcement_recipients r ON r.announcement_id = a.id
		WHERE r.user_id=$1 AND a.status=$2
		ORDER BY a.published_at DESC`, userID, StatusPublished)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	anns := []Announcement{}
	recs := []Recipient{}
	for rows.Next() {
		var a Announcement
		var audj string
		var created int64
		var published, readAt sql.NullInt64
		var rUser string
		if err := rows.Scan(&a.ID, &a.AuthorID, &a.Title, &a.Content, &audj, &a.Priority,
			&a.Status, &created, &published, &rUser, &readAt); err != nil {
			return nil, nil, err
		}
		if err := json.Unmarshal([]byte(audj), &a.Audience); err != nil {
			return nil, nil, err
		}
		a.CreatedAt = time.Unix(created, 0).UTC()
		if published.Valid {
			t := time.Unix(published.Int64, 0).UTC()
			a.PublishedAt = &t
		}
		r := Recipient{AnnouncementID: a.ID, UserID: rUser}
		if readAt.Valid {
			t := time.Unix(readAt.Int64, 0).UTC()
			r.ReadAt = &t
		}
		anns = append(anns, a)
		recs = append(recs, r)
	}
	return anns, recs, rows.Err()
}

func (s *SQLStore) AddRecipients(ctx context.Context, announcementID string, targets []Target) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	for _, t := range targets {
		if _, err = tx.ExecContext(ctx, `INSERT INTO announcement_recipients
			(announcement_id, user_id, email) VALUES ($1,$2,$3)
			ON CONFLICT (announcement_id, user_id) DO NOTHING`,
			announcementID, t.UserID, t.Email); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) MarkRead(ctx context.Context, announcementID, userID string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE announcement_recipients
		SET read_at=$1 WHERE announcement_id=$2 AND user_id=$3 AND read_at IS NULL`,
		time.Now().Unix(), announcementID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either already read (fine) or not a recipient at all.
		var one int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM announcement_recipients
			WHERE announcement_id=$1 AND user_id=$2`, announcementID, userID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotRecipient
		}
		return err
	}
	return nil
}

func (s *SQLStore) ListRecipients(ctx context.Context, announcementID string) ([]Recipient, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT announcement_id,user_id,email,read_at
		FROM announcement_recipients WHERE announcement_id=$1`, announcementID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Recipient{}
	for rows.Next() {
		var r Recipient
		var readAt sql.NullInt64
		if err := rows.Scan(&r.AnnouncementID, &r.UserID, &r.Email, &readAt); err != nil {
			return nil, err
		}
		if readAt.Valid {
			t := time.Unix(readAt.Int64, 0).UTC()
			r.ReadAt = &t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAnnouncement(row rowScanner) (Announcement, error) {
	var a Announcement
	var audj string
	var created int64
	var published sql.NullInt64
	err := row.Scan(&a.ID, &a.AuthorID, &a.Title, &a.Content, &audj, &a.Priority,
		&a.Status, &created, &published)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Announcement{}, ErrNotFound
		}
		return Announcement{}, err
	}
	if err := json.Unmarshal([]byte(audj), &a.Audience); err != nil {
		return Announcement{}, err
	}
	a.CreatedAt = time.Unix(created, 0).UTC()
	if published.Valid {
		t := time.Unix(published.Int64, 0).UTC()
		a.PublishedAt = &t
	}
	return a, nil
}

func nullUnix(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Unix()
}

// SQLDirectory resolves audience roles against the users table.
type SQLDirectory struct{ db *sql.DB }

func NewSQLDirectory(db *sql.DB) *SQLDirectory { return &SQLDirectory{db: db} }

func (d *SQLDirectory) UsersByRoles(ctx context.Context, roles []string) ([]Target, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	// Small fixed role set, so an IN list built by hand is fine.
	ph := make([]string, len(roles))
	args := make([]interface{}, len(roles))
	for i, r := range roles {
		ph[i] = placeholder(i + 1)
		args[i] = r
	}
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, username, email FROM users WHERE role IN (`+strings.Join(ph, ",")+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Target{}
	for rows.Next() {
		var t Target
		if err := rows.Scan(&t.UserID, &t.Name, &t.Email); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
