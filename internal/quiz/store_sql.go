package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/schoolconnect/schoolconnect-api/internal/analytics"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

var _ Store = (*SQLStore)(nil)

func (s *SQLStore) PutQuiz(ctx context.Context, q Quiz) error {
	qj, err := json.Marshal(q.Questions)
	if err != nil {
		return err
	}
	sj, err := json.Marshal(q.Settings)
	if err != nil {
		return err
	}
	aj, err := json.Marshal(q.Analytics)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO quizzes
		(id,author_id,title,description,status,questions_json,settings_json,analytics_json,total_points,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
			title=EXCLUDED.title, description=EXCLUDED.description, status=EXCLUDED.status,
			questions_json=EXCLUDED.questions_json, settings_json=EXCLUDED.settings_json,
			total_points=EXCLUDED.total_points, updated_at=EXCLUDED.updated_at`,
		q.ID, q.AuthorID, q.Title, q.Description, q.Status,
		string(qj), string(sj), string(aj), q.TotalPoints,
		q.CreatedAt.Unix(), time.Now().Unix())
	return err
}

func (s *SQLStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,author_id,title,description,status,
		questions_json,settings_json,analytics_json,total_points,created_at,updated_at
		FROM quizzes WHERE id=$1`, id)
	return scanQuiz(row)
}

func (s *SQLStore) ListQuizzes(ctx context.Context, opts ListOpts) ([]Quiz, error) {
	q := `SELECT id,author_id,title,description,status,
		questions_json,settings_json,analytics_json,total_points,created_at,updated_at
		FROM quizzes`
	var conds []string
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, cond+placeholder(len(args)))
	}
	if opts.AuthorID != "" {
		add("author_id=", opts.AuthorID)
	}
	if opts.Status != "" {
		add("status=", opts.Status)
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at DESC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += " LIMIT " + placeholder(len(args))
		args = append(args, opts.Offset)
		q += " OFFSET " + placeholder(len(args))
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Quiz{}
	for rows.Next() {
		qz, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, qz)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteQuiz(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quizzes WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrQuizNotFound
	}
	return nil
}

func (s *SQLStore) UpdateAnalytics(ctx context.Context, quizID string, a analytics.Running) error {
	aj, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE quizzes SET analytics_json=$1 WHERE id=$2`,
		string(aj), quizID)
	return err
}

func (s *SQLStore) CreateAttempt(ctx context.Context, a Attempt) error {
	rj, err := json.Marshal(a.Responses)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO quiz_attempts
		(id,quiz_id,student_id,attempt_number,status,responses_json,score,max_score,percentage,time_spent_seconds,started_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		a.ID, a.QuizID, a.StudentID, a.AttemptNumber, a.Status,
		string(rj), a.Score, a.MaxScore, a.Percentage, a.TimeSpentSeconds,
		a.StartedAt.Unix())
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateAttempt
	}
	return err
}

func (s *SQLStore) UpdateAttempt(ctx context.Context, a Attempt) error {
	rj, err := json.Marshal(a.Responses)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE quiz_attempts SET
		status=$1, responses_json=$2, score=$3, max_score=$4, percentage=$5,
		time_spent_seconds=$6, completed_at=$7, submitted_at=$8
		WHERE id=$9`,
		a.Status, string(rj), a.Score, a.MaxScore, a.Percentage,
		a.TimeSpentSeconds, nullUnix(a.CompletedAt), nullUnix(a.SubmittedAt), a.ID)
	return err
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT
		id,quiz_id,student_id,attempt_number,status,responses_json,score,max_score,
		percentage,time_spent_seconds,started_at,completed_at,submitted_at
		FROM quiz_attempts WHERE id=$1`, id)
	return scanAttempt(row)
}

func (s *SQLStore) GetActiveAttempt(ctx context.Context, quizID, studentID string) (Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT
		id,quiz_id,student_id,attempt_number,status,responses_json,score,max_score,
		percentage,time_spent_seconds,started_at,completed_at,submitted_at
		FROM quiz_attempts WHERE quiz_id=$1 AND student_id=$2 AND status=$3`,
		quizID, studentID, AttemptInProgress)
	return scanAttempt(row)
}

func (s *SQLStore) CountTerminalAttempts(ctx context.Context, quizID, studentID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quiz_attempts
		WHERE quiz_id=$1 AND student_id=$2 AND status != $3`,
		quizID, studentID, AttemptInProgress).Scan(&n)
	return n, err
}

func (s *SQLStore) CountAttempts(ctx context.Context, quizID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quiz_attempts WHERE quiz_id=$1`,
		quizID).Scan(&n)
	return n, err
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	q := `SELECT id,quiz_id,student_id,attempt_number,status,responses_json,score,max_score,
		percentage,time_spent_seconds,started_at,completed_at,submitted_at
		FROM quiz_attempts`
	var conds []string
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, cond+placeholder(len(args)))
	}
	if opts.QuizID != "" {
		add("quiz_id=", opts.QuizID)
	}
	if opts.StudentID != "" {
		add("student_id=", opts.StudentID)
	}
	if opts.Status != "" {
		add("status=", opts.Status)
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY started_at DESC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += " LIMIT " + placeholder(len(args))
		args = append(args, opts.Offset)
		q += " OFFSET " + placeholder(len(args))
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// --- scanning helpers ---

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuiz(row rowScanner) (Quiz, error) {
	var q Quiz
	var qjson, sjson, ajson string
	var created, updated int64
	err := row.Scan(&q.ID, &q.AuthorID, &q.Title, &q.Description, &q.Status,
		&qjson, &sjson, &ajson, &q.TotalPoints, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quiz{}, ErrQuizNotFound
		}
		return Quiz{}, err
	}
	if err := json.Unmarshal([]byte(qjson), &q.Questions); err != nil {
		return Quiz{}, err
	}
	if err := json.Unmarshal([]byte(sjson), &q.Settings); err != nil {
		return Quiz{}, err
	}
	if err := json.Unmarshal([]byte(ajson), &q.Analytics); err != nil {
		return Quiz{}, err
	}
	q.CreatedAt = time.Unix(created, 0).UTC()
	q.UpdatedAt = time.Unix(updated, 0).UTC()
	return q, nil
}

func scanAttempt(row rowScanner) (Attempt, error) {
	var a Attempt
	var rjson string
	var started int64
	var completed, submitted sql.NullInt64
	err := row.Scan(&a.ID, &a.QuizID, &a.StudentID, &a.AttemptNumber, &a.Status,
		&rjson, &a.Score, &a.MaxScore, &a.Percentage, &a.TimeSpentSeconds,
		&started, &completed, &submitted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrAttemptNotFound
		}
		return Attempt{}, err
	}
	if err := json.Unmarshal([]byte(rjson), &a.Responses); err != nil {
		a.Responses = []QuestionResponse{}
	}
	a.StartedAt = time.Unix(started, 0).UTC()
	if completed.Valid {
		t := time.Unix(completed.Int64, 0).UTC()
		a.CompletedAt = &t
	}
	if submitted.Valid {
		t := time.Unix(submitted.Int64, 0).UTC()
		a.SubmittedAt = &t
	}
	return a, nil
}

func nullUnix(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func placeholder(n int) string {
	// $N works for both pgx and the modernc sqlite driver.
	return "$" + strconv.Itoa(n)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // sqlite
		strings.Contains(msg, "duplicate key") // postgres
}
