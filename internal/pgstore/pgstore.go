// Package pgstore writes practice responses to the hosted Postgres
// database behind the reading app.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/abhisek/deepread/internal/store"
)

// ErrRejected wraps writes the database refused because of the row's
// content: unknown foreign keys, malformed values or row-level policy.
var ErrRejected = errors.New("practice record rejected")

// Store is a practice_sessions writer backed by Postgres.
type Store struct {
	db *sqlx.DB
}

// Open connects to dsn and pings it.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing connection pool.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

type practiceRow struct {
	ID                string         `db:"id"`
	UserID            string         `db:"user_id"`
	BookID            string         `db:"book_id"`
	InsightID         string         `db:"insight_id"`
	SubmittedAt       time.Time      `db:"submitted_at"`
	ResponseText      string         `db:"response_text"`
	Feedback          types.JSONText `db:"llm_feedback"`
	EvalScore         float64        `db:"eval_score"`
	UserFeedbackScore *int           `db:"user_feedback_score"`
	DifficultyNext    string         `db:"auto_difficulty_next"`
}

const insertPractice = `
INSERT INTO practice_sessions (
	user_id, book_id, insight_id, submitted_at, response_text,
	llm_feedback, eval_score, user_feedback_score, auto_difficulty_next
) VALUES (
	:user_id, :book_id, :insight_id, :submitted_at, :response_text,
	:llm_feedback, :eval_score, :user_feedback_score, :auto_difficulty_next
)`

// SavePractice inserts rec. Keys are validated before the database is
// contacted; the table has no level or question column, so those stay in
// the local copy only.
func (s *Store) SavePractice(ctx context.Context, rec store.PracticeRecord) error {
	if err := store.ValidateRecord(rec); err != nil {
		return fmt.Errorf("%w: %w", ErrRejected, err)
	}
	row := toRow(rec)
	if _, err := s.db.NamedExecContext(ctx, insertPractice, row); err != nil {
		return classify(err)
	}
	return nil
}

// ListPractice returns a user's records for one insight, newest first.
func (s *Store) ListPractice(ctx context.Context, userID, insightID string, limit int) ([]store.PracticeRecord, error) {
	if err := store.ValidateID("user_id", userID); err != nil {
		return nil, err
	}
	if err := store.ValidateID("insight_id", insightID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	var rows []practiceRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_id, book_id, insight_id, submitted_at, response_text,
		       COALESCE(llm_feedback, '{}'::jsonb) AS llm_feedback,
		       eval_score, user_feedback_score,
		       COALESCE(auto_difficulty_next, '') AS auto_difficulty_next
		FROM practice_sessions
		WHERE user_id = $1 AND insight_id = $2
		ORDER BY submitted_at DESC
		LIMIT $3`, userID, insightID, limit)
	if err != nil {
		return nil, fmt.Errorf("list practice sessions: %w", err)
	}

	out := make([]store.PracticeRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, store.PracticeRecord{
			ID:                r.ID,
			UserID:            r.UserID,
			BookID:            r.BookID,
			InsightID:         r.InsightID,
			SubmittedAt:       r.SubmittedAt,
			ResponseText:      r.ResponseText,
			Feedback:          json.RawMessage(r.Feedback),
			EvalScore:         r.EvalScore,
			UserFeedbackScore: r.UserFeedbackScore,
			DifficultyNext:    r.DifficultyNext,
		})
	}
	return out, nil
}

func toRow(rec store.PracticeRecord) practiceRow {
	submitted := rec.SubmittedAt
	if submitted.IsZero() {
		submitted = time.Now()
	}
	feedback := types.JSONText(rec.Feedback)
	if len(feedback) == 0 {
		feedback = types.JSONText("{}")
	}
	return practiceRow{
		UserID:            rec.UserID,
		BookID:            rec.BookID,
		InsightID:         rec.InsightID,
		SubmittedAt:       submitted.UTC(),
		ResponseText:      rec.ResponseText,
		Feedback:          feedback,
		EvalScore:         rec.EvalScore,
		UserFeedbackScore: rec.UserFeedbackScore,
		DifficultyNext:    rec.DifficultyNext,
	}
}

// Postgres error classes that mean the row itself is unacceptable.
var rejectCodes = map[pq.ErrorCode]bool{
	"23503": true, // foreign_key_violation
	"23502": true, // not_null_violation
	"23514": true, // check_violation
	"22P02": true, // invalid_text_representation
	"42501": true, // insufficient_privilege (row-level security)
}

func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && rejectCodes[pqErr.Code] {
		return fmt.Errorf("%w: %s: %s", ErrRejected, pqErr.Code.Name(), pqErr.Message)
	}
	return fmt.Errorf("insert practice session: %w", err)
}
