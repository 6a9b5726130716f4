package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

// ErrMalformedID is returned for ids that are not canonical UUIDs.
var ErrMalformedID = errors.New("malformed id")

// ValidateID checks that v is a canonical 36-character UUID.
func ValidateID(field, v string) error {
	if len(v) != 36 || uuid.Validate(v) != nil {
		return fmt.Errorf("%w: %s %q", ErrMalformedID, field, v)
	}
	return nil
}

// ValidateRecord checks the record's keys before any write is attempted.
func ValidateRecord(rec PracticeRecord) error {
	for _, k := range []struct{ field, v string }{
		{"user_id", rec.UserID},
		{"book_id", rec.BookID},
		{"insight_id", rec.InsightID},
	} {
		if err := ValidateID(k.field, k.v); err != nil {
			return err
		}
	}
	if rec.ID != "" {
		return ValidateID("id", rec.ID)
	}
	return nil
}

// PracticeRepo stores practice responses locally.
type PracticeRepo struct {
	db *sql.DB
}

// PracticeFilter narrows List. Empty fields match everything.
type PracticeFilter struct {
	UserID    string
	InsightID string
	Limit     int
}

var practiceColumns = []string{
	"id", "user_id", "book_id", "insight_id", "submitted_at", "level",
	"question", "response_text", "llm_feedback", "eval_score",
	"user_feedback_score", "auto_difficulty_next",
}

// SavePractice inserts rec, assigning an id and timestamp when unset.
func (r *PracticeRepo) SavePractice(ctx context.Context, rec PracticeRecord) error {
	if err := ValidateRecord(rec); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.SubmittedAt.IsZero() {
		rec.SubmittedAt = time.Now().UTC()
	}
	feedback := rec.Feedback
	if len(feedback) == 0 {
		feedback = []byte("{}")
	}
	var userFB sql.NullInt64
	if rec.UserFeedbackScore != nil {
		userFB = sql.NullInt64{Int64: int64(*rec.UserFeedbackScore), Valid: true}
	}

	query, args := entsql.Dialect(dialect.SQLite).
		Insert(tablePractice).
		Columns(practiceColumns...).
		Values(
			rec.ID, rec.UserID, rec.BookID, rec.InsightID, rec.SubmittedAt.UTC(), rec.Level,
			rec.Question, rec.ResponseText, string(feedback), rec.EvalScore,
			userFB, rec.DifficultyNext,
		).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save practice record: %w", err)
	}
	return nil
}

// List returns records newest first.
func (r *PracticeRepo) List(ctx context.Context, f PracticeFilter) ([]PracticeRecord, error) {
	t := entsql.Table(tablePractice)
	sel := entsql.Dialect(dialect.SQLite).
		Select(practiceColumns...).
		From(t).
		OrderBy(entsql.Desc(t.C("submitted_at")))

	var preds []*entsql.Predicate
	if f.UserID != "" {
		preds = append(preds, entsql.EQ(t.C("user_id"), f.UserID))
	}
	if f.InsightID != "" {
		preds = append(preds, entsql.EQ(t.C("insight_id"), f.InsightID))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	if f.Limit > 0 {
		sel.Limit(f.Limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query practice records: %w", err)
	}
	defer rows.Close()

	var out []PracticeRecord
	for rows.Next() {
		var (
			rec      PracticeRecord
			feedback string
			userFB   sql.NullInt64
		)
		err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.BookID, &rec.InsightID, &rec.SubmittedAt, &rec.Level,
			&rec.Question, &rec.ResponseText, &feedback, &rec.EvalScore,
			&userFB, &rec.DifficultyNext,
		)
		if err != nil {
			return nil, fmt.Errorf("scan practice record: %w", err)
		}
		rec.Feedback = []byte(feedback)
		if userFB.Valid {
			v := int(userFB.Int64)
			rec.UserFeedbackScore = &v
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
