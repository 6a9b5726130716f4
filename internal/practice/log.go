package practice

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/abhisek/deepread/internal/rubric"
	"github.com/abhisek/deepread/internal/store"
)

// Response is one evaluated answer.
type Response struct {
	Level         int
	Attempt       int
	QuestionIndex int
	Question      string
	Answer        string
	Result        *rubric.Result

	DifficultyNext rubric.Difficulty
	SubmittedAt    time.Time
}

// Keys identify where a session's responses are persisted. All three must
// be UUIDs.
type Keys struct {
	UserID    string
	BookID    string
	InsightID string
}

// Validate fails with ErrIdentityMissing for a blank user and with
// ErrPersistenceRejected for malformed ids.
func (k Keys) Validate() error {
	if strings.TrimSpace(k.UserID) == "" {
		return ErrIdentityMissing
	}
	for _, f := range []struct{ name, v string }{
		{"user_id", k.UserID},
		{"book_id", k.BookID},
		{"insight_id", k.InsightID},
	} {
		if err := store.ValidateID(f.name, f.v); err != nil {
			return fmt.Errorf("%w: %w", ErrPersistenceRejected, err)
		}
	}
	return nil
}

// Persister saves one practice record.
type Persister interface {
	SavePractice(ctx context.Context, rec store.PracticeRecord) error
}

type entryState int

const (
	statePending entryState = iota
	stateSending
	stateSaved
	stateFailed
)

type logEntry struct {
	resp  Response
	state entryState
}

// Log is the append-only record of a session's evaluated answers.
type Log struct {
	mu      sync.Mutex
	entries []logEntry
}

// Append adds responses in order.
func (l *Log) Append(rs ...Response) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range rs {
		l.entries = append(l.entries, logEntry{resp: r})
	}
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Entries returns every response in insertion order.
func (l *Log) Entries() []Response {
	return l.filter(func(entryState) bool { return true })
}

// Pending returns responses not yet sent to a persister.
func (l *Log) Pending() []Response {
	return l.filter(func(s entryState) bool { return s == statePending })
}

// Failed returns the indices of entries a persister rejected. They are
// not resent by later flushes.
func (l *Log) Failed() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []int
	for i, e := range l.entries {
		if e.state == stateFailed {
			out = append(out, i)
		}
	}
	return out
}

func (l *Log) filter(keep func(entryState) bool) []Response {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Response
	for _, e := range l.entries {
		if keep(e.state) {
			out = append(out, e.resp)
		}
	}
	return out
}

// Flush persists every pending entry independently. Keys are validated
// first; on a key error nothing is sent and entries stay pending. A
// partial failure returns *FlushError. Entries are claimed before the
// persister is called, so concurrent flushes never send one twice and the
// log stays readable while records are in flight.
func (l *Log) Flush(ctx context.Context, p Persister, keys Keys) error {
	if err := keys.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	var claimed []int
	for i := range l.entries {
		if l.entries[i].state == statePending {
			l.entries[i].state = stateSending
			claimed = append(claimed, i)
		}
	}
	resps := make([]Response, len(claimed))
	for j, i := range claimed {
		resps[j] = l.entries[i].resp
	}
	l.mu.Unlock()

	states := make([]entryState, len(claimed))
	var (
		failed []int
		errs   []error
	)
	for j, r := range resps {
		rec, err := record(r, keys)
		if err == nil {
			err = p.SavePractice(ctx, rec)
		}
		if err != nil {
			states[j] = stateFailed
			failed = append(failed, claimed[j])
			errs = append(errs, err)
			continue
		}
		states[j] = stateSaved
	}

	l.mu.Lock()
	for j, i := range claimed {
		l.entries[i].state = states[j]
	}
	l.mu.Unlock()

	if len(failed) > 0 {
		return &FlushError{Failed: failed, Total: len(claimed), Errs: errs}
	}
	return nil
}

func record(r Response, keys Keys) (store.PracticeRecord, error) {
	rec := store.PracticeRecord{
		UserID:         keys.UserID,
		BookID:         keys.BookID,
		InsightID:      keys.InsightID,
		SubmittedAt:    r.SubmittedAt,
		Level:          r.Level,
		Question:       r.Question,
		ResponseText:   r.Answer,
		DifficultyNext: string(r.DifficultyNext),
	}
	if r.Result != nil {
		fb, err := json.Marshal(r.Result)
		if err != nil {
			return rec, fmt.Errorf("encode feedback: %w", err)
		}
		rec.Feedback = fb
		rec.EvalScore = r.Result.EvalScore
	}
	return rec, nil
}
