package practice

import (
	"time"

	"github.com/abhisek/deepread/internal/depth"
	"github.com/abhisek/deepread/internal/questiongen"
	"github.com/abhisek/deepread/internal/rubric"
)

// AnswerOutcome is the learner-facing verdict on one answer.
type AnswerOutcome struct {
	Index       int            `json:"index"`
	Question    string         `json:"question"`
	Answer      string         `json:"answer"`
	Passed      bool           `json:"passed"`
	Label       string         `json:"label"`
	Result      *rubric.Result `json:"result"`
	Placeholder bool           `json:"placeholder,omitempty"`
}

// Outcome returns the verdicts of the last submission, in question order,
// with the answers as they were scored.
// It is nil until a level has been evaluated.
func (s *Session) Outcome() []AnswerOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcomeLocked()
}

func (s *Session) outcomeLocked() []AnswerOutcome {
	if s.results == nil {
		return nil
	}
	out := make([]AnswerOutcome, len(s.results))
	for i, r := range s.results {
		out[i] = AnswerOutcome{
			Index:       i,
			Question:    s.questions[i],
			Answer:      s.scored[i],
			Passed:      r.Passed(),
			Label:       r.Label(),
			Result:      r,
			Placeholder: r.IsPlaceholder(),
		}
	}
	return out
}

// Snapshot is a point-in-time copy of a session's state.
type Snapshot struct {
	ID          string             `json:"id"`
	Concept     string             `json:"concept"`
	BookTitle   string             `json:"book_title,omitempty"`
	DepthTarget int                `json:"depth_target"`
	Level       int                `json:"level"`
	LevelName   string             `json:"level_name"`
	Attempt     int                `json:"attempt"`
	Phase       Phase              `json:"phase"`
	Questions   []string           `json:"questions"`
	Source      questiongen.Source `json:"source,omitempty"`
	Answers     []string           `json:"answers"`
	Outcome     []AnswerOutcome    `json:"outcome,omitempty"`
	Responses   int                `json:"responses"`
	Pending     int                `json:"pending"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		ID:          s.id,
		Concept:     s.cfg.Concept,
		BookTitle:   s.cfg.BookTitle,
		DepthTarget: s.cfg.DepthTarget,
		Level:       s.level,
		LevelName:   depth.DisplayName(s.level),
		Attempt:     s.attempt,
		Phase:       s.phase,
		Questions:   append([]string(nil), s.questions...),
		Source:      s.source,
		Answers:     append([]string(nil), s.answers...),
		Outcome:     s.outcomeLocked(),
		Responses:   s.log.Len(),
		Pending:     len(s.log.Pending()),
		UpdatedAt:   s.updatedAt,
	}
}
