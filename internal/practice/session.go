// Package practice drives a learner through the depth levels of one concept:
// it loads question batches, collects answers, scores them, and advances or
// holds the learner at a level. Evaluated answers are kept in a Log and
// flushed to a Persister whenever a level is passed and on close.
package practice

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/deepread/internal/depth"
	"github.com/abhisek/deepread/internal/questiongen"
	"github.com/abhisek/deepread/internal/rubric"
)

// Config describes the concept being practiced.
type Config struct {
	Concept     string
	DepthTarget int
	BookTitle   string

	// Insight is optional text shown to the evaluator alongside each
	// question.
	Insight string

	RelatedConcepts []string
	MentalModels    []string

	Keys Keys
}

// Deps are the collaborators a session calls out to.
type Deps struct {
	Generator questiongen.Generator
	Evaluator rubric.Evaluator

	// Persister may be nil, in which case responses stay pending.
	Persister Persister

	Logger *zap.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Session is the state of one concept's practice. It is safe for use from
// multiple goroutines. Question generation, evaluation and flushing run
// without holding the lock so Close and Snapshot stay responsive.
type Session struct {
	mu   sync.Mutex
	id   string
	cfg  Config
	deps Deps
	log  *Log

	phase     Phase
	level     int
	attempt   int
	questions []string
	source    questiongen.Source
	answers   []string
	scored    []string
	results   []*rubric.Result

	cancelEval context.CancelFunc
	updatedAt  time.Time
}

// New validates cfg and returns a session at AwaitingAnswers(1). Questions
// are loaded by Load.
func New(cfg Config, deps Deps) (*Session, error) {
	if !depth.Valid(cfg.DepthTarget) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTarget, cfg.DepthTarget)
	}
	if strings.TrimSpace(cfg.Concept) == "" {
		return nil, fmt.Errorf("concept is required")
	}
	if deps.Generator == nil || deps.Evaluator == nil {
		return nil, fmt.Errorf("generator and evaluator are required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	s := &Session{
		id:      uuid.NewString(),
		cfg:     cfg,
		deps:    deps,
		log:     &Log{},
		phase:   AwaitingAnswers,
		level:   int(depth.Min),
		attempt: 1,
	}
	s.updatedAt = deps.Now()
	return s, nil
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// Log returns the session's response log.
func (s *Session) Log() *Log { return s.log }

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Level returns the depth level being practiced.
func (s *Session) Level() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// UpdatedAt returns the time of the last state change.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Load fetches the question batch for the current level. It is a no-op
// once questions are loaded.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != AwaitingAnswers {
		phase := s.phase
		s.mu.Unlock()
		return &PhaseError{Op: "load", Phase: phase}
	}
	if s.questions != nil {
		s.mu.Unlock()
		return nil
	}
	s.phase = Advancing
	in := s.inputLocked()
	s.mu.Unlock()

	return s.install(s.generate(ctx, in))
}

func (s *Session) inputLocked() questiongen.Input {
	return questiongen.Input{
		Concept:         s.cfg.Concept,
		Level:           s.level,
		BookTitle:       s.cfg.BookTitle,
		RelatedConcepts: s.cfg.RelatedConcepts,
		MentalModels:    s.cfg.MentalModels,
	}
}

// generate runs without the session lock. Anything other than a full
// batch is replaced by the template questions.
func (s *Session) generate(ctx context.Context, in questiongen.Input) *questiongen.Batch {
	batch, err := s.deps.Generator.Generate(ctx, in)
	if err == nil && (batch == nil || len(batch.Questions) != questiongen.BatchSize) {
		n := 0
		if batch != nil {
			n = len(batch.Questions)
		}
		err = fmt.Errorf("got %d questions, want %d", n, questiongen.BatchSize)
	}
	if err != nil {
		s.deps.Logger.Warn("question generator failed, using templates",
			zap.String("session", s.id), zap.Int("level", in.Level), zap.Error(err))
		return &questiongen.Batch{
			Questions: questiongen.Fallback(s.cfg.Concept, in.Level),
			Source:    questiongen.SourceFallback,
		}
	}
	return batch
}

// install makes batch the current level's questions unless the session was
// closed while it was generated.
func (s *Session) install(batch *questiongen.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == Closed {
		return ErrSessionClosed
	}
	s.questions = append([]string(nil), batch.Questions...)
	s.source = batch.Source
	s.answers = make([]string, len(s.questions))
	s.scored = nil
	s.results = nil
	s.phase = AwaitingAnswers
	s.touch()
	return nil
}

// SetAnswer replaces the answer at index i.
func (s *Session) SetAnswer(i int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.phase.editable() {
		return &PhaseError{Op: "set answer", Phase: s.phase}
	}
	if s.questions == nil {
		return ErrNoQuestions
	}
	if i < 0 || i >= len(s.answers) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrAnswerIndex, i, len(s.answers))
	}
	s.answers[i] = text
	s.touch()
	return nil
}

// Submit evaluates every answer of the current level and moves to
// ShowingResults. Blank answers reject the submission with
// *IncompleteAnswersError and leave the session unchanged. A failed
// evaluation yields a placeholder result for that answer only.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	if !s.phase.editable() {
		phase := s.phase
		s.mu.Unlock()
		return &PhaseError{Op: "submit", Phase: phase}
	}
	if s.questions == nil {
		s.mu.Unlock()
		return ErrNoQuestions
	}
	if err := s.checkComplete(); err != nil {
		s.mu.Unlock()
		return err
	}

	var (
		level     = s.level
		attempt   = s.attempt
		questions = append([]string(nil), s.questions...)
		answers   = append([]string(nil), s.answers...)
	)
	evalCtx, cancel := context.WithCancel(ctx)
	s.cancelEval = cancel
	s.phase = Evaluating
	s.touch()
	s.mu.Unlock()

	results := s.evaluate(evalCtx, level, questions, answers)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelEval = nil

	if s.phase == Closed {
		return ErrSessionClosed
	}

	now := s.deps.Now()
	responses := make([]Response, len(results))
	for i, res := range results {
		responses[i] = Response{
			Level:          level,
			Attempt:        attempt,
			QuestionIndex:  i,
			Question:       questions[i],
			Answer:         answers[i],
			Result:         res,
			DifficultyNext: rubric.DifficultyHint(res.SimplifiedScore),
			SubmittedAt:    now,
		}
	}
	s.log.Append(responses...)

	s.results = results
	s.scored = answers
	s.phase = ShowingResults
	s.touch()
	return nil
}

func (s *Session) checkComplete() error {
	var blank []int
	for i, a := range s.answers {
		if strings.TrimSpace(a) == "" {
			blank = append(blank, i)
		}
	}
	if len(blank) > 0 {
		return &IncompleteAnswersError{Unanswered: len(blank), Indices: blank}
	}
	return nil
}

// evaluate scores all answers concurrently. Results are stored by question
// index so display order never depends on completion order.
func (s *Session) evaluate(ctx context.Context, level int, questions, answers []string) []*rubric.Result {
	results := make([]*rubric.Result, len(answers))

	var g errgroup.Group
	for i := range answers {
		g.Go(func() error {
			res, err := s.deps.Evaluator.Evaluate(ctx, answers[i], s.promptContext(questions[i]), level)
			if err != nil || res == nil {
				s.deps.Logger.Warn("evaluation failed, using placeholder",
					zap.String("session", s.id), zap.Int("level", level), zap.Int("index", i), zap.Error(err))
				res = rubric.Placeholder(err)
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *Session) promptContext(question string) string {
	if s.cfg.Insight == "" {
		return fmt.Sprintf("Concept: %s\nQuestion: %s", s.cfg.Concept, question)
	}
	return fmt.Sprintf("%s\n\nConcept: %s\nQuestion: %s", s.cfg.Insight, s.cfg.Concept, question)
}

// Progress is the outcome of Continue.
type Progress struct {
	Phase Phase
	Level int

	// FlushErr is a non-fatal persistence warning from the level flush.
	FlushErr error
}

// Continue leaves ShowingResults. If every answer passed, the log is
// flushed and the session either completes (at the depth target) or
// advances and loads the next level's questions. Otherwise it moves to
// Retrying with answers kept for editing.
func (s *Session) Continue(ctx context.Context) (Progress, error) {
	s.mu.Lock()
	if s.phase != ShowingResults {
		p := Progress{Phase: s.phase, Level: s.level}
		s.mu.Unlock()
		return p, &PhaseError{Op: "continue", Phase: p.Phase}
	}

	if !allPassed(s.results) {
		s.phase = Retrying
		s.attempt++
		s.touch()
		p := Progress{Phase: s.phase, Level: s.level}
		s.mu.Unlock()
		return p, nil
	}

	if s.level >= s.cfg.DepthTarget {
		s.phase = Completed
		s.touch()
		p := Progress{Phase: s.phase, Level: s.level}
		s.mu.Unlock()
		p.FlushErr = s.flush(ctx)
		return p, nil
	}

	s.deps.Logger.Debug("advancing depth level",
		zap.String("session", s.id), zap.Int("from", s.level), zap.Int("to", s.level+1))
	s.phase = Advancing
	s.level++
	s.attempt = 1
	s.questions = nil
	s.answers = nil
	s.scored = nil
	s.results = nil
	s.touch()
	in := s.inputLocked()
	s.mu.Unlock()

	p := Progress{Phase: AwaitingAnswers, Level: in.Level, FlushErr: s.flush(ctx)}
	if err := s.install(s.generate(ctx, in)); err != nil {
		p.Phase = Closed
		return p, err
	}
	return p, nil
}

func allPassed(results []*rubric.Result) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if !r.Passed() {
			return false
		}
	}
	return true
}

// Close ends the session from any phase. In-flight evaluations are
// abandoned and pending responses are flushed best-effort; the flush error,
// if any, is returned as a warning. Closing twice is a no-op.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.phase == Closed {
		s.mu.Unlock()
		return nil
	}
	if s.cancelEval != nil {
		s.cancelEval()
	}
	s.phase = Closed
	s.touch()
	s.mu.Unlock()

	return s.flush(ctx)
}

// flush runs without the session lock; Log serializes concurrent flushes.
func (s *Session) flush(ctx context.Context) error {
	if s.deps.Persister == nil || len(s.log.Pending()) == 0 {
		return nil
	}
	err := s.log.Flush(ctx, s.deps.Persister, s.cfg.Keys)
	if err != nil {
		s.deps.Logger.Warn("practice responses not saved", zap.String("session", s.id), zap.Error(err))
	}
	return err
}

func (s *Session) touch() {
	s.updatedAt = s.deps.Now()
}
