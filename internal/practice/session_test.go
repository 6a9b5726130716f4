package practice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/deepread/internal/questiongen"
	"github.com/abhisek/deepread/internal/rubric"
)

type fixture struct {
	gen  *fakeGenerator
	eval *scoreEvaluator
	db   *memPersister
	s    *Session
}

func newFixture(t *testing.T, target int) *fixture {
	t.Helper()
	f := &fixture{gen: &fakeGenerator{}, eval: &scoreEvaluator{}, db: &memPersister{}}
	s, err := New(Config{
		Concept:     "Sunk cost fallacy",
		DepthTarget: target,
		BookTitle:   "Thinking, Fast and Slow",
		Keys:        testKeys(),
	}, Deps{Generator: f.gen, Evaluator: f.eval, Persister: f.db})
	require.NoError(t, err)
	require.NoError(t, s.Load(context.Background()))
	f.s = s
	return f
}

func (f *fixture) answer(t *testing.T, answers ...string) {
	t.Helper()
	for i, a := range answers {
		require.NoError(t, f.s.SetAnswer(i, a))
	}
}

func (f *fixture) submitAndContinue(t *testing.T, answers ...string) Progress {
	t.Helper()
	f.answer(t, answers...)
	require.NoError(t, f.s.Submit(context.Background()))
	require.Equal(t, ShowingResults, f.s.Phase())
	p, err := f.s.Continue(context.Background())
	require.NoError(t, err)
	return p
}

func TestNew_ValidatesTarget(t *testing.T) {
	deps := Deps{Generator: &fakeGenerator{}, Evaluator: &scoreEvaluator{}}
	for _, target := range []int{0, -1, 7} {
		_, err := New(Config{Concept: "x", DepthTarget: target}, deps)
		assert.ErrorIs(t, err, ErrInvalidTarget, "target %d", target)
	}

	s, err := New(Config{Concept: "x", DepthTarget: 6}, deps)
	require.NoError(t, err)
	assert.Equal(t, AwaitingAnswers, s.Phase())
	assert.Equal(t, 1, s.Level())
}

func TestScenarioA_AllPassAdvances(t *testing.T) {
	f := newFixture(t, 3)

	p := f.submitAndContinue(t, "score:4", "score:4", "score:4")
	assert.Equal(t, AwaitingAnswers, p.Phase)
	assert.Equal(t, 2, p.Level)
	assert.NoError(t, p.FlushErr)

	entries := f.s.Log().Entries()
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, 1, e.Level)
		assert.Equal(t, i, e.QuestionIndex)
		assert.Equal(t, rubric.Same, e.DifficultyNext)
	}

	require.Len(t, f.db.saved, 3)
	assert.Equal(t, testUser, f.db.saved[0].UserID)
	assert.Equal(t, "L1 Q1", f.db.saved[0].Question)
	assert.InDelta(t, 0.8, f.db.saved[0].EvalScore, 1e-9)
	assert.JSONEq(t, `{"factors":{"clarity":8},"eval_score":0.8,"simplified_score":4,"explanation":"ok"}`,
		string(f.db.saved[0].Feedback))

	assert.Equal(t, []int{1, 2}, f.gen.levels)
	assert.Equal(t, []string{"L2 Q1", "L2 Q2", "L2 Q3"}, f.s.Snapshot().Questions)
	assert.Equal(t, []string{"", "", ""}, f.s.Snapshot().Answers)
}

func TestScenarioB_OneFailureRetries(t *testing.T) {
	f := newFixture(t, 3)
	f.submitAndContinue(t, "score:4", "score:4", "score:4")

	f.answer(t, "score:4", "score:2.5", "score:3")
	require.NoError(t, f.s.Submit(context.Background()))

	labels := []string{}
	for _, o := range f.s.Outcome() {
		labels = append(labels, o.Label)
	}
	assert.Equal(t, []string{"Passed", "Needs Improvement", "Passed"}, labels)

	p, err := f.s.Continue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Retrying, p.Phase)
	assert.Equal(t, 2, p.Level)

	snap := f.s.Snapshot()
	assert.Equal(t, []string{"score:4", "score:2.5", "score:3"}, snap.Answers, "answers are kept for editing")
	assert.Equal(t, 2, snap.Attempt)
	assert.Len(t, f.db.saved, 3, "a failed level is not flushed")

	// Resubmitting the unchanged set evaluates again and appends a new attempt.
	require.NoError(t, f.s.Submit(context.Background()))
	assert.Equal(t, 9, f.s.Log().Len())
	assert.Len(t, f.s.Log().Pending(), 6)
	p, err = f.s.Continue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Retrying, p.Phase)

	require.NoError(t, f.s.SetAnswer(1, "score:5"))
	p = f.submitAndContinue(t)
	assert.Equal(t, AwaitingAnswers, p.Phase)
	assert.Equal(t, 3, p.Level)

	assert.Len(t, f.db.saved, 12, "each attempt is saved exactly once")
	assert.Empty(t, f.s.Log().Pending())
	assert.Equal(t, 2, f.db.saved[len(f.db.saved)-1].Level)
}

func TestScenarioC_PassAtTargetCompletes(t *testing.T) {
	f := newFixture(t, 3)
	f.submitAndContinue(t, "score:4", "score:4", "score:4")
	f.submitAndContinue(t, "score:3", "score:3", "score:3")

	p := f.submitAndContinue(t, "score:5", "score:5", "score:5")
	assert.Equal(t, Completed, p.Phase)
	assert.Equal(t, 3, p.Level)
	assert.Equal(t, []int{1, 2, 3}, f.gen.levels, "no level beyond the target is loaded")
	assert.Len(t, f.db.saved, 9)

	assert.ErrorIs(t, f.s.SetAnswer(0, "more"), ErrWrongPhase)
	_, err := f.s.Continue(context.Background())
	assert.ErrorIs(t, err, ErrWrongPhase)
}

func TestTargetOneCompletesAfterSingleBatch(t *testing.T) {
	f := newFixture(t, 1)
	p := f.submitAndContinue(t, "score:3", "score:3", "score:3")
	assert.Equal(t, Completed, p.Phase)
	assert.Equal(t, []int{1}, f.gen.levels)
}

func TestScenarioD_EvaluationFailureUsesPlaceholder(t *testing.T) {
	f := newFixture(t, 3)
	f.answer(t, "score:4", "fail", "score:5")
	require.NoError(t, f.s.Submit(context.Background()))

	out := f.s.Outcome()
	require.Len(t, out, 3)
	assert.Equal(t, 4.0, out[0].Result.SimplifiedScore)
	assert.Equal(t, 0.0, out[1].Result.SimplifiedScore)
	assert.Equal(t, "Error evaluating answer", out[1].Result.Explanation)
	assert.True(t, out[1].Placeholder)
	assert.ErrorIs(t, out[1].Result.Cause, rubric.ErrEvaluationUnavailable)
	assert.Equal(t, 5.0, out[2].Result.SimplifiedScore)

	p, err := f.s.Continue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Retrying, p.Phase)
}

func TestSubmit_IncompleteAnswers(t *testing.T) {
	f := newFixture(t, 2)
	f.answer(t, "score:4", "   ", "score:4")

	err := f.s.Submit(context.Background())
	var inc *IncompleteAnswersError
	require.ErrorAs(t, err, &inc)
	assert.ErrorIs(t, err, ErrIncompleteAnswers)
	assert.Equal(t, 1, inc.Unanswered)
	assert.Equal(t, []int{1}, inc.Indices)

	assert.Equal(t, AwaitingAnswers, f.s.Phase())
	assert.Zero(t, f.eval.Calls())
	assert.Zero(t, f.s.Log().Len())
}

func TestSubmit_BeforeLoad(t *testing.T) {
	s, err := New(Config{Concept: "x", DepthTarget: 1}, Deps{Generator: &fakeGenerator{}, Evaluator: &scoreEvaluator{}})
	require.NoError(t, err)
	assert.ErrorIs(t, s.SetAnswer(0, "a"), ErrNoQuestions)
	assert.ErrorIs(t, s.Submit(context.Background()), ErrNoQuestions)
}

func TestSetAnswer_OutOfRange(t *testing.T) {
	f := newFixture(t, 1)
	assert.ErrorIs(t, f.s.SetAnswer(3, "x"), ErrAnswerIndex)
	assert.Error(t, f.s.SetAnswer(-1, "x"))
}

func TestSetAnswer_RejectedWhileShowingResults(t *testing.T) {
	f := newFixture(t, 2)
	f.answer(t, "score:1", "score:1", "score:1")
	require.NoError(t, f.s.Submit(context.Background()))

	err := f.s.SetAnswer(0, "better")
	var pe *PhaseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ShowingResults, pe.Phase)
	assert.ErrorIs(t, f.s.Submit(context.Background()), ErrWrongPhase)
}

func TestEvaluation_DisplayOrderIgnoresCompletionOrder(t *testing.T) {
	f := newFixture(t, 1)
	f.eval.delay = func(answer string) time.Duration {
		switch answer {
		case "score:1":
			return 30 * time.Millisecond
		case "score:2":
			return 15 * time.Millisecond
		}
		return 0
	}
	f.answer(t, "score:1", "score:2", "score:3")
	require.NoError(t, f.s.Submit(context.Background()))

	var scores []float64
	for _, e := range f.s.Log().Entries() {
		scores = append(scores, e.Result.SimplifiedScore)
	}
	assert.Equal(t, []float64{1, 2, 3}, scores)
}

func TestGeneratorFailureFallsBackToTemplates(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("boom")}
	s, err := New(Config{Concept: "Loss aversion", DepthTarget: 2}, Deps{Generator: gen, Evaluator: &scoreEvaluator{}})
	require.NoError(t, err)
	require.NoError(t, s.Load(context.Background()))

	snap := s.Snapshot()
	assert.Equal(t, questiongen.Fallback("Loss aversion", 1), snap.Questions)
	assert.Equal(t, questiongen.SourceFallback, snap.Source)
}

func TestClose_FlushesPending(t *testing.T) {
	f := newFixture(t, 3)
	f.answer(t, "score:1", "score:4", "score:4")
	require.NoError(t, f.s.Submit(context.Background()))
	_, err := f.s.Continue(context.Background())
	require.NoError(t, err)
	require.Empty(t, f.db.saved)

	require.NoError(t, f.s.Close(context.Background()))
	assert.Equal(t, Closed, f.s.Phase())
	assert.Len(t, f.db.saved, 3)

	require.NoError(t, f.s.Close(context.Background()), "closing twice is a no-op")
	assert.Equal(t, 3, f.db.calls)

	assert.ErrorIs(t, f.s.SetAnswer(0, "x"), ErrSessionClosed)
	assert.ErrorIs(t, f.s.Submit(context.Background()), ErrSessionClosed)
}

func TestClose_WithoutIdentityFailsClosed(t *testing.T) {
	db := &memPersister{}
	s, err := New(Config{Concept: "x", DepthTarget: 2}, Deps{
		Generator: &fakeGenerator{}, Evaluator: &scoreEvaluator{}, Persister: db,
	})
	require.NoError(t, err)
	require.NoError(t, s.Load(context.Background()))
	for i := range 3 {
		require.NoError(t, s.SetAnswer(i, "score:4"))
	}
	require.NoError(t, s.Submit(context.Background()))

	p, err := s.Continue(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, p.FlushErr, ErrIdentityMissing)
	assert.Equal(t, 2, p.Level, "progress is not rolled back")

	assert.ErrorIs(t, s.Close(context.Background()), ErrIdentityMissing)
	assert.Zero(t, db.calls)
	assert.Len(t, s.Log().Pending(), 3)
}

func TestClose_DuringEvaluationAbandonsResults(t *testing.T) {
	f := newFixture(t, 2)
	f.answer(t, "block", "block", "score:4")

	done := make(chan error, 1)
	go func() { done <- f.s.Submit(context.Background()) }()

	require.Eventually(t, func() bool { return f.s.Phase() == Evaluating }, time.Second, time.Millisecond)
	require.NoError(t, f.s.Close(context.Background()))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrSessionClosed)
	case <-time.After(time.Second):
		t.Fatal("submit did not return after close")
	}
	assert.Zero(t, f.s.Log().Len())
	assert.Equal(t, Closed, f.s.Phase())
}

func TestContinue_GenerationRunsWithoutLock(t *testing.T) {
	gen := newGatedGenerator(2)
	db := &memPersister{}
	s, err := New(Config{Concept: "Sunk cost fallacy", DepthTarget: 3, Keys: testKeys()},
		Deps{Generator: gen, Evaluator: &scoreEvaluator{}, Persister: db})
	require.NoError(t, err)
	require.NoError(t, s.Load(context.Background()))
	for i := range 3 {
		require.NoError(t, s.SetAnswer(i, "score:4"))
	}
	require.NoError(t, s.Submit(context.Background()))

	type result struct {
		p   Progress
		err error
	}
	done := make(chan result, 1)
	go func() {
		p, err := s.Continue(context.Background())
		done <- result{p, err}
	}()

	select {
	case <-gen.entered:
	case <-time.After(time.Second):
		t.Fatal("level 2 generation never started")
	}

	snap := within(t, time.Second, s.Snapshot)
	assert.Equal(t, Advancing, snap.Phase)
	assert.Equal(t, 2, snap.Level)
	assert.Empty(t, snap.Questions)
	assert.Empty(t, snap.Outcome)
	assert.Len(t, db.saved, 3, "the passed level is flushed before the next batch is generated")
	assert.ErrorIs(t, s.SetAnswer(0, "early"), ErrWrongPhase)

	require.NoError(t, within(t, time.Second, func() error { return s.Close(context.Background()) }))
	close(gen.release)

	res := <-done
	assert.ErrorIs(t, res.err, ErrSessionClosed)
	assert.Equal(t, Closed, res.p.Phase)
	assert.Equal(t, Closed, s.Phase())
	assert.Empty(t, s.Snapshot().Questions, "a batch generated after close is discarded")
}

func TestLoad_GenerationRunsWithoutLock(t *testing.T) {
	gen := newGatedGenerator(1)
	s, err := New(Config{Concept: "Anchoring", DepthTarget: 1}, Deps{Generator: gen, Evaluator: &scoreEvaluator{}})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Load(context.Background()) }()
	<-gen.entered

	assert.Equal(t, Advancing, within(t, time.Second, s.Phase))
	close(gen.release)
	require.NoError(t, <-done)

	snap := s.Snapshot()
	assert.Equal(t, AwaitingAnswers, snap.Phase)
	assert.Equal(t, []string{"L1 Q1", "L1 Q2", "L1 Q3"}, snap.Questions)
}

func TestLoad_WrongBatchSizeFallsBackToTemplates(t *testing.T) {
	for _, size := range []int{1, 2, 4} {
		gen := &fakeGenerator{size: size}
		s, err := New(Config{Concept: "Loss aversion", DepthTarget: 2}, Deps{Generator: gen, Evaluator: &scoreEvaluator{}})
		require.NoError(t, err)
		require.NoError(t, s.Load(context.Background()))

		snap := s.Snapshot()
		assert.Equal(t, questiongen.Fallback("Loss aversion", 1), snap.Questions, "size %d", size)
		assert.Equal(t, questiongen.SourceFallback, snap.Source, "size %d", size)
		assert.Len(t, snap.Answers, questiongen.BatchSize, "size %d", size)
	}
}
