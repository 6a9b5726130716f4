package practice

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abhisek/deepread/internal/questiongen"
	"github.com/abhisek/deepread/internal/rubric"
	"github.com/abhisek/deepread/internal/store"
)

const (
	testUser    = "6f1c2f0e-8d57-4c59-9a53-2d3a7a4f9b10"
	testBook    = "0b6c5b0e-3f1e-4b8e-a2a4-5f2d7f3e9c21"
	testInsight = "c2d7e4a1-9b0f-4e6a-8c35-71f2b9d0a432"
)

func testKeys() Keys {
	return Keys{UserID: testUser, BookID: testBook, InsightID: testInsight}
}

// fakeGenerator returns "L<level> Q<n>" questions, size of them when set.
type fakeGenerator struct {
	mu     sync.Mutex
	levels []int
	err    error
	size   int
}

func (g *fakeGenerator) Generate(_ context.Context, in questiongen.Input) (*questiongen.Batch, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.levels = append(g.levels, in.Level)
	if g.err != nil {
		return nil, g.err
	}
	n := questiongen.BatchSize
	if g.size > 0 {
		n = g.size
	}
	qs := make([]string, n)
	for i := range qs {
		qs[i] = fmt.Sprintf("L%d Q%d", in.Level, i+1)
	}
	return &questiongen.Batch{Questions: qs, Source: questiongen.SourceLLM}, nil
}

// gatedGenerator holds generation of one level until release is closed.
type gatedGenerator struct {
	fakeGenerator
	level   int
	entered chan struct{}
	release chan struct{}
}

func newGatedGenerator(level int) *gatedGenerator {
	return &gatedGenerator{level: level, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedGenerator) Generate(ctx context.Context, in questiongen.Input) (*questiongen.Batch, error) {
	if in.Level == g.level {
		close(g.entered)
		<-g.release
	}
	return g.fakeGenerator.Generate(ctx, in)
}

// scoreEvaluator reads the simplified score from the answer text, e.g.
// "score:4". The answer "fail" returns an error, and "block" waits for
// the context to end.
type scoreEvaluator struct {
	mu    sync.Mutex
	calls int
	delay func(answer string) time.Duration
}

func (e *scoreEvaluator) Evaluate(ctx context.Context, answer, _ string, _ int) (*rubric.Result, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if e.delay != nil {
		time.Sleep(e.delay(answer))
	}
	switch {
	case answer == "fail":
		return nil, fmt.Errorf("%w: scorer down", rubric.ErrEvaluationUnavailable)
	case answer == "block":
		<-ctx.Done()
		return nil, ctx.Err()
	}

	score, err := strconv.ParseFloat(strings.TrimPrefix(answer, "score:"), 64)
	if err != nil {
		return nil, err
	}
	return &rubric.Result{
		Factors:         map[string]float64{"clarity": score * 2},
		EvalScore:       score / 5,
		SimplifiedScore: score,
		Explanation:     "ok",
	}, nil
}

func (e *scoreEvaluator) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// memPersister records saved rows and rejects questions containing
// "reject".
type memPersister struct {
	mu    sync.Mutex
	saved []store.PracticeRecord
	calls int
}

func (p *memPersister) SavePractice(_ context.Context, rec store.PracticeRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if strings.Contains(rec.ResponseText, "reject") {
		return errors.New("row level security violation")
	}
	p.saved = append(p.saved, rec)
	return nil
}

// gatedPersister holds its first save until release is closed.
type gatedPersister struct {
	memPersister
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedPersister() *gatedPersister {
	return &gatedPersister{entered: make(chan struct{}), release: make(chan struct{})}
}

func (p *gatedPersister) SavePractice(ctx context.Context, rec store.PracticeRecord) error {
	p.once.Do(func() {
		close(p.entered)
		<-p.release
	})
	return p.memPersister.SavePractice(ctx, rec)
}

// within fails the test when fn does not return in time.
func within[T any](t *testing.T, d time.Duration, fn func() T) T {
	t.Helper()
	ch := make(chan T, 1)
	go func() { ch <- fn() }()
	select {
	case v := <-ch:
		return v
	case <-time.After(d):
		t.Fatalf("call blocked for more than %s", d)
		var zero T
		return zero
	}
}
