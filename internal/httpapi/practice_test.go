package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/deepread/internal/practice"
	"github.com/abhisek/deepread/internal/questiongen"
)

type sessionBody struct {
	Session struct {
		ID        string   `json:"id"`
		Phase     string   `json:"phase"`
		Level     int      `json:"level"`
		Attempt   int      `json:"attempt"`
		Questions []string `json:"questions"`
		Answers   []string `json:"answers"`
		Pending   int      `json:"pending"`
		Outcome   []struct {
			Passed bool   `json:"passed"`
			Label  string `json:"label"`
		} `json:"outcome"`
	} `json:"session"`
	Warning string `json:"warning"`
}

func (f *fixture) start(t *testing.T, target int) sessionBody {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/practice", f.token, map[string]any{
		"concept":      "Anchoring",
		"depth_target": target,
		"book_title":   "Thinking, Fast and Slow",
		"book_id":      uuid.NewString(),
		"insight_id":   uuid.NewString(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[sessionBody](t, rec)
}

func (f *fixture) answerAll(t *testing.T, id string, answers ...string) {
	t.Helper()
	for i, a := range answers {
		rec := f.do(t, http.MethodPut, fmt.Sprintf("/practice/%s/answers/%d", id, i), f.token, map[string]string{"answer": a})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
}

func TestPractice_RequiresToken(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/practice", "", map[string]any{"concept": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/practice", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPractice_CreateValidation(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing ids", map[string]any{"concept": "Anchoring", "depth_target": 2}},
		{"malformed book id", map[string]any{"concept": "Anchoring", "depth_target": 2, "book_id": "b", "insight_id": uuid.NewString()}},
		{"target out of range", map[string]any{"concept": "Anchoring", "depth_target": 7, "book_id": uuid.NewString(), "insight_id": uuid.NewString()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/practice", f.token, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
	assert.Zero(t, f.sessions.Len())
}

func TestPractice_FullProgression(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, 2).Session
	assert.Equal(t, "awaiting_answers", s.Phase)
	assert.Equal(t, 1, s.Level)
	require.Len(t, s.Questions, 3)

	// Level 1: one failure, retry.
	f.answerAll(t, s.ID, "score:4", "score:2", "score:5")
	rec := f.do(t, http.MethodPost, "/practice/"+s.ID+"/submit", f.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[sessionBody](t, rec)
	assert.Equal(t, "showing_results", got.Session.Phase)
	require.Len(t, got.Session.Outcome, 3)
	assert.False(t, got.Session.Outcome[1].Passed)
	assert.Equal(t, "Needs Improvement", got.Session.Outcome[1].Label)

	rec = f.do(t, http.MethodPost, "/practice/"+s.ID+"/continue", f.token, nil)
	got = decodeBody[sessionBody](t, rec)
	assert.Equal(t, "retrying", got.Session.Phase)
	assert.Equal(t, 2, got.Session.Attempt)
	assert.Equal(t, []string{"score:4", "score:2", "score:5"}, got.Session.Answers)

	// Level 1 retry passes and advances.
	f.answerAll(t, s.ID, "score:4", "score:3", "score:5")
	f.do(t, http.MethodPost, "/practice/"+s.ID+"/submit", f.token, nil)
	rec = f.do(t, http.MethodPost, "/practice/"+s.ID+"/continue", f.token, nil)
	got = decodeBody[sessionBody](t, rec)
	assert.Equal(t, "awaiting_answers", got.Session.Phase)
	assert.Equal(t, 2, got.Session.Level)
	assert.Empty(t, got.Warning)
	assert.Equal(t, 6, f.persister.count(), "both level 1 attempts flushed on pass")

	// Level 2 passes at the target.
	f.answerAll(t, s.ID, "score:3", "score:3", "score:3")
	f.do(t, http.MethodPost, "/practice/"+s.ID+"/submit", f.token, nil)
	rec = f.do(t, http.MethodPost, "/practice/"+s.ID+"/continue", f.token, nil)
	got = decodeBody[sessionBody](t, rec)
	assert.Equal(t, "completed", got.Session.Phase)
	assert.Equal(t, 9, f.persister.count())

	rec = f.do(t, http.MethodDelete, "/practice/"+s.ID, f.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "closed", decodeBody[sessionBody](t, rec).Session.Phase)
	assert.Zero(t, f.sessions.Len())

	rec = f.do(t, http.MethodGet, "/practice/"+s.ID, f.token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPractice_SubmitIncomplete(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, 1).Session
	f.answerAll(t, s.ID, "score:4")

	rec := f.do(t, http.MethodPost, "/practice/"+s.ID+"/submit", f.token, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"error":"2 questions are unanswered","unanswered":2,"indices":[1,2]}`, rec.Body.String())
}

func TestPractice_PhaseConflicts(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, 1).Session

	rec := f.do(t, http.MethodPost, "/practice/"+s.ID+"/continue", f.token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPut, "/practice/"+s.ID+"/answers/5", f.token, map[string]string{"answer": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPractice_CloseFlushesPending(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, 3).Session
	f.answerAll(t, s.ID, "score:1", "score:1", "score:1")
	f.do(t, http.MethodPost, "/practice/"+s.ID+"/submit", f.token, nil)
	assert.Zero(t, f.persister.count())

	rec := f.do(t, http.MethodDelete, "/practice/"+s.ID, f.token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, f.persister.count())
}

func TestPractice_OtherUsersSessionsAreHidden(t *testing.T) {
	f := newFixture(t)
	s := f.start(t, 1).Session

	other, err := f.verifier.Sign(uuid.NewString(), "", time.Hour)
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/practice/"+s.ID, other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodDelete, "/practice/"+s.ID, other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/practice", other, nil)
	assert.JSONEq(t, `{"sessions":[]}`, rec.Body.String())
	rec = f.do(t, http.MethodGet, "/practice", f.token, nil)
	assert.Contains(t, rec.Body.String(), s.ID)
}

func TestRegistry_Sweep(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	r := NewRegistry(30*time.Minute, nil)
	r.now = clock

	newSession := func() *practice.Session {
		s, err := practice.New(practice.Config{Concept: "Anchoring", DepthTarget: 2}, practice.Deps{
			Generator: fakeGenerator{},
			Evaluator: scoreEvaluator{},
			Now:       clock,
		})
		require.NoError(t, err)
		require.NoError(t, s.Load(context.Background()))
		return s
	}

	idle := newSession()
	r.Add("u1", idle)
	now = now.Add(20 * time.Minute)
	active := newSession()
	r.Add("u1", active)

	now = now.Add(10 * time.Minute)
	assert.Equal(t, 1, r.Sweep(context.Background()))
	assert.Equal(t, practice.Closed, idle.Phase())
	assert.Equal(t, practice.AwaitingAnswers, active.Phase())

	_, err := r.Get("u1", idle.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = r.Get("u1", active.ID())
	assert.NoError(t, err)

	require.NoError(t, r.Shutdown(context.Background()))
	assert.Equal(t, practice.Closed, active.Phase())
	assert.Zero(t, r.Len())
}

func TestRegistry_SweeperLifecycle(t *testing.T) {
	r := NewRegistry(time.Minute, nil)
	require.NoError(t, r.StartSweeper(time.Hour))
	assert.NoError(t, r.Shutdown(context.Background()))
}

// gatedGenerator holds generation of one level until release is closed.
type gatedGenerator struct {
	level   int
	entered chan struct{}
	release chan struct{}
}

func (g *gatedGenerator) Generate(ctx context.Context, in questiongen.Input) (*questiongen.Batch, error) {
	if in.Level == g.level {
		close(g.entered)
		<-g.release
	}
	return fakeGenerator{}.Generate(ctx, in)
}

func TestRegistry_BusySessionDoesNotBlockOtherUsers(t *testing.T) {
	gen := &gatedGenerator{level: 2, entered: make(chan struct{}), release: make(chan struct{})}
	r := NewRegistry(30*time.Minute, nil)

	busy, err := practice.New(practice.Config{Concept: "Anchoring", DepthTarget: 3},
		practice.Deps{Generator: gen, Evaluator: scoreEvaluator{}})
	require.NoError(t, err)
	require.NoError(t, busy.Load(context.Background()))
	for i := range questiongen.BatchSize {
		require.NoError(t, busy.SetAnswer(i, "score:4"))
	}
	require.NoError(t, busy.Submit(context.Background()))
	r.Add("u1", busy)

	other, err := practice.New(practice.Config{Concept: "Framing", DepthTarget: 1},
		practice.Deps{Generator: fakeGenerator{}, Evaluator: scoreEvaluator{}})
	require.NoError(t, err)
	r.Add("u2", other)

	continued := make(chan error, 1)
	go func() {
		_, err := busy.Continue(context.Background())
		continued <- err
	}()
	<-gen.entered

	swept := make(chan int, 1)
	go func() { swept <- r.Sweep(context.Background()) }()

	got := make(chan error, 1)
	go func() {
		_, err := r.Get("u2", other.ID())
		got <- err
	}()
	select {
	case err := <-got:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Get for another user blocked while a session was generating questions")
	}
	select {
	case n := <-swept:
		assert.Zero(t, n)
	case <-time.After(time.Second):
		t.Fatal("Sweep blocked on a session generating questions")
	}

	close(gen.release)
	require.NoError(t, <-continued)
	assert.Equal(t, practice.AwaitingAnswers, busy.Phase())
	assert.Equal(t, 2, r.Len())
}
