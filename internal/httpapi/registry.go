package httpapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/abhisek/deepread/internal/practice"
)

// ErrSessionNotFound is returned for unknown ids and for sessions owned by
// another user.
var ErrSessionNotFound = errors.New("practice session not found")

// Registry holds the live practice sessions of all users.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*registered
	idle     time.Duration
	now      func() time.Time
	log      *zap.Logger
	sched    *gocron.Scheduler
}

type registered struct {
	owner   string
	session *practice.Session
}

// NewRegistry returns an empty registry that considers sessions idle after
// idle without a change.
func NewRegistry(idle time.Duration, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		sessions: make(map[string]*registered),
		idle:     idle,
		now:      time.Now,
		log:      log,
	}
}

// Add registers s for owner.
func (r *Registry) Add(owner string, s *practice.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID()] = &registered{owner: owner, session: s}
}

// Get returns owner's session id.
func (r *Registry) Get(owner, id string) (*practice.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok || e.owner != owner {
		return nil, ErrSessionNotFound
	}
	return e.session, nil
}

// List returns owner's sessions, most recently updated first.
func (r *Registry) List(owner string) []*practice.Session {
	r.mu.Lock()
	var out []*practice.Session
	for _, e := range r.sessions {
		if e.owner == owner {
			out = append(out, e.session)
		}
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt().After(out[j].UpdatedAt())
	})
	return out
}

// Remove unregisters owner's session id and returns it.
func (r *Registry) Remove(owner, id string) (*practice.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok || e.owner != owner {
		return nil, ErrSessionNotFound
	}
	delete(r.sessions, id)
	return e.session, nil
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes and unregisters sessions idle for at least the idle
// timeout. It returns how many were removed. Sessions are inspected and
// closed outside the registry lock.
func (r *Registry) Sweep(ctx context.Context) int {
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	all := make(map[string]*registered, len(r.sessions))
	for id, e := range r.sessions {
		all[id] = e
	}
	r.mu.Unlock()

	idle := make(map[string]*registered)
	for id, e := range all {
		if !e.session.UpdatedAt().After(cutoff) {
			idle[id] = e
		}
	}
	if len(idle) == 0 {
		return 0
	}

	var stale []*registered
	r.mu.Lock()
	for id, e := range idle {
		if r.sessions[id] == e {
			stale = append(stale, e)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, e := range stale {
		if err := e.session.Close(ctx); err != nil {
			r.log.Warn("idle practice session closed with unsaved responses",
				zap.String("session", e.session.ID()), zap.Error(err))
			continue
		}
		r.log.Debug("idle practice session closed", zap.String("session", e.session.ID()))
	}
	return len(stale)
}

// StartSweeper runs Sweep every interval until Shutdown.
func (r *Registry) StartSweeper(interval time.Duration) error {
	s := gocron.NewScheduler(time.UTC)
	_, err := s.Every(interval).WaitForSchedule().SingletonMode().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if n := r.Sweep(ctx); n > 0 {
			r.log.Info("swept idle practice sessions", zap.Int("closed", n))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule session sweep: %w", err)
	}
	s.StartAsync()

	r.mu.Lock()
	r.sched = s
	r.mu.Unlock()
	return nil
}

// Shutdown stops the sweeper and closes every session, returning the
// joined flush errors.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	sched := r.sched
	r.sched = nil
	all := make([]*registered, 0, len(r.sessions))
	for id, e := range r.sessions {
		all = append(all, e)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if sched != nil {
		sched.Stop()
	}
	var errs []error
	for _, e := range all {
		if err := e.session.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", e.session.ID(), err))
		}
	}
	return errors.Join(errs...)
}
