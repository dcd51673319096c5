package session

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"wasteboz/api/internal/ewc"
)

// Manager maps a session key (HTTP session id, chat id) to its Controller.
// Sessions live in memory only.
type Manager struct {
	cls   ewc.Classifier
	log   *logrus.Entry
	limit rate.Limit
	burst int
	now   func() time.Time

	m sync.Map // key -> *entry
}

type entry struct {
	ctrl    *Controller
	limiter *rate.Limiter

	mu       sync.Mutex
	lastSeen int64 // unix nanos
	evicted  bool  // dropped by Sweep; never handed out again
}

type ManagerOption func(*Manager)

// WithRatePerMinute caps classification calls per session. Zero disables it.
func WithRatePerMinute(n int) ManagerOption {
	return func(m *Manager) {
		if n <= 0 {
			m.limit = rate.Inf
			return
		}
		m.limit = rate.Limit(float64(n) / 60)
		m.burst = max(1, n/4)
	}
}

func WithManagerLogger(l *logrus.Entry) ManagerOption { return func(m *Manager) { m.log = l } }

func NewManager(cls ewc.Classifier, opts ...ManagerOption) *Manager {
	m := &Manager{
		cls:   cls,
		log:   logrus.WithField("component", "session"),
		limit: rate.Inf,
		burst: 1,
		now:   time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Get returns the session for key, creating it on first use.
func (m *Manager) Get(key string) *Controller {
	return m.load(key).ctrl
}

// Allow reports whether key may start another classification now.
func (m *Manager) Allow(key string) bool {
	return m.load(key).limiter.Allow()
}

// Drop forgets a session, abandoning any call in flight.
func (m *Manager) Drop(key string) {
	if v, ok := m.m.LoadAndDelete(key); ok {
		e := v.(*entry)
		e.mu.Lock()
		e.evicted = true
		e.mu.Unlock()
		e.ctrl.Reset()
	}
}

// Len counts live sessions.
func (m *Manager) Len() int {
	n := 0
	m.m.Range(func(_, _ any) bool { n++; return true })
	return n
}

// Sweep drops sessions unused for longer than idle. Loading sessions are kept.
func (m *Manager) Sweep(idle time.Duration) int {
	cutoff := m.now().Add(-idle).UnixNano()
	n := 0
	m.m.Range(func(k, v any) bool {
		e := v.(*entry)
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.evicted || e.lastSeen >= cutoff || e.ctrl.Snapshot().IsLoading {
			return true
		}
		e.evicted = true
		if m.m.CompareAndDelete(k, v) {
			n++
		}
		return true
	})
	if n > 0 {
		m.log.WithField("dropped", n).Debug("session: swept idle sessions")
	}
	return n
}

// RunSweeper sweeps every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, every, idle time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			m.Sweep(idle)
		}
	}
}

// load returns the live entry for key and marks it used. The touch happens
// under the entry lock, so Sweep either sees it or has already evicted the
// entry, in which case a fresh one is created.
func (m *Manager) load(key string) *entry {
	for {
		v, ok := m.m.Load(key)
		if !ok {
			fresh := &entry{
				ctrl:    NewController(m.cls, m.log.WithField("session", key)),
				limiter: rate.NewLimiter(m.limit, m.burst),
			}
			v, _ = m.m.LoadOrStore(key, fresh)
		}
		e := v.(*entry)
		e.mu.Lock()
		if !e.evicted {
			e.lastSeen = m.now().UnixNano()
			e.mu.Unlock()
			return e
		}
		e.mu.Unlock()
		m.m.CompareAndDelete(key, e)
	}
}
