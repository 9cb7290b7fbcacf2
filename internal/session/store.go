// Package session keeps per-session pipeline artifacts behind an injectable Store.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/segmenta/internal/apperr"
)

// DefaultTTL is how long an idle session survives.
const DefaultTTL = 60 * time.Minute

// Store maps session ids to slots.
type Store interface {
	// Get returns an existing slot or ErrNotFound.
	Get(id string) (*Slot, error)
	// Open returns the slot for id, creating it when absent. An empty id gets a
	// fresh one.
	Open(id string) *Slot
	// Clear resets the slot's state but keeps the session.
	Clear(id string) error
	// Delete removes the session.
	Delete(id string)
}

// Slot is one session. Callers hold the slot for the duration of a stage with Do,
// so requests on the same session run one at a time.
type Slot struct {
	id string

	mu    sync.Mutex
	state State

	touchMu sync.Mutex
	touched time.Time
}

// ID returns the session id.
func (s *Slot) ID() string { return s.id }

// Do runs fn with exclusive access to the slot's state.
func (s *Slot) Do(fn func(*State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.state)
}

func (s *Slot) touch(now time.Time) {
	s.touchMu.Lock()
	s.touched = now
	s.touchMu.Unlock()
}

func (s *Slot) idleSince() time.Time {
	s.touchMu.Lock()
	defer s.touchMu.Unlock()
	return s.touched
}

// Memory is an in-process Store with lazy expiry of idle sessions.
type Memory struct {
	mu    sync.RWMutex
	slots map[string]*Slot
	ttl   time.Duration
	now   func() time.Time
	log   *slog.Logger

	lastSweep time.Time
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption { return func(m *Memory) { m.now = now } }

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) MemoryOption {
	return func(m *Memory) {
		if l != nil {
			m.log = l
		}
	}
}

// NewMemory returns an empty store. ttl <= 0 disables expiry.
func NewMemory(ttl time.Duration, opts ...MemoryOption) *Memory {
	m := &Memory{
		slots: map[string]*Slot{},
		ttl:   ttl,
		now:   time.Now,
		log:   slog.Default().With("component", "session"),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Memory) Get(id string) (*Slot, error) {
	m.sweep()
	m.mu.RLock()
	s, ok := m.slots[id]
	m.mu.RUnlock()
	if !ok {
		return nil, apperr.New(apperr.ErrNotFound, "session", "unknown session %q", id)
	}
	s.touch(m.now())
	return s, nil
}

func (m *Memory) Open(id string) *Slot {
	m.sweep()
	if id == "" {
		id = uuid.NewString()
	}
	m.mu.Lock()
	s, ok := m.slots[id]
	if !ok {
		s = m.create(id)
	}
	m.mu.Unlock()
	s.touch(m.now())
	return s
}

func (m *Memory) Clear(id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	return s.Do(func(st *State) error {
		st.Reset()
		return nil
	})
}

func (m *Memory) Delete(id string) {
	m.mu.Lock()
	delete(m.slots, id)
	m.mu.Unlock()
}

// Len returns the number of live sessions.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.slots)
}

// create registers a new slot. The caller holds m.mu; the slot counts as touched
// from creation so a concurrent sweep cannot expire it before Open returns.
func (m *Memory) create(id string) *Slot {
	s := &Slot{id: id, touched: m.now()}
	m.slots[id] = s
	m.log.Debug("session created", "session", id)
	return s
}

// sweep drops idle sessions, at most once per ttl/4.
func (m *Memory) sweep() {
	if m.ttl <= 0 {
		return
	}
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if now.Sub(m.lastSweep) < m.ttl/4 {
		return
	}
	m.lastSweep = now
	for id, s := range m.slots {
		if now.Sub(s.idleSince()) > m.ttl {
			delete(m.slots, id)
			m.log.Debug("session expired", "session", id)
		}
	}
}
