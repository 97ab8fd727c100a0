// Package session tracks which monitoring subscriptions are open for the
// currently selected target and guarantees exactly-once teardown on target
// change and shutdown.
package session

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"ddspy/internal/bus"
	"ddspy/internal/monitor"
)

// Kind distinguishes the two per-target session slots.
type Kind int

const (
	KindLog Kind = iota
	KindState
)

func (k Kind) String() string {
	if k == KindState {
		return "state"
	}
	return "log"
}

// Manager owns at most one live session per kind, all bound to one selected
// target at a time.
type Manager struct {
	mu       sync.Mutex
	target   bus.Identity
	sessions map[Kind]*monitor.Session
	log      *zap.Logger
}

// NewManager returns an empty manager.
func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{sessions: make(map[Kind]*monitor.Session), log: log}
}

// Open installs a new session of the given kind for target. Selecting a
// different target first tears down every session of the previous target;
// an existing session of the same kind is torn down before open runs, so
// the old resources are never left behind a replacement.
func (m *Manager) Open(kind Kind, target bus.Identity, open func() (*monitor.Session, error)) (*monitor.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.target != target {
		m.closeAllLocked()
		m.target = target
	}
	if prev := m.sessions[kind]; prev != nil {
		if err := prev.Close(); err != nil {
			m.log.Warn("closing previous session", zap.Stringer("kind", kind), zap.Error(err))
		}
		delete(m.sessions, kind)
	}

	s, err := open()
	if err != nil {
		return nil, err
	}
	m.sessions[kind] = s
	return s, nil
}

// Get returns the live session of the given kind, if any.
func (m *Manager) Get(kind Kind) (*monitor.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[kind]
	return s, ok
}

// Target returns the currently selected target identity.
func (m *Manager) Target() bus.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.target
}

// Close tears down the session of one kind, keeping the target selection.
func (m *Manager) Close(kind Kind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[kind]
	if s == nil {
		return nil
	}
	delete(m.sessions, kind)
	return s.Close()
}

// CloseAll tears down every live session; used on view close and shutdown.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeAllLocked()
}

func (m *Manager) closeAllLocked() error {
	var errs []error
	for kind, s := range m.sessions {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(m.sessions, kind)
	}
	return errors.Join(errs...)
}
