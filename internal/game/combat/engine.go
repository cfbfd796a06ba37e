package combat

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// SnapshotStore persists session-scoped combat state so a session can be
// restored after a reload.
type SnapshotStore interface {
	Save(ctx context.Context, sessionID string, s *State) error
	// Load returns ErrSnapshotNotFound when no snapshot exists.
	Load(ctx context.Context, sessionID string) (*State, error)
	Delete(ctx context.Context, sessionID string) error
}

// Engine manages one Session per player session, keyed by session ID.
// All methods are safe for concurrent use.
type Engine struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	deps      Deps
	snapshots SnapshotStore
}

// NewEngine creates an empty Engine. snapshots may be nil.
//
// Postcondition: Returns a non-nil Engine ready for use.
func NewEngine(deps Deps, snapshots SnapshotStore) *Engine {
	return &Engine{sessions: make(map[string]*Session), deps: deps, snapshots: snapshots}
}

// StartCombat begins a combat for sessionID in area.
//
// Precondition: sessionID must be non-empty.
// Postcondition: Returns ErrCombatExists if the session already has an ongoing combat.
func (e *Engine) StartCombat(ctx context.Context, sessionID, area string) (*State, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("starting combat: empty session id")
	}
	sess, err := e.Session(ctx, sessionID)
	if errors.Is(err, ErrNoCombat) {
		sess = e.getOrCreate(sessionID)
	} else if err != nil {
		return nil, err
	}
	return sess.StartCombat(ctx, area)
}

// Session returns the session for sessionID, restoring it from the snapshot
// store when it is not in memory.
//
// Postcondition: Returns ErrNoCombat when neither memory nor the snapshot
// store knows sessionID.
func (e *Engine) Session(ctx context.Context, sessionID string) (*Session, error) {
	e.mu.RLock()
	sess, ok := e.sessions[sessionID]
	e.mu.RUnlock()
	if ok {
		return sess, nil
	}
	if e.snapshots == nil {
		return nil, fmt.Errorf("session %q: %w", sessionID, ErrNoCombat)
	}
	st, err := e.snapshots.Load(ctx, sessionID)
	if errors.Is(err, ErrSnapshotNotFound) {
		return nil, fmt.Errorf("session %q: %w", sessionID, ErrNoCombat)
	}
	if err != nil {
		return nil, fmt.Errorf("restoring session %q: %w", sessionID, err)
	}
	return e.adopt(sessionID, st), nil
}

// EndCombat resets and forgets the session for sessionID.
func (e *Engine) EndCombat(ctx context.Context, sessionID string) {
	e.mu.Lock()
	sess, ok := e.sessions[sessionID]
	delete(e.sessions, sessionID)
	e.mu.Unlock()
	if ok {
		sess.Reset(ctx)
		return
	}
	if e.snapshots != nil {
		if err := e.snapshots.Delete(ctx, sessionID); err != nil {
			e.logger().Warn("deleting combat snapshot", zap.String("session", sessionID), zap.Error(err))
		}
	}
}

// ActiveSessions returns the number of sessions held in memory.
func (e *Engine) ActiveSessions() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.sessions)
}

func (e *Engine) getOrCreate(sessionID string) *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	if sess, ok := e.sessions[sessionID]; ok {
		return sess
	}
	sess := newSession(sessionID, e.deps, e.snapshots)
	e.sessions[sessionID] = sess
	return sess
}

// adopt installs a session restored from st unless another caller already
// holds one for sessionID, in which case the existing session wins.
func (e *Engine) adopt(sessionID string, st *State) *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	if sess, ok := e.sessions[sessionID]; ok {
		return sess
	}
	sess := newSession(sessionID, e.deps, e.snapshots)
	sess.state = st.Clone()
	e.sessions[sessionID] = sess
	return sess
}

func (e *Engine) logger() *zap.Logger {
	if e.deps.Logger == nil {
		return zap.NewNop()
	}
	return e.deps.Logger
}

// MemorySnapshots is an in-process SnapshotStore. It is safe for concurrent use.
type MemorySnapshots struct {
	mu    sync.Mutex
	items map[string]*State
}

// NewMemorySnapshots creates an empty MemorySnapshots.
func NewMemorySnapshots() *MemorySnapshots {
	return &MemorySnapshots{items: make(map[string]*State)}
}

// Save implements SnapshotStore.
func (m *MemorySnapshots) Save(_ context.Context, sessionID string, s *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[sessionID] = s.Clone()
	return nil
}

// Load implements SnapshotStore.
func (m *MemorySnapshots) Load(_ context.Context, sessionID string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.items[sessionID]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return s.Clone(), nil
}

// Delete implements SnapshotStore.
func (m *MemorySnapshots) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, sessionID)
	return nil
}
