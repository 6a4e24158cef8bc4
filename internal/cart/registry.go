package cart

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-kasir/internal/obs"
)

// Registry holds the live sessions of this terminal process. Sessions share
// no mutable state with each other; the registry only guards its own map.
type Registry struct {
	TaxBps      int32
	Now         func() time.Time
	OnRecompute func(uuid.UUID, View)
	// OnOpen and OnClose observe session lifecycle. OnClose receives the
	// last committed view of the removed session.
	OnOpen  func(uuid.UUID, View)
	OnClose func(uuid.UUID, View)

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewRegistry constructs an empty registry with the configured tax rate.
func NewRegistry(taxBps int32) *Registry {
	return &Registry{TaxBps: taxBps, sessions: make(map[uuid.UUID]*Session)}
}

// Create opens a new session and registers it.
func (r *Registry) Create() *Session {
	id := uuid.New()
	s := NewSession(id, r.TaxBps)
	s.Now = r.Now
	if r.OnRecompute != nil {
		s.OnRecompute = func(v View) { r.OnRecompute(id, v) }
	}
	r.mu.Lock()
	r.sessions[id] = s
	open := len(r.sessions)
	r.mu.Unlock()
	if obs.SessionsOpen != nil {
		obs.SessionsOpen.Set(float64(open))
	}
	if r.OnOpen != nil {
		r.OnOpen(id, s.Current())
	}
	return s
}

// Get returns the session for the given id.
func (r *Registry) Get(id uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	return s, ok
}

// Delete drops a session from the registry.
func (r *Registry) Delete(id uuid.UUID) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	open := len(r.sessions)
	r.mu.Unlock()
	if obs.SessionsOpen != nil {
		obs.SessionsOpen.Set(float64(open))
	}
	if ok && r.OnClose != nil {
		r.OnClose(id, s.Current())
	}
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
