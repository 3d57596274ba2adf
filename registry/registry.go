// Package registry keeps the live sessions of the HTTP shell in memory,
// keyed by a generated id.
package registry

import (
	"sync"

	"github.com/google/uuid"

	"rpgchat/models"
	"rpgchat/session"
)

// Factory builds a fresh session for mode.
type Factory func(mode models.Mode) *session.Session

// Registry maps session ids to sessions.
type Registry struct {
	factory Factory

	mu       sync.Mutex
	sessions map[string]*session.Session
}

func New(factory Factory) *Registry {
	return &Registry{
		factory:  factory,
		sessions: make(map[string]*session.Session),
	}
}

// Spawn creates and registers a session, returning its id.
func (r *Registry) Spawn(mode models.Mode) (string, *session.Session) {
	id := "session-" + uuid.NewString()
	s := r.factory(mode)

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	return id, s
}

func (r *Registry) Get(id string) (*session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Delete closes and forgets the session. It reports whether it existed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		s.Close()
	}
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close closes every session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*session.Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
