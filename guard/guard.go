// Package guard provides process-local single-flight guards keyed by resource
// identity. A busy key is never waited on by the ensure flows: callers that
// lose the race get false (or a conflict error) and are expected to no-op.
package guard

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	apperrors "rpgchat/errors"
)

type slot struct {
	sem  *semaphore.Weighted
	refs int // holder plus waiters
	held bool
}

// Guard tracks which resource keys currently have an attempt in flight.
type Guard struct {
	mu    sync.Mutex
	slots map[string]*slot
}

// New returns an empty guard.
func New() *Guard {
	return &Guard{slots: make(map[string]*slot)}
}

func (g *Guard) ref(key string) *slot {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.slots[key]
	if !ok {
		s = &slot{sem: semaphore.NewWeighted(1)}
		g.slots[key] = s
	}
	s.refs++
	return s
}

func (g *Guard) unref(key string, s *slot) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(g.slots, key)
	}
}

// release returns the func that frees key for the current holder. Calling
// it more than once is a no-op.
func (g *Guard) release(key string, s *slot) func() {
	g.mu.Lock()
	s.held = true
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			s.held = false
			g.mu.Unlock()
			s.sem.Release(1)
			g.unref(key, s)
		})
	}
}

// TryAcquire marks key busy and returns the func that frees it, or returns
// false if another holder already has it. Only the holder can release a key.
func (g *Guard) TryAcquire(key string) (release func(), ok bool) {
	s := g.ref(key)
	if !s.sem.TryAcquire(1) {
		g.unref(key, s)
		return nil, false
	}
	return g.release(key, s), true
}

// Acquire waits until key is free or ctx is done.
func (g *Guard) Acquire(ctx context.Context, key string) (release func(), err error) {
	s := g.ref(key)
	if err := s.sem.Acquire(ctx, 1); err != nil {
		g.unref(key, s)
		return nil, err
	}
	return g.release(key, s), nil
}

// Busy reports whether key is currently held.
func (g *Guard) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.slots[key]
	return ok && s.held
}

// Do runs fn while holding key and always releases it, even if fn panics.
// A busy key returns a conflict error without calling fn.
func (g *Guard) Do(key string, fn func() error) error {
	release, ok := g.TryAcquire(key)
	if !ok {
		return apperrors.WithMetadata(apperrors.CodeConflict, "already in progress", map[string]string{"key": key})
	}
	defer release()
	return fn()
}

// DoWait is Do for work that must not be skipped: it waits for the current
// holder instead of failing.
func (g *Guard) DoWait(ctx context.Context, key string, fn func() error) error {
	release, err := g.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// AdventureKey identifies the ensure-adventure flow of a conversation.
func AdventureKey(conversationID string) string {
	return "adventure/" + conversationID
}

// CharacterKey identifies the ensure-character flow of a conversation.
func CharacterKey(conversationID string) string {
	return "character/" + conversationID
}
