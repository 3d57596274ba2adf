// Package typing animates assistant replies one character at a time.
package typing

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultRate is the reveal speed in characters per second.
const DefaultRate = 30

// Sink receives reveal updates. Implementations must only touch the visible
// content and typing flag of the addressed message.
type Sink interface {
	Reveal(index int, content string, typing bool)
}

// Scheduler runs at most one reveal at a time. Sink calls happen on the
// scheduler's goroutine, so callers must not hold a lock the sink needs while
// calling Start or Stop.
type Scheduler struct {
	interval time.Duration
	log      *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	index  int
}

// Interval converts a characters-per-second rate into a tick interval.
func Interval(rate int) time.Duration {
	if rate <= 0 {
		rate = DefaultRate
	}
	return time.Second / time.Duration(rate)
}

// New returns a scheduler revealing at the given rate.
func New(rate int, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		interval: Interval(rate),
		log:      log,
		index:    -1,
	}
}

// Start begins revealing full into the message at index of sink. A reveal
// already in flight is cancelled and settled first; Start returns only after
// it has stopped touching its message.
func (s *Scheduler) Start(sink Sink, index int, full string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index >= 0 && s.index != index {
		s.log.Debug("superseding reveal", zap.Int("previous", s.index), zap.Int("next", index))
	}
	s.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.index = index
	go s.run(ctx, done, sink, index, full)
}

// Stop cancels the running reveal, if any, and settles its message.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Wait blocks until the current reveal finishes on its own or is stopped.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Active returns the index being revealed, or -1.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return -1
	}
	select {
	case <-s.done:
		return -1
	default:
		return s.index
	}
}

func (s *Scheduler) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
	s.index = -1
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}, sink Sink, index int, full string) {
	defer close(done)

	runes := []rune(full)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for k := 0; k < len(runes); {
		select {
		case <-ctx.Done():
			sink.Reveal(index, full, false)
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				continue
			}
			k++
			if k < len(runes) {
				sink.Reveal(index, string(runes[:k]), true)
			}
		}
	}
	sink.Reveal(index, full, false)
}
