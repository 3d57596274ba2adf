package backend

import (
	"sync"

	"github.com/google/uuid"

	"rpgchat/models"
	"rpgchat/session"
)

// Feed fans out assistant replies to live subscribers. Handlers run on the
// publishing goroutine in subscription order.
type Feed struct {
	mu   sync.RWMutex
	subs map[string]func(models.Response)
	// order keeps delivery deterministic across publishes.
	order []string
}

// NewFeed returns a feed with no subscribers.
func NewFeed() *Feed {
	return &Feed{subs: make(map[string]func(models.Response))}
}

// Subscribe registers handler until the returned subscription is cancelled.
func (f *Feed) Subscribe(handler func(models.Response)) session.Subscription {
	id := uuid.NewString()
	f.mu.Lock()
	f.subs[id] = handler
	f.order = append(f.order, id)
	f.mu.Unlock()
	return &feedSubscription{feed: f, id: id}
}

// Publish delivers resp to every current subscriber.
func (f *Feed) Publish(resp models.Response) {
	f.mu.RLock()
	handlers := make([]func(models.Response), 0, len(f.order))
	for _, id := range f.order {
		handlers = append(handlers, f.subs[id])
	}
	f.mu.RUnlock()

	for _, h := range handlers {
		h(resp)
	}
}

// Subscribers is the number of live subscriptions.
func (f *Feed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

func (f *Feed) remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[id]; !ok {
		return
	}
	delete(f.subs, id)
	for i, v := range f.order {
		if v == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

type feedSubscription struct {
	feed *Feed
	id   string
	once sync.Once
}

func (s *feedSubscription) Unsubscribe() {
	s.once.Do(func() { s.feed.remove(s.id) })
}
