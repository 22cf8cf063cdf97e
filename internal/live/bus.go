// Package live pushes fresh result sets to subscribers whenever an
// organization's data changes, and revokes subscriptions when access is lost.
package live

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Kind tells a Hub what to do with a Change.
type Kind string

const (
	KindChanged      Kind = "changed"
	KindRevokeUser   Kind = "revoke_user"
	KindRevokeMember Kind = "revoke_member"
	KindRevokeOrg    Kind = "revoke_org"
)

// Change is the message carried on a Bus.
type Change struct {
	Kind       Kind      `json:"kind"`
	OrgID      uuid.UUID `json:"org_id,omitempty"`
	UserID     uuid.UUID `json:"user_id,omitempty"`
	Collection string    `json:"collection,omitempty"`
}

// Publisher sends a Change to every instance.
type Publisher interface {
	Publish(ctx context.Context, change Change) error
}

// Bus fans Changes out to all listeners.
type Bus interface {
	Publisher
	// Listen calls fn for every Change until ctx is done.
	Listen(ctx context.Context, fn func(Change)) error
}

// MemoryBus is a single process Bus. Handlers run synchronously in Publish.
type MemoryBus struct {
	mu       sync.RWMutex
	next     int
	handlers map[int]func(Change)
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: make(map[int]func(Change))}
}

func (b *MemoryBus) Publish(_ context.Context, change Change) error {
	b.mu.RLock()
	handlers := make([]func(Change), 0, len(b.handlers))
	for _, fn := range b.handlers {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(change)
	}
	return nil
}

// Subscribe registers fn and returns a function that removes it.
func (b *MemoryBus) Subscribe(fn func(Change)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.handlers[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

func (b *MemoryBus) Listen(ctx context.Context, fn func(Change)) error {
	unsubscribe := b.Subscribe(fn)
	defer unsubscribe()
	<-ctx.Done()
	return nil
}
