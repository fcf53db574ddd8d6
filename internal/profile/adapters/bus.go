// Package adapters implements the notifier port used by the dispatcher.
package adapters

import (
	"context"
	"errors"
	"sync"

	"fedcore/internal/profile/models"
)

// Handler receives a trigger payload.
type Handler func(ctx context.Context, payload models.ProfileChange) error

// Bus is an in-process trigger bus. Handlers run synchronously in
// subscription order; every handler runs even if an earlier one fails.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Subscribe registers h for event.
func (b *Bus) Subscribe(event string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], h)
}

// Trigger delivers payload to every handler of event.
func (b *Bus) Trigger(ctx context.Context, event string, payload models.ProfileChange) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event]...)
	b.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h(ctx, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
