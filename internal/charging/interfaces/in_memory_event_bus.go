package interfaces

import (
	"context"
	"sync"

	"blastcharge/internal/charging/application/events"
)

// InMemoryEventBus is a lightweight in-process event bus for charging
// lifecycle events. It satisfies application.EventPublisher.
type InMemoryEventBus struct {
	mu sync.RWMutex

	appliedHandlers  []func(context.Context, events.ChargingApplied) error
	rescaledHandlers []func(context.Context, events.ChargingRescaled) error
	clearedHandlers  []func(context.Context, events.ChargingCleared) error
}

// NewInMemoryEventBus constructs a new bus.
func NewInMemoryEventBus() *InMemoryEventBus {
	return &InMemoryEventBus{}
}

// SubscribeChargingApplied registers a handler for ChargingApplied.
func (b *InMemoryEventBus) SubscribeChargingApplied(handler func(context.Context, events.ChargingApplied) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.appliedHandlers = append(b.appliedHandlers, handler)
}

// PublishChargingApplied publishes a ChargingApplied event.
func (b *InMemoryEventBus) PublishChargingApplied(ctx context.Context, event events.ChargingApplied) error {
	b.mu.RLock()
	handlers := append([]func(context.Context, events.ChargingApplied) error(nil), b.appliedHandlers...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		if err := handler(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// SubscribeChargingRescaled registers a handler for ChargingRescaled.
func (b *InMemoryEventBus) SubscribeChargingRescaled(handler func(context.Context, events.ChargingRescaled) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rescaledHandlers = append(b.rescaledHandlers, handler)
}

// PublishChargingRescaled publishes a ChargingRescaled event.
func (b *InMemoryEventBus) PublishChargingRescaled(ctx context.Context, event events.ChargingRescaled) error {
	b.mu.RLock()
	handlers := append([]func(context.Context, events.ChargingRescaled) error(nil), b.rescaledHandlers...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		if err := handler(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// SubscribeChargingCleared registers a handler for ChargingCleared.
func (b *InMemoryEventBus) SubscribeChargingCleared(handler func(context.Context, events.ChargingCleared) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clearedHandlers = append(b.clearedHandlers, handler)
}

// PublishChargingCleared publishes a ChargingCleared event.
func (b *InMemoryEventBus) PublishChargingCleared(ctx context.Context, event events.ChargingCleared) error {
	b.mu.RLock()
	handlers := append([]func(context.Context, events.ChargingCleared) error(nil), b.clearedHandlers...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		if err := handler(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
