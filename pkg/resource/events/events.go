// Package events defines the notification boundary that the resource
// runtime publishes lifecycle events on. The runtime only depends on the
// Publisher interface; the Dispatcher in this package is a synchronous
// in-process implementation for consumers that want to observe resource
// lifecycles without wiring their own bus.
package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

const (
	ResourceCreated string = "resource-created"
	ResourceUpdated string = "resource-updated"
	ResourceDeleted string = "resource-deleted"
)

// Event describes a single resource lifecycle transition. Properties is the
// serialized wire-form property map for created and updated events and nil
// for deletions.
type Event struct {
	Name       string
	Sender     string
	Href       string
	Properties map[string]any
}

type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

type SubscriberFunc func(ctx context.Context, evt Event)

type Dispatcher interface {
	Publisher

	Subscribe(eventName string, fn SubscriberFunc) string
	Unsubscribe(token string)
}

func NewDispatcher() Dispatcher {
	return &dispatcher{
		subscribers: map[string]map[string]SubscriberFunc{},
	}
}

type dispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]SubscriberFunc
}

func (d *dispatcher) Subscribe(eventName string, fn SubscriberFunc) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	token := uuid.NewString()

	if d.subscribers[eventName] == nil {
		d.subscribers[eventName] = map[string]SubscriberFunc{}
	}

	d.subscribers[eventName][token] = fn

	return token
}

func (d *dispatcher) Unsubscribe(token string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, subs := range d.subscribers {
		delete(subs, token)
	}
}

// Publish invokes every subscriber of the named event before returning.
// Delivery order between independent subscribers is unspecified.
func (d *dispatcher) Publish(ctx context.Context, evt Event) {
	d.mu.RLock()
	subs := make([]SubscriberFunc, 0, len(d.subscribers[evt.Name]))
	for _, fn := range d.subscribers[evt.Name] {
		subs = append(subs, fn)
	}
	d.mu.RUnlock()

	for _, fn := range subs {
		fn(ctx, evt)
	}
}

// NoPublisher discards all events. It is the default when a client is
// created without a publisher.
func NoPublisher() Publisher {
	return &noPublisher{}
}

type noPublisher struct{}

func (n *noPublisher) Publish(ctx context.Context, evt Event) {}
