package events

import (
	"context"
	"testing"

	"github.com/matryer/is"
)

func TestPublishDeliversToAllSubscribersOfTheSignal(t *testing.T) {
	is := is.New(t)
	d := NewDispatcher()

	updated := 0
	deleted := 0

	d.Subscribe(ResourceUpdated, func(ctx context.Context, evt Event) { updated++ })
	d.Subscribe(ResourceUpdated, func(ctx context.Context, evt Event) { updated++ })
	d.Subscribe(ResourceDeleted, func(ctx context.Context, evt Event) { deleted++ })

	d.Publish(context.Background(), Event{Name: ResourceUpdated, Href: "/accounts/1"})

	is.Equal(updated, 2)
	is.Equal(deleted, 0)
}

func TestPublishIsSynchronous(t *testing.T) {
	is := is.New(t)
	d := NewDispatcher()

	var received Event
	d.Subscribe(ResourceCreated, func(ctx context.Context, evt Event) { received = evt })

	d.Publish(context.Background(), Event{
		Name:       ResourceCreated,
		Sender:     "account",
		Href:       "/accounts/1",
		Properties: map[string]any{"givenName": "x"},
	})

	is.Equal(received.Sender, "account")
	is.Equal(received.Href, "/accounts/1")
	is.Equal(received.Properties["givenName"], "x")
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	is := is.New(t)
	d := NewDispatcher()

	count := 0
	token := d.Subscribe(ResourceDeleted, func(ctx context.Context, evt Event) { count++ })

	d.Publish(context.Background(), Event{Name: ResourceDeleted})
	d.Unsubscribe(token)
	d.Publish(context.Background(), Event{Name: ResourceDeleted})

	is.Equal(count, 1)
}
