// Package store defines the data-store boundary that the resource runtime
// calls out to for all remote state, together with an HTTP implementation
// of it. The runtime itself performs no I/O; every cache miss turns into
// exactly one call on this interface.
package store

import (
	"context"
	"net/url"
)

// DataStore moves wire-form (camelCase keyed) property maps between the
// runtime and the remote API. Implementations must not retry; failures
// propagate to the caller unmodified.
type DataStore interface {
	// Fetch retrieves the representation of the resource at href. Params
	// may carry offset, limit, expand and arbitrary filter fields.
	Fetch(ctx context.Context, href string, params url.Values) (map[string]any, error)

	// Create posts a new resource to the collection create path and
	// returns the representation of the created resource.
	Create(ctx context.Context, createPath string, properties map[string]any, params url.Values) (map[string]any, error)

	// Update writes the given properties to the resource at href and
	// returns the server's view of the updated resource.
	Update(ctx context.Context, href string, properties map[string]any) (map[string]any, error)

	// Delete removes the resource at href.
	Delete(ctx context.Context, href string) error

	// Invalidate drops any cached representation of the resource at href
	// so that the next Fetch is forced to go remote.
	Invalidate(ctx context.Context, href string) error
}
