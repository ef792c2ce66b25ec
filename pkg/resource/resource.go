// Package resource implements a client-side abstraction over a hypermedia
// REST API. Remote entities are modelled as local objects that fetch their
// data lazily, translate between the wire (camelCase) and local
// (snake_case) naming conventions, enforce declared write permissions and
// publish lifecycle events when they are created, saved or deleted.
//
// The runtime performs no I/O of its own; all remote state moves through
// the store.DataStore boundary, one call per cache miss.
package resource

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/driftwood-io/resource-sdk/pkg/resource/errors"
	"github.com/driftwood-io/resource-sdk/pkg/resource/events"
	"github.com/driftwood-io/resource-sdk/pkg/resource/names"
)

const (
	StatusEnabled  string = "ENABLED"
	StatusDisabled string = "DISABLED"
)

// Resource is a single remote entity. An instance constructed with only an
// href is lazy: the first read of any attribute other than href fetches
// the representation exactly once. An instance constructed with a property
// set is already materialized.
type Resource struct {
	client *Client
	typ    *Type

	href   string
	query  Query
	expand *Expansion

	loaded bool
	props  map[string]any

	// window records the offset/limit pair observed in the last merge so
	// a refresh refetches the same page.
	window *pageWindow

	// mergeFn lets Collection intercept merges to peel off items before
	// the scalar attributes are stored.
	mergeFn func(map[string]any) error
}

type pageWindow struct {
	offset int
	limit  int
}

type resourceOptions struct {
	href   string
	props  map[string]any
	query  Query
	expand *Expansion
}

type Option func(*resourceOptions)

func WithHref(href string) Option {
	return func(o *resourceOptions) {
		o.href = href
	}
}

func WithProperties(properties map[string]any) Option {
	return func(o *resourceOptions) {
		o.props = properties
	}
}

func WithQuery(query Query) Option {
	return func(o *resourceOptions) {
		o.query = query
	}
}

func WithExpansion(expand *Expansion) Option {
	return func(o *resourceOptions) {
		o.expand = expand
	}
}

// New creates a resource of the given type. Either WithHref or
// WithProperties is required; passing neither is an error.
func New(client *Client, typ *Type, options ...Option) (*Resource, error) {
	r := &Resource{
		client: client,
		typ:    typ,
		props:  map[string]any{},
	}
	r.mergeFn = r.setProperties

	if err := r.init(options); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Resource) init(options []Option) error {
	o := &resourceOptions{}
	for _, option := range options {
		option(o)
	}

	r.query = o.query
	r.expand = o.expand

	if o.href != "" {
		r.href = o.href
		return nil
	}

	if o.props == nil {
		return errors.NewInvalidArgumentError("either an href or a property set is required")
	}

	if err := r.mergeFn(o.props); err != nil {
		return err
	}

	r.loaded = true

	return nil
}

func (r *Resource) Href() string {
	return r.href
}

func (r *Resource) Type() *Type {
	return r.typ
}

// IsNew reports whether this resource has never been persisted.
func (r *Resource) IsNew() bool {
	return r.href == ""
}

// Get returns the named attribute, materializing the resource first if
// needed. Reading "href" never triggers a fetch since the identity must be
// readable on a brand-new instance.
func (r *Resource) Get(ctx context.Context, name string) (any, error) {
	if name == "href" {
		return r.href, nil
	}

	if err := r.ensureData(ctx); err != nil {
		return nil, err
	}

	value, ok := r.props[name]
	if !ok {
		return nil, errors.NewNoSuchAttributeError(name, r.typ.Name)
	}

	return value, nil
}

// Set writes a local attribute value. Only attributes in the type's
// declared writable set may be written; everything else, identity
// included, is rejected.
func (r *Resource) Set(name string, value any) error {
	if !r.typ.writableAttr(name) {
		return errors.NewNotWritableError(name, r.typ.Name)
	}

	r.props[name] = value

	return nil
}

// ensureData performs the lazy materialization. It is a no-op for new
// instances and for instances that are already populated; callers that
// need fresh data must use Refresh.
func (r *Resource) ensureData(ctx context.Context) error {
	if r.IsNew() || r.loaded {
		return nil
	}

	params := r.query.wire()

	if r.expand != nil {
		params.Set("expand", r.expand.Params())
	}

	if r.window != nil {
		params.Set("offset", fmt.Sprintf("%d", r.window.offset))
		params.Set("limit", fmt.Sprintf("%d", r.window.limit))
	}

	data, err := r.client.store.Fetch(ctx, r.client.absoluteURL(r.href), params)
	if err != nil {
		return err
	}

	if err := r.mergeFn(data); err != nil {
		return err
	}

	r.loaded = true

	return nil
}

// Refresh drops the cached remote representation and re-materializes the
// resource. Unsaved local edits are discarded.
func (r *Resource) Refresh(ctx context.Context) error {
	if r.IsNew() {
		return nil
	}

	if err := r.client.store.Invalidate(ctx, r.client.absoluteURL(r.href)); err != nil {
		return err
	}

	r.loaded = false

	return r.ensureData(ctx)
}

// Save serializes the declared writable attributes and writes them to the
// remote store, then publishes a resource-updated event. If the type
// declares autosaves, every nested resource currently held under one of
// those attributes is saved afterwards, in declaration order; a failing
// nested save does not roll back the parent update.
func (r *Resource) Save(ctx context.Context) error {
	if r.IsNew() {
		return errors.NewInvalidStateError("can't save new resources, use create instead")
	}

	properties := r.serializeProperties()

	data, err := r.client.store.Update(ctx, r.client.absoluteURL(r.href), properties)
	if err != nil {
		return err
	}

	r.client.events.Publish(ctx, events.Event{
		Name:       events.ResourceUpdated,
		Sender:     r.typ.Name,
		Href:       r.href,
		Properties: properties,
	})

	if modifiedAt, ok := data["modifiedAt"].(string); ok {
		if _, tracked := r.props["modified_at"]; tracked {
			if ts, err := parseTimestamp(modifiedAt); err == nil {
				r.props["modified_at"] = ts
			}
		}
	}

	for _, name := range r.typ.Autosaves {
		if nested, ok := r.props[name].(*Resource); ok {
			if err := nested.Save(ctx); err != nil {
				return err
			}
		}
	}

	return nil
}

// Delete removes the remote entity and publishes a resource-deleted event.
// Deleting a new instance is a no-op. The local object is not marked
// deleted, so a second Delete issues a second remote call; callers must
// not rely on local idempotence.
func (r *Resource) Delete(ctx context.Context) error {
	if r.IsNew() {
		return nil
	}

	if err := r.client.store.Delete(ctx, r.client.absoluteURL(r.href)); err != nil {
		return err
	}

	r.client.events.Publish(ctx, events.Event{
		Name:   events.ResourceDeleted,
		Sender: r.typ.Name,
		Href:   r.href,
	})

	return nil
}

// Resolve turns a string reference into a lazy instance of the target type
// when the reference points into this API (it starts with the client's
// base URL). Anything else resolves to nothing.
func (r *Resource) Resolve(reference any, target *Type) (*Resource, error) {
	ref, ok := reference.(string)
	if !ok || !strings.HasPrefix(ref, r.client.baseURL) {
		return nil, nil
	}

	return New(r.client, target, WithHref(ref))
}

// Status returns the upper-cased status attribute, defaulting to DISABLED
// when the entity carries none.
func (r *Resource) Status(ctx context.Context) (string, error) {
	if err := r.ensureData(ctx); err != nil {
		return "", err
	}

	status, ok := r.props["status"].(string)
	if !ok || status == "" {
		return StatusDisabled, nil
	}

	return strings.ToUpper(status), nil
}

func (r *Resource) IsEnabled(ctx context.Context) (bool, error) {
	status, err := r.Status(ctx)
	return status == StatusEnabled, err
}

func (r *Resource) IsDisabled(ctx context.Context) (bool, error) {
	status, err := r.Status(ctx)
	return status == StatusDisabled, err
}

// Keys returns the names of all materialized attributes, identity
// included, in sorted order.
func (r *Resource) Keys(ctx context.Context) ([]string, error) {
	if err := r.ensureData(ctx); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(r.props)+1)
	if r.href != "" {
		keys = append(keys, "href")
	}
	for k := range r.props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys, nil
}

func (r *Resource) Values(ctx context.Context) ([]any, error) {
	keys, err := r.Keys(ctx)
	if err != nil {
		return nil, err
	}

	values := make([]any, 0, len(keys))
	for _, k := range keys {
		if k == "href" {
			values = append(values, r.href)
			continue
		}
		values = append(values, r.props[k])
	}

	return values, nil
}

func (r *Resource) Contains(ctx context.Context, name string) (bool, error) {
	if name == "href" {
		return r.href != "", nil
	}

	if err := r.ensureData(ctx); err != nil {
		return false, err
	}

	_, ok := r.props[name]

	return ok, nil
}

// Update sets every given attribute and then saves the resource. On a new
// instance the attributes are only set locally; persisting them is the job
// of the collection's create.
func (r *Resource) Update(ctx context.Context, properties map[string]any) error {
	for _, name := range sortedKeys(properties) {
		if err := r.Set(name, properties[name]); err != nil {
			return err
		}
	}

	if r.IsNew() {
		return nil
	}

	return r.Save(ctx)
}

// setProperties merges a wire-form property map into the local attribute
// store, converting names and wrapping declared nested values into typed
// instances.
func (r *Resource) setProperties(properties map[string]any) error {
	for wireName, value := range properties {
		name := names.ToLocal(wireName)

		if name == "href" {
			href, ok := value.(string)
			if !ok {
				return errors.NewInvalidArgumentError(fmt.Sprintf("href must be a string, got %T", value))
			}
			r.href = href
			continue
		}

		if nested, declared := r.typ.Nested[name]; declared {
			wrapped, err := r.wrapResourceAttr(nested, value)
			if err != nil {
				return err
			}
			r.props[name] = wrapped
			continue
		}

		if nested, declared := r.typ.Dicts[name]; declared {
			wrapped, err := wrapDictAttr(nested, value)
			if err != nil {
				return err
			}
			r.props[name] = wrapped
			continue
		}

		if ref, ok := hrefReference(value); ok {
			// An undeclared object carrying a locator still becomes a
			// lazy resource, just an untyped one.
			lazy, err := New(r.client, Untyped, WithHref(ref))
			if err != nil {
				return err
			}
			r.props[name] = lazy
			continue
		}

		if name == "created_at" || name == "modified_at" {
			ts, err := parseTimestamp(value)
			if err != nil {
				return err
			}
			r.props[name] = ts
			continue
		}

		r.props[name] = value
	}

	return nil
}

// wrapResourceAttr materializes a raw nested value into an instance of the
// declared type. Already wrapped instances pass through, raw objects wrap,
// null is absent and anything else is a type mismatch.
func (r *Resource) wrapResourceAttr(typ *Type, value any) (any, error) {
	switch v := value.(type) {
	case *Resource:
		return v, nil
	case *Collection:
		return v, nil
	case map[string]any:
		if typ.Element != nil {
			collection, err := NewCollection(r.client, typ.Element, WithProperties(v))
			if err != nil {
				return nil, err
			}
			return collection, nil
		}

		nested, err := New(r.client, typ, WithProperties(v))
		if err != nil {
			return nil, err
		}
		return nested, nil
	case nil:
		return nil, nil
	default:
		return nil, errors.NewTypeMismatchError(
			fmt.Sprintf("can't convert %T to %s", value, typ.Name),
		)
	}
}

// serializeProperties converts the declared writable attributes back to a
// wire-form property map, sanitizing nested values recursively.
func (r *Resource) serializeProperties() map[string]any {
	data := map[string]any{}

	for _, name := range r.typ.Writable {
		if value, ok := r.props[name]; ok {
			data[names.ToWire(name)] = sanitizeValue(value)
		}
	}

	return data
}

// sanitizeValue converts a single attribute value to its wire
// representation. A persisted nested resource serializes to its reference
// form; an unpersisted one serializes its full writable property set.
func sanitizeValue(value any) any {
	switch v := value.(type) {
	case *Resource:
		if v.href != "" {
			return map[string]any{"href": v.href}
		}
		return v.serializeProperties()
	case *Collection:
		return sanitizeValue(&v.Resource)
	case *FixedDict:
		return v.Properties()
	case map[string]any:
		sanitized := map[string]any{}
		for k, nested := range v {
			sanitized[names.ToWire(k)] = sanitizeValue(nested)
		}
		return sanitized
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	default:
		return value
	}
}

func hrefReference(value any) (string, bool) {
	obj, ok := value.(map[string]any)
	if !ok {
		return "", false
	}

	href, ok := obj["href"].(string)

	return href, ok
}

func parseTimestamp(value any) (time.Time, error) {
	str, ok := value.(string)
	if !ok {
		return time.Time{}, errors.NewTypeMismatchError(
			fmt.Sprintf("timestamps must be strings, got %T", value),
		)
	}

	ts, err := time.Parse(time.RFC3339Nano, str)
	if err != nil {
		return time.Time{}, errors.NewTypeMismatchError(err.Error())
	}

	return ts, nil
}
