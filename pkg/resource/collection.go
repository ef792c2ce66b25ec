package resource

import (
	"context"
	"fmt"
	"strings"

	"github.com/driftwood-io/resource-sdk/pkg/resource/errors"
	"github.com/driftwood-io/resource-sdk/pkg/resource/events"
	"github.com/driftwood-io/resource-sdk/pkg/resource/names"
)

// Collection is an ordered, paginated view over many resources of one
// element type. Its items always form a contiguous window
// [offset, offset+len(items)) of the remote ordering; iteration grows the
// window page by page unless the collection's query pinned an explicit
// offset/limit, in which case it never fetches beyond that window.
type Collection struct {
	Resource

	elem  *Type
	items []*Resource

	offset int
	limit  int
	size   int

	// slicedSize is the reported length of a slice view, -1 otherwise.
	slicedSize int
}

func NewCollection(client *Client, element *Type, options ...Option) (*Collection, error) {
	c := &Collection{
		Resource: Resource{
			client: client,
			typ:    CollectionOf(element),
			props:  map[string]any{},
		},
		elem:       element,
		slicedSize: -1,
	}
	c.mergeFn = c.mergeProperties

	if err := c.init(options); err != nil {
		return nil, err
	}

	return c, nil
}

// mergeProperties peels the raw items out of the payload, merges the
// remaining scalar attributes through the base implementation and wraps
// each item as an instance of the element type.
func (c *Collection) mergeProperties(properties map[string]any) error {
	var rawItems any
	hasItems := false

	rest := make(map[string]any, len(properties))
	for k, v := range properties {
		if k == "items" {
			rawItems = v
			hasItems = true
			continue
		}
		rest[k] = v
	}

	if err := c.setProperties(rest); err != nil {
		return err
	}

	c.size = c.intAttr("size", c.size)
	c.offset = c.intAttr("offset", c.offset)
	c.limit = c.intAttr("limit", c.limit)

	_, hasOffset := c.props["offset"]
	_, hasLimit := c.props["limit"]
	if hasOffset && hasLimit {
		c.window = &pageWindow{offset: c.offset, limit: c.limit}
	}

	if hasItems {
		items, err := c.wrapItems(rawItems)
		if err != nil {
			return err
		}

		c.items = items
		c.props["items"] = c.items
	}

	return nil
}

func (c *Collection) wrapItems(rawItems any) ([]*Resource, error) {
	raw, ok := rawItems.([]any)
	if !ok {
		return nil, errors.NewTypeMismatchError(
			fmt.Sprintf("collection items must be a list, got %T", rawItems),
		)
	}

	items := make([]*Resource, 0, len(raw))

	for _, item := range raw {
		wrapped, err := c.wrapResourceAttr(c.elem, item)
		if err != nil {
			return nil, err
		}

		res, ok := wrapped.(*Resource)
		if !ok {
			return nil, errors.NewTypeMismatchError(
				fmt.Sprintf("collection item did not wrap to a resource (%T)", wrapped),
			)
		}

		items = append(items, res)
	}

	return items, nil
}

func (c *Collection) intAttr(name string, fallback int) int {
	switch v := c.props[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func (c *Collection) setLimit(limit int) {
	c.limit = limit
	c.props["limit"] = limit
}

// nextPage fetches one more page of width limit starting at offset and
// appends it to the loaded window. It returns nothing when the query
// pinned an explicit window or when the known collection size has been
// reached.
func (c *Collection) nextPage(ctx context.Context, offset, limit int) ([]*Resource, error) {
	if c.query.pinsWindow() {
		return nil, nil
	}

	if offset >= c.size {
		return nil, nil
	}

	params := c.query.clone()
	params["offset"] = offset
	params["limit"] = limit

	data, err := c.client.store.Fetch(ctx, c.client.absoluteURL(c.href), params.wire())
	if err != nil {
		return nil, err
	}

	rawItems, ok := data["items"]
	if !ok {
		return nil, nil
	}

	items, err := c.wrapItems(rawItems)
	if err != nil {
		return nil, err
	}

	c.items = append(c.items, items...)
	c.props["items"] = c.items
	c.setLimit(c.limit + len(items))

	return items, nil
}

// Each yields every element of the collection in the original remote
// ordering, fetching further pages on demand. Returning false from the
// callback stops the pass. The recorded limit is restored once the pass
// ends, so page growth during iteration never leaks as permanent state.
func (c *Collection) Each(ctx context.Context, fn func(*Resource) bool) error {
	if err := c.ensureData(ctx); err != nil {
		return err
	}

	window := c.items
	offset := c.offset
	limit := c.limit

	defer c.setLimit(limit)

	for len(window) > 0 {
		for _, item := range window {
			if !fn(item) {
				return nil
			}
		}

		// A short window means the last page has been reached.
		if len(window) < limit {
			break
		}

		offset += len(window)

		var err error
		window, err = c.nextPage(ctx, offset, limit)
		if err != nil {
			return err
		}
	}

	return nil
}

// Len returns the authoritative remote size, or the slice bound when this
// instance is a slice view.
func (c *Collection) Len(ctx context.Context) (int, error) {
	if err := c.ensureData(ctx); err != nil {
		return 0, err
	}

	if c.slicedSize >= 0 {
		return c.slicedSize, nil
	}

	return c.size, nil
}

// At indexes into the loaded window. Indexing outside of it is an error,
// not an implicit fetch; use Slice or Query for windows that are not
// loaded yet.
func (c *Collection) At(ctx context.Context, index int) (*Resource, error) {
	if err := c.ensureData(ctx); err != nil {
		return nil, err
	}

	if index < 0 || index >= len(c.items) {
		return nil, errors.NewInvalidArgumentError(
			fmt.Sprintf("index %d is outside of the loaded window of %d items", index, len(c.items)),
		)
	}

	return c.items[index], nil
}

// Slice returns a new collection scoped to the half-open range
// [start, stop). A stop of zero means "to the end". The reported length of
// the slice is bounded by the parent's size as known at slice time; if the
// parent was never materialized the bound falls back to the requested
// width.
func (c *Collection) Slice(start, stop int) (*Collection, error) {
	if start < 0 || stop < 0 {
		return nil, errors.NewInvalidArgumentError("slice bounds must not be negative")
	}

	width := 0
	if stop > start {
		width = stop - start
	}

	q := Query{"offset": start}
	if width > 0 {
		q["limit"] = width
	}

	sliced, err := c.Query(q)
	if err != nil {
		return nil, err
	}

	if c.loaded {
		remaining := max(0, c.size-start)
		if width > 0 {
			sliced.slicedSize = min(width, remaining)
		} else {
			sliced.slicedSize = remaining
		}
	} else if width > 0 {
		sliced.slicedSize = width
	}

	return sliced, nil
}

// Item returns a lazy element instance for the given locator. A bare
// identifier is resolved against the collection's create path; an already
// qualified locator passes through.
func (c *Collection) Item(locator string, options ...Option) (*Resource, error) {
	href := locator
	if !strings.Contains(locator, "/") {
		href = c.createPath() + "/" + locator
	}

	return New(c.client, c.elem, append(options, WithHref(href))...)
}

// Search filters the collection. A string is a full text query term; a
// map is a set of structured filter fields.
func (c *Collection) Search(query any) (*Collection, error) {
	switch q := query.(type) {
	case string:
		return c.Query(Query{"q": q})
	case Query:
		return c.Query(q)
	case map[string]any:
		return c.Query(Query(q))
	default:
		return nil, errors.NewInvalidArgumentError(
			fmt.Sprintf("search accepts a string or a filter map, got %T", query),
		)
	}
}

// Order sorts the collection by the given local-form field name.
func (c *Collection) Order(field string) (*Collection, error) {
	return c.Query(Query{"order_by": names.ToWire(field)})
}

// Query returns a new collection layering the given filters onto the
// active query. The receiver is never mutated.
func (c *Collection) Query(q Query) (*Collection, error) {
	return NewCollection(c.client, c.elem,
		WithHref(c.href),
		WithQuery(c.query.merged(q)),
	)
}

func (c *Collection) createPath() string {
	if c.elem.CreatePath != "" {
		return c.client.baseURL + c.elem.CreatePath
	}

	return c.client.absoluteURL(c.href)
}

type createOptions struct {
	expand *Expansion
	params Query
}

type CreateOption func(*createOptions)

func Expand(e *Expansion) CreateOption {
	return func(o *createOptions) {
		o.expand = e
	}
}

func Params(q Query) CreateOption {
	return func(o *createOptions) {
		o.params = q
	}
}

// Create persists a new element. The given properties are filtered down to
// the element type's writable set, sanitized and wire-encoded; the
// response wraps into a persisted element instance and a resource-created
// event is published.
func (c *Collection) Create(ctx context.Context, properties map[string]any, options ...CreateOption) (*Resource, error) {
	o := &createOptions{}
	for _, option := range options {
		option(o)
	}

	data := map[string]any{}

	for name, value := range properties {
		if nested, declared := c.elem.Nested[name]; declared {
			if _, isMap := value.(map[string]any); isMap {
				wrapped, err := c.wrapResourceAttr(nested, value)
				if err != nil {
					return nil, err
				}
				value = wrapped
			}
		}

		if c.elem.writableAttr(name) {
			data[names.ToWire(name)] = sanitizeValue(value)
		}
	}

	params := o.params.wire()
	if o.expand != nil {
		params.Set("expand", o.expand.Params())
	}

	created, err := c.client.store.Create(ctx, c.createPath(), data, params)
	if err != nil {
		return nil, err
	}

	element, err := New(c.client, c.elem, WithProperties(created))
	if err != nil {
		return nil, err
	}

	c.client.events.Publish(ctx, events.Event{
		Name:       events.ResourceCreated,
		Sender:     c.elem.Name,
		Href:       element.Href(),
		Properties: data,
	})

	return element, nil
}
