package resource

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"strconv"
	"testing"

	sdkerrors "github.com/driftwood-io/resource-sdk/pkg/resource/errors"
	"github.com/driftwood-io/resource-sdk/pkg/resource/events"

	"github.com/matryer/is"
)

// pagedAccounts serves a remote collection of total accounts in pages of
// at most pageSize, honoring offset and limit query parameters the way
// the API does.
func pagedAccounts(total, pageSize int) func(ctx context.Context, href string, params url.Values) (map[string]any, error) {
	return func(ctx context.Context, href string, params url.Values) (map[string]any, error) {
		offset := 0
		limit := pageSize

		if v := params.Get("offset"); v != "" {
			offset, _ = strconv.Atoi(v)
		}
		if v := params.Get("limit"); v != "" {
			limit, _ = strconv.Atoi(v)
		}

		items := []any{}
		for i := offset; i < total && i < offset+limit; i++ {
			items = append(items, map[string]any{
				"href":      fmt.Sprintf("%s/accounts/%d", baseURL, i),
				"givenName": fmt.Sprintf("account-%d", i),
			})
		}

		return map[string]any{
			"href":   href,
			"offset": offset,
			"limit":  limit,
			"size":   total,
			"items":  items,
		}, nil
	}
}

func newAccountCollection(ds *dataStoreMock, options ...Option) (*Collection, error) {
	options = append(options, WithHref(baseURL+"/accounts"))
	return NewCollection(NewClient(baseURL, ds), accountType, options...)
}

func TestCollectionIterationPagesThroughAllItems(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	ds := &dataStoreMock{FetchFunc: pagedAccounts(10, 3)}

	c, err := newAccountCollection(ds)
	is.NoErr(err)

	seen := []string{}
	err = c.Each(ctx, func(r *Resource) bool {
		seen = append(seen, r.Href())
		return true
	})
	is.NoErr(err)

	is.Equal(len(seen), 10)
	for i, href := range seen {
		is.Equal(href, fmt.Sprintf("%s/accounts/%d", baseURL, i)) // contiguous remote ordering
	}

	// one initial materialization plus three further pages
	is.Equal(ds.fetchCalls, 4)
	is.Equal(c.limit, 3) // page growth must not leak past the pass
}

func TestCollectionIterationStopsEarly(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	ds := &dataStoreMock{FetchFunc: pagedAccounts(10, 3)}

	c, err := newAccountCollection(ds)
	is.NoErr(err)

	seen := 0
	err = c.Each(ctx, func(r *Resource) bool {
		seen++
		return seen < 2
	})
	is.NoErr(err)

	is.Equal(seen, 2)
	is.Equal(ds.fetchCalls, 1)
}

func TestExplicitWindowIsNeverPagedPast(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	ds := &dataStoreMock{FetchFunc: pagedAccounts(10, 3)}

	c, err := newAccountCollection(ds, WithQuery(Query{"offset": 2, "limit": 4}))
	is.NoErr(err)

	seen := []string{}
	err = c.Each(ctx, func(r *Resource) bool {
		seen = append(seen, r.Href())
		return true
	})
	is.NoErr(err)

	is.Equal(len(seen), 4)
	is.Equal(seen[0], baseURL+"/accounts/2")
	is.Equal(seen[3], baseURL+"/accounts/5")

	// a second pass over the same window must not go remote again
	err = c.Each(ctx, func(r *Resource) bool { return true })
	is.NoErr(err)
	is.Equal(ds.fetchCalls, 1)
}

func TestCollectionLenReportsRemoteSize(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	c, err := newAccountCollection(&dataStoreMock{FetchFunc: pagedAccounts(10, 3)})
	is.NoErr(err)

	size, err := c.Len(ctx)
	is.NoErr(err)
	is.Equal(size, 10)
}

func TestCollectionAtIndexesTheLoadedWindowOnly(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	c, err := newAccountCollection(&dataStoreMock{FetchFunc: pagedAccounts(10, 3)})
	is.NoErr(err)

	item, err := c.At(ctx, 1)
	is.NoErr(err)
	is.Equal(item.Href(), baseURL+"/accounts/1")

	_, err = c.At(ctx, 5)
	is.True(stderrors.Is(err, sdkerrors.ErrInvalidArgument))

	_, err = c.At(ctx, -1)
	is.True(stderrors.Is(err, sdkerrors.ErrInvalidArgument))
}

func TestSliceBoundsItsLengthByTheParentSize(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	c, err := newAccountCollection(&dataStoreMock{FetchFunc: pagedAccounts(10, 3)})
	is.NoErr(err)
	_, err = c.Len(ctx) // materialize the parent so its size is known
	is.NoErr(err)

	sliced, err := c.Slice(2, 8)
	is.NoErr(err)

	size, err := sliced.Len(ctx)
	is.NoErr(err)
	is.Equal(size, 6)
}

func TestSliceIsClampedToAShortParent(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	c, err := newAccountCollection(&dataStoreMock{FetchFunc: pagedAccounts(5, 3)})
	is.NoErr(err)
	_, err = c.Len(ctx)
	is.NoErr(err)

	sliced, err := c.Slice(2, 8)
	is.NoErr(err)

	size, err := sliced.Len(ctx)
	is.NoErr(err)
	is.Equal(size, 3)
}

func TestSliceRejectsNegativeBounds(t *testing.T) {
	is := is.New(t)

	c, err := newAccountCollection(&dataStoreMock{})
	is.NoErr(err)

	_, err = c.Slice(-1, 3)
	is.True(stderrors.Is(err, sdkerrors.ErrInvalidArgument))
}

func TestItemResolvesBareIdentifiersAgainstTheCreatePath(t *testing.T) {
	is := is.New(t)

	c, err := newAccountCollection(&dataStoreMock{})
	is.NoErr(err)

	item, err := c.Item("aRaNdOmId")
	is.NoErr(err)
	is.Equal(item.Href(), baseURL+"/accounts/aRaNdOmId")
	is.Equal(item.Type(), accountType)

	item, err = c.Item(baseURL + "/accounts/qualified")
	is.NoErr(err)
	is.Equal(item.Href(), baseURL+"/accounts/qualified")
}

func TestSearchOrderAndQueryBuildWireParameters(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	var params url.Values
	ds := &dataStoreMock{
		FetchFunc: func(ctx context.Context, href string, p url.Values) (map[string]any, error) {
			params = p
			return map[string]any{"size": 0, "items": []any{}}, nil
		},
	}

	c, err := newAccountCollection(ds)
	is.NoErr(err)

	searched, err := c.Search("joe")
	is.NoErr(err)
	_, err = searched.Len(ctx)
	is.NoErr(err)
	is.Equal(params.Get("q"), "joe")

	filtered, err := c.Search(map[string]any{"given_name": "L*"})
	is.NoErr(err)
	_, err = filtered.Len(ctx)
	is.NoErr(err)
	is.Equal(params.Get("givenName"), "L*")

	ordered, err := c.Order("given_name")
	is.NoErr(err)
	_, err = ordered.Len(ctx)
	is.NoErr(err)
	is.Equal(params.Get("orderBy"), "givenName")

	_, err = c.Search(42)
	is.True(stderrors.Is(err, sdkerrors.ErrInvalidArgument))
}

func TestDerivedCollectionsLeaveTheReceiverUntouched(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	var params url.Values
	ds := &dataStoreMock{
		FetchFunc: func(ctx context.Context, href string, p url.Values) (map[string]any, error) {
			params = p
			return map[string]any{"size": 0, "items": []any{}}, nil
		},
	}

	c, err := newAccountCollection(ds)
	is.NoErr(err)

	_, err = c.Search("joe")
	is.NoErr(err)

	_, err = c.Len(ctx)
	is.NoErr(err)
	is.Equal(params.Get("q"), "")
}

func TestDerivedCollectionsLayerQueries(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	var params url.Values
	ds := &dataStoreMock{
		FetchFunc: func(ctx context.Context, href string, p url.Values) (map[string]any, error) {
			params = p
			return map[string]any{"size": 0, "items": []any{}}, nil
		},
	}

	c, err := newAccountCollection(ds)
	is.NoErr(err)

	searched, err := c.Search("joe")
	is.NoErr(err)
	ordered, err := searched.Order("surname")
	is.NoErr(err)

	_, err = ordered.Len(ctx)
	is.NoErr(err)
	is.Equal(params.Get("q"), "joe")
	is.Equal(params.Get("orderBy"), "surname")
}

func TestCreateFiltersToWritableAttributesAndWrapsTheResult(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	createdHref := baseURL + "/accounts/new"

	var sentPath string
	var sentBody map[string]any
	var sentParams url.Values
	ds := &dataStoreMock{
		CreateFunc: func(ctx context.Context, createPath string, properties map[string]any, params url.Values) (map[string]any, error) {
			sentPath = createPath
			sentBody = properties
			sentParams = params
			return map[string]any{
				"href":      createdHref,
				"givenName": "Lena",
			}, nil
		},
	}

	dispatcher := events.NewDispatcher()
	var received events.Event
	dispatcher.Subscribe(events.ResourceCreated, func(ctx context.Context, evt events.Event) {
		received = evt
	})

	c, err := NewCollection(NewClient(baseURL, ds, Events(dispatcher)), accountType,
		WithHref(baseURL+"/accounts"))
	is.NoErr(err)

	element, err := c.Create(ctx, map[string]any{
		"given_name":  "Lena",
		"custom_data": map[string]any{"color": "red"},
		"created_at":  "2024-05-01T10:00:00Z",
	}, Expand(NewExpansion("directory")))
	is.NoErr(err)

	is.Equal(sentPath, baseURL+"/accounts")
	is.Equal(sentParams.Get("expand"), "directory")

	is.Equal(len(sentBody), 2) // the non-writable attribute stays local
	is.Equal(sentBody["givenName"], "Lena")
	custom, ok := sentBody["customData"].(map[string]any)
	is.True(ok)
	is.Equal(custom["color"], "red")

	is.True(!element.IsNew())
	is.Equal(element.Href(), createdHref)

	is.Equal(received.Name, events.ResourceCreated)
	is.Equal(received.Sender, "account")
	is.Equal(received.Href, createdHref)
	is.Equal(received.Properties["givenName"], "Lena")
}

func TestCollectionMaterializesItemsAsElementInstances(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	c, err := newAccountCollection(&dataStoreMock{FetchFunc: pagedAccounts(2, 3)})
	is.NoErr(err)

	item, err := c.At(ctx, 0)
	is.NoErr(err)
	is.Equal(item.Type(), accountType)

	name, err := item.Get(ctx, "given_name")
	is.NoErr(err)
	is.Equal(name, "account-0")
}
