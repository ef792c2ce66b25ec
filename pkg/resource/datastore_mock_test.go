package resource

import (
	"context"
	"net/url"
)

// dataStoreMock is a hand-rolled mock of store.DataStore for exercising
// the runtime without HTTP. Unset call funcs return empty results.
type dataStoreMock struct {
	FetchFunc      func(ctx context.Context, href string, params url.Values) (map[string]any, error)
	CreateFunc     func(ctx context.Context, createPath string, properties map[string]any, params url.Values) (map[string]any, error)
	UpdateFunc     func(ctx context.Context, href string, properties map[string]any) (map[string]any, error)
	DeleteFunc     func(ctx context.Context, href string) error
	InvalidateFunc func(ctx context.Context, href string) error

	fetchCalls      int
	createCalls     int
	updateCalls     int
	deleteCalls     int
	invalidateCalls int
}

func (m *dataStoreMock) Fetch(ctx context.Context, href string, params url.Values) (map[string]any, error) {
	m.fetchCalls++
	if m.FetchFunc == nil {
		return map[string]any{}, nil
	}
	return m.FetchFunc(ctx, href, params)
}

func (m *dataStoreMock) Create(ctx context.Context, createPath string, properties map[string]any, params url.Values) (map[string]any, error) {
	m.createCalls++
	if m.CreateFunc == nil {
		return map[string]any{}, nil
	}
	return m.CreateFunc(ctx, createPath, properties, params)
}

func (m *dataStoreMock) Update(ctx context.Context, href string, properties map[string]any) (map[string]any, error) {
	m.updateCalls++
	if m.UpdateFunc == nil {
		return map[string]any{}, nil
	}
	return m.UpdateFunc(ctx, href, properties)
}

func (m *dataStoreMock) Delete(ctx context.Context, href string) error {
	m.deleteCalls++
	if m.DeleteFunc == nil {
		return nil
	}
	return m.DeleteFunc(ctx, href)
}

func (m *dataStoreMock) Invalidate(ctx context.Context, href string) error {
	m.invalidateCalls++
	if m.InvalidateFunc == nil {
		return nil
	}
	return m.InvalidateFunc(ctx, href)
}
