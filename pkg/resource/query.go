package resource

import (
	"fmt"
	"net/url"

	"github.com/driftwood-io/resource-sdk/pkg/resource/names"
)

// Query is a filter/sort/pagination specification keyed by local-form
// attribute names. Collections treat their query as immutable; layering
// more filters on top always produces a new map.
type Query map[string]any

func (q Query) clone() Query {
	c := make(Query, len(q))
	for k, v := range q {
		c[k] = v
	}
	return c
}

func (q Query) merged(other Query) Query {
	c := q.clone()
	for k, v := range other {
		c[k] = v
	}
	return c
}

// pinsWindow reports whether the query asks for an explicit offset/limit
// window. Such collections never paginate beyond their window.
func (q Query) pinsWindow() bool {
	_, hasOffset := q["offset"]
	_, hasLimit := q["limit"]
	return hasOffset || hasLimit
}

func (q Query) wire() url.Values {
	values := url.Values{}
	for k, v := range q {
		values.Set(names.ToWire(k), fmt.Sprintf("%v", v))
	}
	return values
}
