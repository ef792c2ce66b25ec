package resource

import (
	"fmt"
	"strings"
)

// Expansion requests that named sub-resources be embedded inline in a fetch
// response instead of being returned as bare references. Each name may
// carry an optional offset/limit pair for embedded collections.
type Expansion struct {
	order   []string
	windows map[string]expandWindow
}

type expandWindow struct {
	offset *int
	limit  *int
}

type ExpandOption func(*expandWindow)

func Offset(n int) ExpandOption {
	return func(w *expandWindow) {
		w.offset = &n
	}
}

func Limit(n int) ExpandOption {
	return func(w *expandWindow) {
		w.limit = &n
	}
}

func NewExpansion(attributes ...string) *Expansion {
	e := &Expansion{
		windows: map[string]expandWindow{},
	}

	for _, attr := range attributes {
		e.Add(attr)
	}

	return e
}

// Add registers a sub-resource to expand. Adding a name twice replaces its
// window but keeps its position in the serialized parameter.
func (e *Expansion) Add(attribute string, options ...ExpandOption) *Expansion {
	w := expandWindow{}
	for _, option := range options {
		option(&w)
	}

	if _, known := e.windows[attribute]; !known {
		e.order = append(e.order, attribute)
	}

	e.windows[attribute] = w

	return e
}

// Params serializes the expansion into the single query parameter value the
// API expects, e.g. "accounts(offset:0,limit:10),groups".
func (e *Expansion) Params() string {
	parts := make([]string, 0, len(e.order))

	for _, attr := range e.order {
		w := e.windows[attr]

		pairs := []string{}
		if w.offset != nil {
			pairs = append(pairs, fmt.Sprintf("offset:%d", *w.offset))
		}
		if w.limit != nil {
			pairs = append(pairs, fmt.Sprintf("limit:%d", *w.limit))
		}

		if len(pairs) > 0 {
			parts = append(parts, attr+"("+strings.Join(pairs, ",")+")")
		} else {
			parts = append(parts, attr)
		}
	}

	return strings.Join(parts, ",")
}
