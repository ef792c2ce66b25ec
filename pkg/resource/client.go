package resource

import (
	"strings"

	"github.com/driftwood-io/resource-sdk/pkg/resource/events"
	"github.com/driftwood-io/resource-sdk/pkg/resource/store"
)

// Client binds the resource runtime to its collaborators: the data store
// that performs the actual remote calls and the publisher that lifecycle
// events go out on. Resources hold a reference to the client they were
// created through.
type Client struct {
	baseURL string
	store   store.DataStore
	events  events.Publisher
}

func Events(p events.Publisher) func(*Client) {
	return func(c *Client) {
		c.events = p
	}
}

func NewClient(baseURL string, ds store.DataStore, options ...func(*Client)) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		store:   ds,
		events:  events.NoPublisher(),
	}

	for _, option := range options {
		option(c)
	}

	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// absoluteURL resolves a locator against the API base. Locators returned
// by the API are usually absolute already and pass through unchanged.
func (c *Client) absoluteURL(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}

	return c.baseURL + href
}
