// Package frontlink builds links to front-end pages sent to users.
package frontlink

import (
	"fmt"
	"net/url"
	"strings"
)

// Route of the front-end page where user sets new password
const RouteChangePassword = "changePasswordWithToken"

type Builder struct {
	base string
}

func New(baseURL string) (*Builder, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid front url %q. Err: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("front url must be absolute, got %q", baseURL)
	}

	return &Builder{base: strings.TrimRight(baseURL, "/")}, nil
}

// Build link to route with query params
// Params are escaped and sorted by key
func (b *Builder) Build(route string, params map[string]string) string {
	link := b.base + "/" + strings.TrimLeft(route, "/")

	if len(params) == 0 {
		return link
	}

	q := make(url.Values, len(params))
	for k, v := range params {
		q.Set(k, v)
	}

	return link + "?" + q.Encode()
}
