package carrier

import (
	"context"
	"net/http"
)

// FromHTTPHeader lowercases request headers into a Carrier. Multi-valued
// fields resolve to their first value.
func FromHTTPHeader(h http.Header) Carrier {
	c := Carrier{}

	for key, values := range h {
		if len(values) > 0 {
			c.Set(key, values[0])
		}
	}

	return c
}

// FromHeaderMap builds a Carrier from a pre-flattened header map, as produced
// by frameworks that expose single-valued header views.
func FromHeaderMap(h map[string]string) Carrier {
	c := Carrier{}

	for key, value := range h {
		c.Set(key, value)
	}

	return c
}

// InjectHTTPHeader writes the active context's trace identity into outgoing
// client request headers.
func InjectHTTPHeader(ctx context.Context, h http.Header) {
	for k, v := range Inject(ctx) {
		h.Set(k, v)
	}
}
