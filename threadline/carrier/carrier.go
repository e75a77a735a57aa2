// Package carrier converts between the flat string map that carries trace
// identity ("the carrier") and transport-specific representations: HTTP
// headers, AMQP message headers, socket handshake material, and gRPC
// metadata. Extraction is total: malformed input degrades to an empty
// carrier, never an error.
package carrier

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
)

// Carrier is a flat, lowercase-keyed string map — the sole exchange format
// for propagated identity. It implements propagation.TextMapCarrier.
type Carrier map[string]string

// Get returns the value associated with the passed key.
func (c Carrier) Get(key string) string {
	return c[strings.ToLower(key)]
}

// Set stores the key-value pair, lowercasing the key.
func (c Carrier) Set(key, value string) {
	c[strings.ToLower(key)] = value
}

// Keys lists the keys stored in this carrier.
func (c Carrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}

	return keys
}

// Merge copies other into c, overriding only the keys other defines.
func (c Carrier) Merge(other Carrier) {
	for k, v := range other {
		c.Set(k, v)
	}
}

// Inject serializes the active context's trace identity into a fresh Carrier
// using the globally configured propagator.
func Inject(ctx context.Context) Carrier {
	c := Carrier{}
	otel.GetTextMapPropagator().Inject(ctx, c)

	return c
}

// Extract returns a context carrying the identity found in c, derived from
// ctx. An empty or malformed carrier returns ctx's identity unchanged.
func Extract(ctx context.Context, c Carrier) context.Context {
	if len(c) == 0 {
		return ctx
	}

	return otel.GetTextMapPropagator().Extract(ctx, c)
}
