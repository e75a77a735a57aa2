package carrier

import (
	"context"
	"net/http"
)

// PayloadTraceField is the conventional envelope property under which socket
// payloads carry a propagation sub-map, for transports without real headers
// on every event.
const PayloadTraceField = "_trace"

// Propagation header names recognized in handshake query parameters.
const (
	TraceparentKey = "traceparent"
	TracestateKey  = "tracestate"
)

// Handshake is the transport-agnostic view of a socket connection handshake.
// The socket library itself is an external collaborator; hooks adapt its
// session object into this shape once per connection.
type Handshake struct {
	Headers http.Header
	Query   map[string]string
}

// FromHandshake merges, in priority order, handshake headers, the payload's
// "_trace" envelope, and the two propagation query parameters into one
// Carrier. Later sources override earlier ones only for keys they define.
// Absent or malformed sources contribute nothing.
func FromHandshake(hs Handshake, payload map[string]any) Carrier {
	c := FromHTTPHeader(hs.Headers)

	c.Merge(fromPayloadEnvelope(payload))

	if hs.Query != nil {
		if tp := hs.Query[TraceparentKey]; tp != "" {
			c.Set(TraceparentKey, tp)
		}

		if ts := hs.Query[TracestateKey]; ts != "" {
			c.Set(TracestateKey, ts)
		}
	}

	return c
}

// fromPayloadEnvelope pulls string entries out of payload[PayloadTraceField].
// The envelope may arrive as map[string]string or, after JSON decoding, as
// map[string]any.
func fromPayloadEnvelope(payload map[string]any) Carrier {
	c := Carrier{}

	if payload == nil {
		return c
	}

	switch envelope := payload[PayloadTraceField].(type) {
	case map[string]string:
		for k, v := range envelope {
			c.Set(k, v)
		}
	case map[string]any:
		for k, v := range envelope {
			if s, ok := v.(string); ok {
				c.Set(k, s)
			}
		}
	}

	return c
}

// InjectPayload returns a copy of payload with a freshly injected carrier
// under the "_trace" field, for client-side correlation continuation. The
// input payload is never mutated and no global state is touched.
func InjectPayload(ctx context.Context, payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload)+1)

	for k, v := range payload {
		out[k] = v
	}

	injected := Inject(ctx)
	envelope := make(map[string]string, len(injected))

	for k, v := range injected {
		envelope[k] = v
	}

	out[PayloadTraceField] = envelope

	return out
}
