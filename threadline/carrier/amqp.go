package carrier

import (
	"context"
	"maps"

	amqp "github.com/rabbitmq/amqp091-go"
)

// FromAMQPTable extracts string-valued entries from broker message headers
// into a Carrier. Non-string values contribute nothing.
func FromAMQPTable(headers amqp.Table) Carrier {
	c := Carrier{}

	for k, v := range headers {
		if s, ok := v.(string); ok {
			c.Set(k, s)
		}
	}

	return c
}

// InjectAMQPTable returns a copy of base with the active context's trace
// identity merged in. Caller-supplied headers are preserved; only the
// propagation keys are written over. The input table is never mutated.
func InjectAMQPTable(ctx context.Context, base amqp.Table) amqp.Table {
	headers := amqp.Table{}

	if base != nil {
		maps.Copy(headers, base)
	}

	for k, v := range Inject(ctx) {
		headers[k] = v
	}

	return headers
}

// ExtractAMQP returns a context carrying the identity found in broker message
// headers, derived from ctx.
func ExtractAMQP(ctx context.Context, headers amqp.Table) context.Context {
	return Extract(ctx, FromAMQPTable(headers))
}
