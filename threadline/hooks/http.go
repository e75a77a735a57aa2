package hooks

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/threadline-io/lib-threadline/threadline/carrier"
	"github.com/threadline-io/lib-threadline/threadline/metrics"
)

// HTTPMiddleware returns a fiber handler that extracts the incoming trace
// identity, runs the request under a server span bound to the user context,
// and records request metrics with the final status. Handler errors and
// panics are observed, annotated, and re-surfaced unchanged.
func (h *Hooks) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := carrier.Extract(c.UserContext(), carrierFromFiber(c))

		method := c.Method()

		ctx, span := h.tracer.Start(ctx, method+" "+c.Path(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", method),
				attribute.String("http.target", c.Path()),
				attribute.String("http.scheme", c.Protocol()),
			),
		)

		c.SetUserContext(ctx)

		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				h.recorder.RecordRequest(ctx, method, routePattern(c),
					fiber.StatusInternalServerError, time.Since(start), true)
				h.annotateFailure(ctx, span, metrics.OriginRequest, r)
				span.End()

				panic(r)
			}
		}()

		err := c.Next()

		route := routePattern(c)
		status := c.Response().StatusCode()
		failed := err != nil || status >= fiber.StatusInternalServerError

		span.SetName(method + " " + route)
		span.SetAttributes(
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
		)

		h.recorder.RecordRequest(ctx, method, route, status, time.Since(start), failed)

		if err != nil {
			h.annotateFailure(ctx, span, metrics.OriginRequest, err)
		} else if failed {
			span.SetStatus(codes.Error, "")
		} else {
			span.SetStatus(codes.Ok, "")
		}

		span.End()

		return err
	}
}

// carrierFromFiber builds a Carrier from the raw request headers. The first
// value of a repeated header wins.
func carrierFromFiber(c *fiber.Ctx) carrier.Carrier {
	out := carrier.Carrier{}

	c.Request().Header.VisitAll(func(key, value []byte) {
		k := strings.ToLower(string(key))
		if _, seen := out[k]; !seen {
			out[k] = string(value)
		}
	})

	return out
}

// routePattern prefers the registered route template over the raw path so
// the metric label stays bounded even before normalization.
func routePattern(c *fiber.Ctx) string {
	if route := c.Route(); route != nil && route.Path != "" && route.Path != "/*" {
		return route.Path
	}

	return c.Path()
}
