// Package runtime provides panic isolation for best-effort instrumentation
// paths. Telemetry code runs inside the host application's request flow; a
// panic in a sink, span annotation, or metric recording must never take the
// host down with it.
package runtime

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/threadline-io/lib-threadline/threadline/internal/nilcheck"
	"github.com/threadline-io/lib-threadline/threadline/log"
)

// Guard runs fn and swallows any panic, logging it with the stack trace.
// Use it around span/metric/sink calls that must stay best-effort.
//
//	runtime.Guard(ctx, logger, "metric-record", func() {
//	    counter.Add(ctx, 1)
//	})
func Guard(ctx context.Context, logger log.Logger, scope string, fn func()) {
	if fn == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logPanic(ctx, logger, scope, r, debug.Stack())
		}
	}()

	fn()
}

// GuardErr runs fn and converts any panic into a returned error instead of
// letting it escape. The sinks in the pipeline package use this so a panicking
// exporter degrades the sink rather than crashing the caller.
func GuardErr(ctx context.Context, logger log.Logger, scope string, fn func() error) (err error) {
	if fn == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			logPanic(ctx, logger, scope, r, debug.Stack())
			err = fmt.Errorf("panic in %s: %v", scope, r)
		}
	}()

	return fn()
}

// SafeGo launches fn on a new goroutine with panic recovery. The goroutine
// logs and exits on panic; it never crashes the process.
func SafeGo(logger log.Logger, scope string, fn func()) {
	if fn == nil {
		return
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logPanic(context.Background(), logger, scope, r, debug.Stack())
			}
		}()

		fn()
	}()
}

func logPanic(ctx context.Context, logger log.Logger, scope string, panicValue any, stack []byte) {
	if nilcheck.Interface(logger) {
		return
	}

	logger.Log(ctx, log.LevelError, "panic recovered",
		log.String("scope", scope),
		log.String("panic", fmt.Sprintf("%v", panicValue)),
		log.String("stack", string(stack)),
	)
}
