package telemetry

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/threadline-io/lib-threadline/threadline/log"
)

// shutdownGrace bounds how long RunUntilSignal waits for exporters to flush.
const shutdownGrace = 30 * time.Second

// RunUntilSignal blocks until SIGINT/SIGTERM arrives or ctx is done, then
// runs the ordered shutdown with a bounded grace period. Hosts that own
// their own lifecycle call Shutdown directly instead.
func (t *Telemetry) RunUntilSignal(ctx context.Context) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	defer signal.Stop(sig)

	select {
	case <-ctx.Done():
		t.logger.Log(ctx, log.LevelInfo, "context done, shutting down telemetry")
	case received := <-sig:
		t.logger.Log(ctx, log.LevelInfo, "signal received, shutting down telemetry",
			log.String("signal", received.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	t.Shutdown(shutdownCtx)
}
