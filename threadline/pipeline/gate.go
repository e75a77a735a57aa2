package pipeline

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
)

// gate owns the degrade state of one sink. A sink starts available, degrades
// on the first write error, and comes back only through an explicit Reset or,
// when a recovery probe is configured, through a single successful trial
// write per probe interval.
//
// The probe rides gobreaker's half-open semantics with MaxRequests capped at
// one, so a degraded remote never turns into a retry flood against a
// collector that is still down.
type gate struct {
	name          string
	probeInterval time.Duration

	// manual mode
	degraded atomic.Bool

	// probe mode; gobreaker has no manual reset, so Reset recreates the
	// breaker with identical settings.
	mu      sync.Mutex
	breaker *gobreaker.CircuitBreaker
}

func newGate(name string, probeInterval time.Duration) *gate {
	g := &gate{name: name, probeInterval: probeInterval}
	if probeInterval > 0 {
		g.breaker = g.newBreaker()
	}

	return g
}

func (g *gate) newBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        g.name,
		MaxRequests: 1,
		Timeout:     g.probeInterval,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
	})
}

// do runs one write through the gate. attempted is false when the gate
// skipped the write because the sink is degraded; err is the write's own
// failure when it was attempted.
func (g *gate) do(fn func() error) (attempted bool, err error) {
	if g.breaker != nil {
		g.mu.Lock()
		breaker := g.breaker
		g.mu.Unlock()

		_, err := breaker.Execute(func() (any, error) {
			return nil, fn()
		})

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return false, nil
		}

		return true, err
	}

	if g.degraded.Load() {
		return false, nil
	}

	if err := fn(); err != nil {
		g.degraded.Store(true)

		return true, err
	}

	return true, nil
}

// available reports whether the next write would be attempted. In probe mode
// a half-open gate counts as available.
func (g *gate) available() bool {
	if g.breaker != nil {
		g.mu.Lock()
		defer g.mu.Unlock()

		return g.breaker.State() != gobreaker.StateOpen
	}

	return !g.degraded.Load()
}

// reset restores the gate to available.
func (g *gate) reset() {
	if g.breaker != nil {
		g.mu.Lock()
		g.breaker = g.newBreaker()
		g.mu.Unlock()

		return
	}

	g.degraded.Store(false)
}
