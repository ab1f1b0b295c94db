package providers

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/i474232898/agro-insight/internal/agro"
)

// attempt is one position in an adapter's upstream chain. A nil fetch marks a disabled
// upstream; it is skipped but keeps its position, so the next enabled upstream is still
// tagged by its own index.
type attempt[T any] struct {
	upstream string
	fetch    func(ctx context.Context) (T, error)
}

// firstSuccess runs the attempts in order, each bounded by timeout, and returns the first
// successful result with the source tag of its position.
func firstSuccess[T any](ctx context.Context, log *slog.Logger, adapter string, timeout time.Duration, attempts []attempt[T]) (T, agro.Source, bool) {
	var zero T
	for i, a := range attempts {
		if a.fetch == nil {
			continue
		}
		if ctx.Err() != nil {
			log.Warn("adapter deadline reached", "adapter", adapter, "upstream", a.upstream, "err", ctx.Err())
			return zero, "", false
		}

		actx, cancel := context.WithTimeout(ctx, timeout)
		v, err := a.fetch(actx)
		cancel()
		if err == nil {
			return v, agro.SourceAt(i), true
		}
		log.Warn("upstream failed", "adapter", adapter, "upstream", a.upstream, "err", err)
	}
	return zero, "", false
}

// safeMock runs a simulation and converts a panic into an error.
func safeMock[T any](simulate func() T) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("simulation panicked: %v", r)
		}
	}()
	return simulate(), nil
}

// healthTracker holds an adapter's health, written once per call or probe.
type healthTracker struct {
	v atomic.Value
}

func (h *healthTracker) set(s agro.Health) { h.v.Store(s) }

func (h *healthTracker) get() agro.Health {
	if s, ok := h.v.Load().(agro.Health); ok {
		return s
	}
	return agro.HealthHealthy
}

func (h *healthTracker) record(src agro.Source) {
	if src == agro.SourcePrimary {
		h.set(agro.HealthHealthy)
		return
	}
	h.set(agro.HealthDegraded)
}

// Rand is the randomness consumed by the simulations.
type Rand interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// DefaultRand returns a goroutine-safe source backed by math/rand/v2.
func DefaultRand() Rand { return globalRand{} }

// FixedRand always returns the same draw. FixedRand(0.5) centres every uniform range,
// which makes the random-walk components zero.
type FixedRand float64

func (f FixedRand) Float64() float64 { return float64(f) }

func uniform(r Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*r.Float64()
}
