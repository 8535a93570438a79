// Package gate enforces a minimum interval between dispatches to an LLM
// backend. One gate wraps one backend client and is shared by every caller
// of that backend; the gate guarantees that no two dispatches it performs
// are closer together than the configured interval, measured from the
// completion of one attempt to the start of the next.
package gate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	gerrors "github.com/vinayprograms/llmgate/errors"
	"github.com/vinayprograms/llmgate/llm"
	"github.com/vinayprograms/llmgate/logging"
	"github.com/vinayprograms/llmgate/telemetry"
)

// Config holds construction parameters for a Gate.
type Config struct {
	// MinInterval is the minimum spacing between backend dispatches.
	// Zero disables gating entirely. No upper bound is enforced;
	// legitimate quota windows can be minutes long.
	MinInterval time.Duration

	// Provider is the label used in diagnostics. It does not affect
	// behavior.
	Provider string

	// Logger receives wait and dispatch diagnostics. Optional.
	Logger *logging.Logger

	// Exporter receives gate.wait and gate.dispatch events. Optional.
	Exporter telemetry.Exporter

	// OnWait, if set, is called with the computed wait duration before
	// each applied delay. Advisory only.
	OnWait func(wait time.Duration)
}

// Stats is a snapshot of gate counters.
type Stats struct {
	Calls     int64         // dispatches attempted
	Waits     int64         // delays applied
	TotalWait time.Duration // cumulative applied delay
}

// Gate wraps a backend client with minimum-interval rate limiting.
// Safe for concurrent use; all callers of one instance share its timer.
type Gate struct {
	provider llm.Provider
	interval time.Duration
	label    string
	log      *logging.Logger
	exporter telemetry.Exporter
	onWait   func(time.Duration)

	mu   sync.Mutex
	last time.Time     // completion time of the most recent attempt; zero until then
	busy chan struct{} // non-nil while a dispatch is in flight; closed on completion
	now  func() time.Time

	calls     atomic.Int64
	waits     atomic.Int64
	waitNanos atomic.Int64
}

// New creates a gate around the given backend client. The gate becomes the
// sole caller of the client; invoking the client directly bypasses the
// interval guarantee.
func New(provider llm.Provider, cfg Config) (*Gate, error) {
	if provider == nil {
		return nil, gerrors.InvalidConfig("provider is required")
	}
	if cfg.MinInterval < 0 {
		return nil, gerrors.InvalidConfig("minimum interval must be non-negative")
	}

	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}
	exporter := cfg.Exporter
	if exporter == nil {
		exporter = telemetry.NewNoopExporter()
	}

	return &Gate{
		provider: provider,
		interval: cfg.MinInterval,
		label:    cfg.Provider,
		log:      log.WithComponent("gate"),
		exporter: exporter,
		onWait:   cfg.OnWait,
		now:      time.Now,
	}, nil
}

// Provider returns the diagnostic label of the wrapped backend.
func (g *Gate) Provider() string {
	return g.label
}

// Interval returns the configured minimum interval.
func (g *Gate) Interval() time.Duration {
	return g.interval
}

// LastCall returns the completion time of the most recent attempt.
// The zero time means no attempt has completed yet.
func (g *Gate) LastCall() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

// Stats returns a snapshot of the gate counters.
func (g *Gate) Stats() Stats {
	return Stats{
		Calls:     g.calls.Load(),
		Waits:     g.waits.Load(),
		TotalWait: time.Duration(g.waitNanos.Load()),
	}
}

// Invoke dispatches a request, blocking the calling goroutine until the
// interval since the previous attempt's completion has elapsed. The
// backend's response or error is returned unchanged.
func (g *Gate) Invoke(req llm.ChatRequest) (*llm.ChatResponse, error) {
	return g.InvokeContext(context.Background(), req)
}

// InvokeContext is Invoke with cancellable waiting. Cancellation while
// waiting returns ctx.Err() without touching the shared timer and without
// reaching the backend. Cancellation during the backend call is the
// backend's concern; the attempt still consumes rate budget once it
// returns.
func (g *Gate) InvokeContext(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if g.interval <= 0 {
		g.calls.Add(1)
		resp, err := g.provider.Chat(ctx, req)
		g.mu.Lock()
		g.last = g.now()
		g.mu.Unlock()
		return resp, err
	}

	if err := g.acquire(ctx); err != nil {
		return nil, err
	}

	callID := uuid.New().String()
	g.calls.Add(1)
	g.log.Debug("dispatching", map[string]interface{}{
		"call_id":  callID,
		"provider": g.label,
	})
	g.exporter.Record("gate.dispatch", map[string]interface{}{
		"call_id":  callID,
		"provider": g.label,
	})

	resp, err := g.provider.Chat(ctx, req)
	g.release()
	return resp, err
}

// acquire waits until a dispatch may begin, then marks the gate in-flight.
// The state mutex is held only for the read-decide-commit steps; all
// waiting happens outside it so concurrent callers can read the clock and
// compute their own waits.
func (g *Gate) acquire(ctx context.Context) error {
	for {
		g.mu.Lock()

		// Another dispatch is in flight. Its completion resets the
		// timer, so there is nothing to compute until it finishes.
		if g.busy != nil {
			done := g.busy
			g.mu.Unlock()
			select {
			case <-done:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		var wait time.Duration
		if !g.last.IsZero() {
			if elapsed := g.now().Sub(g.last); elapsed < g.interval {
				wait = g.interval - elapsed
			}
		}

		if wait <= 0 {
			g.busy = make(chan struct{})
			g.mu.Unlock()
			return nil
		}
		g.mu.Unlock()

		g.observeWait(wait)

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
			// Re-check: another caller may have dispatched meanwhile.
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// release records the attempt's completion and wakes waiting callers.
func (g *Gate) release() {
	g.mu.Lock()
	g.last = g.now()
	close(g.busy)
	g.busy = nil
	g.mu.Unlock()
}

// observeWait emits the wait diagnostics.
func (g *Gate) observeWait(wait time.Duration) {
	g.waits.Add(1)
	g.waitNanos.Add(int64(wait))

	g.log.Info("applying call delay", map[string]interface{}{
		"provider": g.label,
		"wait":     wait.Round(time.Millisecond).String(),
	})
	g.exporter.Record("gate.wait", map[string]interface{}{
		"provider": g.label,
		"wait_ms":  wait.Milliseconds(),
	})
	if g.onWait != nil {
		g.onWait(wait)
	}
}
