package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	gerrors "github.com/vinayprograms/llmgate/errors"
	"github.com/vinayprograms/llmgate/llm"
	"github.com/vinayprograms/llmgate/telemetry"
)

// tolerance absorbs timer and scheduler resolution in gap assertions.
const tolerance = 15 * time.Millisecond

func newTestGate(t *testing.T, interval time.Duration) (*Gate, *llm.MockProvider) {
	t.Helper()
	mock := llm.NewMockProvider()
	mock.SetResponse("ok")

	g, err := New(mock, Config{
		MinInterval: interval,
		Provider:    "openrouter",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g, mock
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil, Config{}); !gerrors.Is(err, gerrors.ErrCodeInvalidConfig) {
		t.Errorf("expected INVALID_CONFIG for nil provider, got %v", err)
	}

	mock := llm.NewMockProvider()
	if _, err := New(mock, Config{MinInterval: -time.Second}); !gerrors.Is(err, gerrors.ErrCodeInvalidConfig) {
		t.Errorf("expected INVALID_CONFIG for negative interval, got %v", err)
	}
}

func TestGate_FirstCallNeverWaits(t *testing.T) {
	g, mock := newTestGate(t, 2*time.Second)

	start := time.Now()
	if _, err := g.Invoke(llm.ChatRequest{}); err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("first call should not wait, took %v", elapsed)
	}
	if mock.CallCount() != 1 {
		t.Errorf("expected 1 dispatch, got %d", mock.CallCount())
	}
	if g.Stats().Waits != 0 {
		t.Errorf("expected no waits, got %d", g.Stats().Waits)
	}
}

func TestGate_SequentialCallsSpaced(t *testing.T) {
	const interval = 100 * time.Millisecond
	g, mock := newTestGate(t, interval)

	for i := 0; i < 3; i++ {
		if _, err := g.Invoke(llm.ChatRequest{}); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	times := mock.CallTimes()
	if len(times) != 3 {
		t.Fatalf("expected 3 dispatches, got %d", len(times))
	}
	for i := 1; i < len(times); i++ {
		if gap := times[i].Sub(times[i-1]); gap < interval-tolerance {
			t.Errorf("dispatch %d only %v after dispatch %d, want >= %v", i, gap, i-1, interval)
		}
	}
}

func TestGate_ZeroIntervalNeverWaits(t *testing.T) {
	g, mock := newTestGate(t, 0)

	start := time.Now()
	for i := 0; i < 10; i++ {
		if _, err := g.Invoke(llm.ChatRequest{}); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("zero interval should never wait, 10 calls took %v", elapsed)
	}
	if mock.CallCount() != 10 {
		t.Errorf("expected 10 dispatches, got %d", mock.CallCount())
	}
	if g.Stats().Waits != 0 {
		t.Errorf("expected no waits, got %d", g.Stats().Waits)
	}
}

func TestGate_ConcurrentCallersSerialized(t *testing.T) {
	const (
		interval = 60 * time.Millisecond
		callers  = 4
	)
	g, mock := newTestGate(t, interval)

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := g.Invoke(llm.ChatRequest{}); err != nil {
				t.Errorf("Invoke: %v", err)
			}
		}()
	}
	wg.Wait()
	span := time.Since(start)

	times := mock.CallTimes()
	if len(times) != callers {
		t.Fatalf("expected %d dispatches, got %d", callers, len(times))
	}
	for i := 1; i < len(times); i++ {
		if gap := times[i].Sub(times[i-1]); gap < interval-tolerance {
			t.Errorf("concurrent dispatches %d and %d only %v apart, want >= %v", i-1, i, gap, interval)
		}
	}

	if want := time.Duration(callers-1)*interval - tolerance; span < want {
		t.Errorf("total span %v, want >= %v", span, want)
	}
}

func TestGate_IntervalMeasuredFromCompletion(t *testing.T) {
	// A dispatches at t=0 and takes 100ms; B arrives at t=50ms. B must not
	// dispatch before A's completion plus the interval, i.e. t>=300ms.
	const (
		interval = 200 * time.Millisecond
		latency  = 100 * time.Millisecond
	)
	g, mock := newTestGate(t, interval)
	mock.SetDelay(latency)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := g.Invoke(llm.ChatRequest{}); err != nil {
			t.Errorf("caller A: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		time.Sleep(50 * time.Millisecond)
		if _, err := g.Invoke(llm.ChatRequest{}); err != nil {
			t.Errorf("caller B: %v", err)
		}
	}()
	wg.Wait()

	times := mock.CallTimes()
	if len(times) != 2 {
		t.Fatalf("expected 2 dispatches, got %d", len(times))
	}
	// Gap between dispatch starts must cover A's latency plus the interval.
	if gap := times[1].Sub(times[0]); gap < latency+interval-tolerance {
		t.Errorf("B dispatched %v after A, want >= %v", gap, latency+interval)
	}
}

func TestGate_CancellationBeforeDispatch(t *testing.T) {
	g, mock := newTestGate(t, 500*time.Millisecond)

	// Prime the timer.
	if _, err := g.Invoke(llm.ChatRequest{}); err != nil {
		t.Fatalf("priming call: %v", err)
	}
	lastBefore := g.LastCall()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := g.InvokeContext(ctx, llm.ChatRequest{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}

	if mock.CallCount() != 1 {
		t.Errorf("cancelled call must not reach the backend, got %d dispatches", mock.CallCount())
	}
	if !g.LastCall().Equal(lastBefore) {
		t.Error("cancelled call must not advance the shared timer")
	}
}

func TestGate_CancellationWhileAnotherCallInFlight(t *testing.T) {
	g, mock := newTestGate(t, 100*time.Millisecond)
	mock.SetDelay(300 * time.Millisecond)

	started := make(chan struct{})
	go func() {
		close(started)
		g.Invoke(llm.ChatRequest{})
	}()
	<-started
	time.Sleep(50 * time.Millisecond) // let A reach the backend

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := g.InvokeContext(ctx, llm.ChatRequest{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded while queued behind in-flight call, got %v", err)
	}
}

func TestGate_BackendErrorPropagatesUnchanged(t *testing.T) {
	g, mock := newTestGate(t, 100*time.Millisecond)
	backendErr := fmt.Errorf("upstream exploded")
	mock.SetError(backendErr)

	_, err := g.Invoke(llm.ChatRequest{})
	if !errors.Is(err, backendErr) {
		t.Fatalf("expected the backend error unchanged, got %v", err)
	}

	// A failed attempt still consumed rate budget: the next call waits.
	if g.LastCall().IsZero() {
		t.Error("failed attempt should advance the shared timer")
	}

	mock.SetError(nil)
	if _, err := g.Invoke(llm.ChatRequest{}); err != nil {
		t.Fatalf("second call: %v", err)
	}

	times := mock.CallTimes()
	if gap := times[1].Sub(times[0]); gap < 100*time.Millisecond-tolerance {
		t.Errorf("dispatch after failure only %v later, want >= 100ms", gap)
	}
}

func TestGate_Diagnostics(t *testing.T) {
	mock := llm.NewMockProvider()
	mock.SetResponse("ok")
	exporter := telemetry.NewMemoryExporter()

	var observed []time.Duration
	g, err := New(mock, Config{
		MinInterval: 50 * time.Millisecond,
		Provider:    "openrouter",
		Exporter:    exporter,
		OnWait: func(wait time.Duration) {
			observed = append(observed, wait)
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	g.Invoke(llm.ChatRequest{})
	g.Invoke(llm.ChatRequest{})

	if len(observed) == 0 {
		t.Error("expected OnWait to fire for the second call")
	}

	waits := exporter.ByName("gate.wait")
	if len(waits) == 0 {
		t.Fatal("expected gate.wait events")
	}
	if waits[0].Fields["provider"] != "openrouter" {
		t.Errorf("expected provider label in event, got %v", waits[0].Fields)
	}

	if len(exporter.ByName("gate.dispatch")) != 2 {
		t.Errorf("expected 2 dispatch events, got %d", len(exporter.ByName("gate.dispatch")))
	}

	stats := g.Stats()
	if stats.Calls != 2 {
		t.Errorf("expected 2 calls, got %d", stats.Calls)
	}
	if stats.Waits == 0 || stats.TotalWait <= 0 {
		t.Errorf("expected recorded waits, got %+v", stats)
	}
}

func TestGate_Accessors(t *testing.T) {
	g, _ := newTestGate(t, time.Minute)

	if g.Provider() != "openrouter" {
		t.Errorf("unexpected provider label: %s", g.Provider())
	}
	if g.Interval() != time.Minute {
		t.Errorf("unexpected interval: %v", g.Interval())
	}
	if !g.LastCall().IsZero() {
		t.Error("expected zero last-call before any dispatch")
	}
}
