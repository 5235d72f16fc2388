package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/pateepk/AgileSite-sub083/internal/eventlog"
	"github.com/pateepk/AgileSite-sub083/internal/queue"
)

func TestTickContainsFailureAndNextCycleSucceeds(t *testing.T) {
	q := queue.New()
	storeErr := errors.New("connection reset")
	store := &stubStore{errs: []error{storeErr, nil}, lastIDs: []int64{2}}
	events := &recordingEvents{}

	var processed int
	w := NewWorker(NewPersistor(q, store),
		WithEventLogger(events),
		WithOnProcessed(func() { processed++ }),
	)

	beforeFailed := testutil.ToFloat64(cycleCounter.WithLabelValues(string(OutcomeFailed)))

	enqueue(t, q, activity("lost"))
	w.Tick(context.Background())

	require.Equal(t, 1, processed)
	require.Len(t, events.entries, 1)
	require.Equal(t, eventSource, events.entries[0].source)
	require.Equal(t, eventCode, events.entries[0].code)
	require.ErrorIs(t, events.entries[0].err, storeErr)
	require.InDelta(t, beforeFailed+1, testutil.ToFloat64(cycleCounter.WithLabelValues(string(OutcomeFailed))), 0.0001)

	a, b := activity("a"), activity("b")
	enqueue(t, q, a, b)
	w.Tick(context.Background())

	require.Equal(t, 2, processed)
	require.Len(t, events.entries, 1)
	require.Equal(t, int64(1), a.ID)
	require.Equal(t, int64(2), b.ID)
}

func TestTickRecoversPanic(t *testing.T) {
	events := &recordingEvents{}
	var processed int
	w := NewWorker(flusherFunc(func(context.Context) (FlushResult, error) {
		panic("nil map write")
	}), WithEventLogger(events), WithOnProcessed(func() { processed++ }))

	require.NotPanics(t, func() { w.Tick(context.Background()) })
	require.Equal(t, 1, processed)
	require.Len(t, events.entries, 1)
	require.Contains(t, events.entries[0].err.Error(), "nil map write")
}

func TestTickFiresProcessedOnEmptyCycle(t *testing.T) {
	var processed int
	w := NewWorker(NewPersistor(queue.New(), &stubStore{}), WithOnProcessed(func() { processed++ }))
	w.OnProcessed(func() { processed += 10 })

	w.Tick(context.Background())

	require.Equal(t, 11, processed)
}

func TestTickFlushesWithAsyncSuppressed(t *testing.T) {
	var allowed atomic.Bool
	allowed.Store(true)
	w := NewWorker(flusherFunc(func(ctx context.Context) (FlushResult, error) {
		allowed.Store(AsyncAllowed(ctx))
		return FlushResult{Outcome: OutcomeEmpty}, nil
	}))

	w.Tick(context.Background())

	require.False(t, allowed.Load())
}

func TestWorkerNeverOverlapsCycles(t *testing.T) {
	var running, maxRunning, cycles atomic.Int32
	flusher := flusherFunc(func(context.Context) (FlushResult, error) {
		n := running.Add(1)
		for {
			m := maxRunning.Load()
			if n <= m || maxRunning.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		running.Add(-1)
		return FlushResult{Outcome: OutcomeEmpty}, nil
	})

	done := make(chan struct{}, 16)
	w := NewWorker(flusher,
		WithInterval(5*time.Millisecond),
		WithOnProcessed(func() {
			cycles.Add(1)
			select {
			case done <- struct{}{}:
			default:
			}
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("worker did not complete a cycle")
		}
	}
	w.Stop()
	w.Wait()

	require.GreaterOrEqual(t, cycles.Load(), int32(3))
	require.Equal(t, int32(1), maxRunning.Load())
}

func TestWorkerSurvivesRepeatedFailures(t *testing.T) {
	q := queue.New()
	store := &stubStore{errs: []error{errors.New("first"), errors.New("second")}}
	events := &recordingEvents{}

	w := NewWorker(NewPersistor(q, store),
		WithInterval(time.Millisecond),
		WithEventLogger(events),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	enqueue(t, q, activity("x"))
	require.Eventually(t, func() bool { return store.callCount() == 1 }, 5*time.Second, time.Millisecond)
	enqueue(t, q, activity("y"))
	require.Eventually(t, func() bool { return store.callCount() == 2 }, 5*time.Second, time.Millisecond)
	z := activity("z")
	enqueue(t, q, z)
	require.Eventually(t, func() bool { return store.written() == 1 }, 5*time.Second, time.Millisecond)

	cancel()
	w.Wait()
	require.Len(t, events.snapshot(), 2)
	require.Equal(t, int64(1), z.ID)
}

func TestWorkerDrainsQueueOnStop(t *testing.T) {
	q := queue.New()
	store := &stubStore{}
	w := NewWorker(NewPersistor(q, store),
		WithInterval(time.Hour),
		WithDrainOnStop(true, time.Second),
	)

	go w.Start(context.Background())
	enqueue(t, q, activity("a"), activity("b"))
	w.Stop()
	w.Wait()

	require.Equal(t, 2, store.written())
	require.Equal(t, 0, q.Len())
}

func TestWorkerWithoutDrainLeavesQueue(t *testing.T) {
	q := queue.New()
	store := &stubStore{}
	w := NewWorker(NewPersistor(q, store), WithInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	go w.Start(ctx)
	enqueue(t, q, activity("a"))
	cancel()
	w.Wait()

	require.Zero(t, store.written())
	require.Equal(t, 1, q.Len())
}

func TestWorkerIntervalResolution(t *testing.T) {
	flusher := flusherFunc(func(context.Context) (FlushResult, error) { return FlushResult{}, nil })

	require.Equal(t, DefaultInterval, NewWorker(flusher).Interval())

	source := &stubSettings{values: map[string]int{IntervalSettingKey: 2500}}
	w := NewWorker(flusher, WithSettings(source))
	require.Equal(t, 2500*time.Millisecond, w.Interval())

	// cached: later setting changes need an explicit Reconfigure
	source.set(IntervalSettingKey, 100)
	require.Equal(t, 2500*time.Millisecond, w.Interval())
	w.Reconfigure(time.Second)
	require.Equal(t, time.Second, w.Interval())
	w.Reconfigure(0)
	require.Equal(t, DefaultInterval, w.Interval())

	explicit := NewWorker(flusher, WithSettings(source), WithInterval(3*time.Second))
	require.Equal(t, 3*time.Second, explicit.Interval())

	broken := NewWorker(flusher, WithSettings(&stubSettings{values: map[string]int{IntervalSettingKey: -1}}))
	require.Equal(t, DefaultInterval, broken.Interval())
}

type flusherFunc func(context.Context) (FlushResult, error)

func (f flusherFunc) Flush(ctx context.Context) (FlushResult, error) { return f(ctx) }

type eventEntry struct {
	source string
	code   string
	err    error
}

type recordingEvents struct {
	mu      sync.Mutex
	entries []eventEntry
}

var _ eventlog.Logger = (*recordingEvents)(nil)

func (r *recordingEvents) LogException(source, code string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, eventEntry{source: source, code: code, err: err})
}

func (r *recordingEvents) snapshot() []eventEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]eventEntry(nil), r.entries...)
}
