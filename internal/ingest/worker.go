package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/pateepk/AgileSite-sub083/internal/eventlog"
	"github.com/pateepk/AgileSite-sub083/internal/settings"
)

const (
	// IntervalSettingKey names the setting holding the flush interval in milliseconds.
	IntervalSettingKey = "CMSActivityLogInterval"
	// DefaultInterval is used when no interval is configured.
	DefaultInterval = 10 * time.Second
	// DefaultDrainTimeout bounds the final flush performed on shutdown.
	DefaultDrainTimeout = 15 * time.Second

	eventSource = "ActivityQueueWorker"
	eventCode   = "PROCESSQUEUE"
)

// Flusher runs one drain-and-write pass.
type Flusher interface {
	Flush(ctx context.Context) (FlushResult, error)
}

// WorkerOption configures optional behaviour for the Worker.
type WorkerOption func(*Worker)

// WithInterval sets the flush interval, taking precedence over WithSettings.
func WithInterval(interval time.Duration) WorkerOption {
	return func(w *Worker) {
		w.explicitInterval = interval
	}
}

// WithSettings resolves the interval from IntervalSettingKey once, at construction.
func WithSettings(source settings.Source) WorkerOption {
	return func(w *Worker) {
		w.settings = source
	}
}

// WithEventLogger sets the sink for contained cycle failures.
func WithEventLogger(events eventlog.Logger) WorkerOption {
	return func(w *Worker) {
		if events != nil {
			w.events = events
		}
	}
}

// WithOnProcessed registers a callback fired after every cycle, whatever its outcome.
func WithOnProcessed(fn func()) WorkerOption {
	return func(w *Worker) {
		w.OnProcessed(fn)
	}
}

// WithQueueDepth samples the queue depth gauge after every cycle.
func WithQueueDepth(depth func() int) WorkerOption {
	return func(w *Worker) {
		w.depth = depth
	}
}

// WithDrainOnStop controls whether the worker runs one last cycle after it is stopped.
func WithDrainOnStop(enabled bool, timeout time.Duration) WorkerOption {
	return func(w *Worker) {
		w.drainOnStop = enabled
		if timeout > 0 {
			w.drainTimeout = timeout
		}
	}
}

// WithWorkerLogger overrides the logger.
func WithWorkerLogger(log *logrus.Entry) WorkerOption {
	return func(w *Worker) {
		w.log = log
	}
}

// Worker drives the Flusher on a fixed cadence from a single goroutine.
//
// The timer is only re-armed once a cycle has returned, so cycles never overlap
// and a slow cycle simply delays the next one. No failure inside a cycle stops
// the loop.
type Worker struct {
	flusher          Flusher
	settings         settings.Source
	explicitInterval time.Duration
	interval         atomic.Int64
	events           eventlog.Logger
	log              *logrus.Entry
	depth            func() int
	drainOnStop      bool
	drainTimeout     time.Duration

	hooksMu     sync.Mutex
	onProcessed []func()

	stopOnce         sync.Once
	stop             chan struct{}
	shutdownComplete chan struct{}
}

// NewWorker constructs a Worker. The interval is resolved here and cached;
// use Reconfigure to change it later.
func NewWorker(flusher Flusher, opts ...WorkerOption) *Worker {
	log := logrus.StandardLogger().WithField("component", "activity-worker")
	w := &Worker{
		flusher:          flusher,
		events:           eventlog.NewLogrus(log),
		log:              log,
		drainTimeout:     DefaultDrainTimeout,
		stop:             make(chan struct{}),
		shutdownComplete: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	interval := w.explicitInterval
	if interval <= 0 && w.settings != nil {
		ms := w.settings.GetIntSetting(context.Background(), IntervalSettingKey, int(DefaultInterval/time.Millisecond))
		interval = time.Duration(ms) * time.Millisecond
	}
	w.Reconfigure(interval)
	return w
}

// Interval returns the current flush interval.
func (w *Worker) Interval() time.Duration {
	return time.Duration(w.interval.Load())
}

// Reconfigure replaces the flush interval; it applies from the next sleep.
// Non-positive values restore DefaultInterval.
func (w *Worker) Reconfigure(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	w.interval.Store(int64(interval))
}

// OnProcessed registers a callback fired after every cycle.
func (w *Worker) OnProcessed(fn func()) {
	if fn == nil {
		return
	}
	w.hooksMu.Lock()
	defer w.hooksMu.Unlock()
	w.onProcessed = append(w.onProcessed, fn)
}

// Start runs the loop until ctx is cancelled or Stop is called. It should be
// called once, in its own goroutine.
func (w *Worker) Start(ctx context.Context) {
	timer := time.NewTimer(w.Interval())
	defer func() {
		timer.Stop()
		if w.drainOnStop {
			w.drain()
		}
		close(w.shutdownComplete)
	}()

	w.log.WithField("interval", w.Interval()).Info("activity worker started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-timer.C:
		}

		w.Tick(ctx)
		timer.Reset(w.Interval())
	}
}

// Stop asks the loop to exit. It does not wait; use Wait for that.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
}

// Wait blocks until Start has returned.
func (w *Worker) Wait() {
	<-w.shutdownComplete
}

// Tick runs a single cycle synchronously. Failures and panics are logged and
// absorbed, and the processed callbacks fire regardless of outcome.
func (w *Worker) Tick(ctx context.Context) {
	start := time.Now()
	outcome := OutcomeFailed

	defer func() {
		if r := recover(); r != nil {
			w.events.LogException(eventSource, eventCode, errors.Errorf("panic during activity flush: %v", r))
		}
		cycleDuration.Observe(time.Since(start).Seconds())
		cycleCounter.WithLabelValues(string(outcome)).Inc()
		if w.depth != nil {
			queueDepthGauge.Set(float64(w.depth()))
		}
		w.notifyProcessed()
	}()

	result, err := w.flusher.Flush(SuppressAsync(ctx))
	if err != nil {
		w.events.LogException(eventSource, eventCode, err)
		return
	}
	outcome = result.Outcome
}

func (w *Worker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), w.drainTimeout)
	defer cancel()
	w.log.Info("activity worker draining queue before exit")
	w.Tick(ctx)
}

func (w *Worker) notifyProcessed() {
	w.hooksMu.Lock()
	hooks := append([]func(){}, w.onProcessed...)
	w.hooksMu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}
