package spool

import (
	"context"
	"sync"
	"time"
)

// Default flusher settings, applied when the config leaves them zero.
const (
	defaultCycle        = 120 * time.Second
	defaultBatchSize    = 500
	defaultWriteTimeout = 10 * time.Second
)

// BatchWriter writes a batch of points to the time-series backend in a
// single call. A nil error means the whole batch was accepted.
type BatchWriter interface {
	WriteBatch(ctx context.Context, points []Point) error
}

// Logger is the minimal logging interface the flusher needs.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Result is the outcome of one flush attempt.
type Result struct {
	// Written is the number of points accepted by the backend.
	Written int

	// Requeued is the number of points put back at the queue head
	// after a failed write.
	Requeued int

	// Err is the write error, nil on success or when there was
	// nothing to flush.
	Err error
}

// FlusherConfig contains flush worker settings.
type FlusherConfig struct {
	// Cycle is the interval between flush ticks.
	Cycle time.Duration

	// BatchSize is the maximum number of points drained per tick.
	BatchSize int

	// WriteTimeout bounds a single backend write call so a slow
	// backend cannot stall subsequent ticks.
	WriteTimeout time.Duration
}

// Flusher periodically drains the queue and writes batches to the
// backend, retrying failed batches on the next tick.
//
// There is no retry limit: a point is retried until it is either
// written or evicted by the queue's capacity policy. A failed flush is
// logged, never fatal, and never surfaced to enqueuers.
type Flusher struct {
	queue  *Queue
	writer BatchWriter
	cfg    FlusherConfig

	// failures counts consecutive failed flush attempts.
	failures uint64
	failMu   sync.Mutex

	// onResult, when set, observes every non-empty flush outcome.
	onResult func(Result)

	logger   Logger
	loggerMu sync.RWMutex

	done chan struct{}
	wg   sync.WaitGroup
}

// NewFlusher creates a flush worker for the given queue and writer.
// Zero config fields fall back to defaults.
func NewFlusher(queue *Queue, writer BatchWriter, cfg FlusherConfig) *Flusher {
	if cfg.Cycle <= 0 {
		cfg.Cycle = defaultCycle
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}

	return &Flusher{
		queue:  queue,
		writer: writer,
		cfg:    cfg,
		done:   make(chan struct{}),
	}
}

// SetLogger sets a logger for flush visibility.
// If not set, flush outcomes are not logged.
func (f *Flusher) SetLogger(logger Logger) {
	f.loggerMu.Lock()
	f.logger = logger
	f.loggerMu.Unlock()
}

// SetOnResult sets a callback observing every non-empty flush outcome.
// Must be called before Start.
func (f *Flusher) SetOnResult(callback func(Result)) {
	f.onResult = callback
}

// Start launches the background flush loop.
func (f *Flusher) Start() {
	f.wg.Add(1)
	go f.flushLoop()
}

// flushLoop runs one flush attempt per tick until stopped.
func (f *Flusher) flushLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.cfg.Cycle)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.FlushOnce(context.Background())
		case <-f.done:
			return
		}
	}
}

// Stop shuts down the flush loop and makes a final best-effort flush of
// whatever is still queued. Points that cannot be written during
// shutdown are lost.
func (f *Flusher) Stop() {
	close(f.done)
	f.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), f.cfg.WriteTimeout)
	defer cancel()
	f.FlushOnce(ctx)
}

// FlushOnce performs a single flush attempt: drain up to the batch
// size, write the batch bounded by the write timeout, and on failure
// requeue it for the next tick.
//
// It is exported for the final shutdown flush and for tests; the
// periodic loop is the normal caller.
func (f *Flusher) FlushOnce(ctx context.Context) Result {
	batch := f.queue.Drain(f.cfg.BatchSize)
	if len(batch) == 0 {
		return Result{}
	}

	writeCtx, cancel := context.WithTimeout(ctx, f.cfg.WriteTimeout)
	defer cancel()

	var res Result
	if err := f.writer.WriteBatch(writeCtx, batch); err != nil {
		// Timeouts and backend errors are both transient here: the
		// batch goes back to the head and waits for the next tick.
		f.queue.Requeue(batch)
		fails := f.recordFailure()
		res = Result{Requeued: len(batch), Err: err}

		if logger := f.getLogger(); logger != nil {
			logger.Warn("flush failed, batch requeued",
				"points", len(batch),
				"consecutive_failures", fails,
				"error", err,
			)
		}
	} else {
		f.resetFailures()
		res = Result{Written: len(batch)}

		if logger := f.getLogger(); logger != nil {
			logger.Debug("flushed write queue",
				"points", len(batch),
				"remaining", f.queue.Len(),
			)
		}
	}

	if f.onResult != nil {
		f.onResult(res)
	}
	return res
}

// ConsecutiveFailures returns the number of flush attempts that have
// failed since the last success.
func (f *Flusher) ConsecutiveFailures() uint64 {
	f.failMu.Lock()
	defer f.failMu.Unlock()
	return f.failures
}

func (f *Flusher) recordFailure() uint64 {
	f.failMu.Lock()
	defer f.failMu.Unlock()
	f.failures++
	return f.failures
}

func (f *Flusher) resetFailures() {
	f.failMu.Lock()
	f.failures = 0
	f.failMu.Unlock()
}

func (f *Flusher) getLogger() Logger {
	f.loggerMu.RLock()
	defer f.loggerMu.RUnlock()
	return f.logger
}
