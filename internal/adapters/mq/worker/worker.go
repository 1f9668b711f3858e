// Package worker runs venue session jobs pulled off the queue. Each worker
// stands for one bay; jobs for different players run in parallel.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/fairplay/internal/adapters/mq/queue"
	"github.com/okian/fairplay/internal/domain/model"
	"github.com/okian/fairplay/pkg/logger"
	"github.com/okian/fairplay/pkg/metrics"
)

const (
	metricsUpdateInterval = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Runner plays one session.
type Runner interface {
	RunSession(ctx context.Context, job model.SessionJob) (model.SessionSummary, error)
}

// Sink receives finished sessions.
type Sink interface {
	Collect(ctx context.Context, s model.SessionSummary)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs until the queue drains or it is stopped.
type Worker interface {
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker runs jobs from a queue through a Runner.
type InMemoryWorker struct {
	queue  Queue
	runner Runner
	sink   Sink
	name   string

	// processed is shared with the owning pool, if any.
	processed *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(q Queue, runner Runner, sink Sink, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		runner:    runner,
		sink:      sink,
		name:      "worker",
		processed: new(atomic.Int64),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop. It returns when ctx is done, Shutdown is
// called, or the queue is closed and drained.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "session failed", logger.String("job", job.ID), logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker after its current job.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, job model.SessionJob) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	summary, err := w.runner.RunSession(ctx, job)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "session_failed")
		return fmt.Errorf("run session %s: %w", job.ID, err)
	}
	summary.Duration = time.Since(start)
	w.processed.Add(1)
	metrics.RecordSessionCompleted(summary.RTP())
	if w.sink != nil {
		w.sink.Collect(ctx, summary)
	}
	w.logger.Debug(ctx, "session finished",
		logger.String("job", job.ID),
		logger.String("player", job.PlayerID),
		logger.Int("shots", summary.Shots),
		logger.Float64("rtp", summary.RTP()),
	)
	return nil
}

// Pool runs one worker per bay.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	processed atomic.Int64
	rateMu    sync.Mutex
	lastRate  time.Time
	lastCount int64

	shutdown chan struct{}
	logger   logger.Logger
}

// NewPool creates a pool of workerCount workers, defaulting to one per CPU.
func NewPool(workerCount int, q Queue, runner Runner, sink Sink) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    q,
		lastRate: time.Now(),
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		w := NewInMemoryWorker(q, runner, sink, WithName("bay-"+strconv.Itoa(i)))
		w.processed = &p.processed
		p.workers[i] = w
	}
	metrics.UpdateWorkerActiveCount(workerCount)
	metrics.UpdateWorkerMessagesPerSecond(0)
	return p
}

// Start starts every worker and the metrics updater.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.startMetricsUpdater(ctx)
}

// Processed returns the number of sessions completed so far.
func (p *Pool) Processed() int64 { return p.processed.Load() }

// Wait blocks until every worker has exited, which happens once the queue
// is closed and drained, or until ctx is done.
func (p *Pool) Wait(ctx context.Context) error {
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.updateMetrics()
	return nil
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.updateMetrics()
		}
	}
}

func (p *Pool) updateMetrics() {
	p.rateMu.Lock()
	defer p.rateMu.Unlock()
	now := time.Now()
	count := p.processed.Load()
	if secs := now.Sub(p.lastRate).Seconds(); secs > 0 {
		metrics.UpdateWorkerMessagesPerSecond(float64(count-p.lastCount) / secs)
	}
	p.lastRate, p.lastCount = now, count
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	defer close(p.shutdown)

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerActiveCount(0)
	return nil
}
