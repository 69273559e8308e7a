package metrics

import (
	"context"
	"sync"
	"time"

	model "github.com/tigerroll/greentaxi/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/greentaxi/pkg/batch/core/metrics"
	logger "github.com/tigerroll/greentaxi/pkg/batch/support/util/logger"
)

type eventType int

const (
	eventJobEnd eventType = iota
	eventStepStart
	eventStepEnd
	eventItemRead
	eventItemWrite
	eventChunkCommit
	eventChunkRollback
	eventBytes
	eventDuration
)

// metricEvent is one queued measurement.
type metricEvent struct {
	kind          eventType
	jobExecution  *model.JobExecution
	stepExecution *model.StepExecution
	name          string
	count         int
	bytes         int64
	duration      time.Duration
	tags          map[string]string
}

// AsyncMetricRecorder queues measurements and hands them to a wrapped recorder on a
// single worker goroutine, so exporters never block a chunk commit. Events arriving
// while the queue is full are dropped.
type AsyncMetricRecorder struct {
	queue   chan metricEvent       // queue holds events waiting for the worker.
	stopCh  chan struct{}          // stopCh is closed by Close to stop accepting events.
	wg      sync.WaitGroup         // wg waits for the worker to drain the queue.
	once    sync.Once              // once guards Close.
	target  metrics.MetricRecorder // target receives every event on the worker goroutine.
	dropped int64                  // dropped counts events discarded on a full queue.
	mu      sync.Mutex             // mu serializes sends against Close.
	log     *logger.Logger
}

// NewAsyncMetricRecorder creates a new [AsyncMetricRecorder] and starts its worker.
//
// Parameters:
//
//	bufferSize: The queue capacity. Zero or less uses 100.
//	target: The [metrics.MetricRecorder] events are forwarded to.
//
// Returns:
//
//	A running [AsyncMetricRecorder]. Call [AsyncMetricRecorder.Close] to drain and stop it.
func NewAsyncMetricRecorder(bufferSize int, target metrics.MetricRecorder) *AsyncMetricRecorder {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	r := &AsyncMetricRecorder{
		queue:  make(chan metricEvent, bufferSize),
		stopCh: make(chan struct{}),
		target: target,
		log:    logger.Named("metrics"),
	}
	r.wg.Add(1)
	go r.run()
	r.log.Debugf("Async metric recorder started (buffer %d).", bufferSize)
	return r
}

func (r *AsyncMetricRecorder) run() {
	defer r.wg.Done()
	for {
		select {
		case ev := <-r.queue:
			r.process(ev)
		case <-r.stopCh:
			// drain
			for {
				select {
				case ev := <-r.queue:
					r.process(ev)
				default:
					return
				}
			}
		}
	}
}

func (r *AsyncMetricRecorder) process(ev metricEvent) {
	ctx := context.Background()
	switch ev.kind {
	case eventJobEnd:
		r.target.RecordJobEnd(ctx, ev.jobExecution)
	case eventStepStart:
		r.target.RecordStepStart(ctx, ev.stepExecution)
	case eventStepEnd:
		r.target.RecordStepEnd(ctx, ev.stepExecution)
	case eventItemRead:
		r.target.RecordItemRead(ctx, ev.name, ev.count)
	case eventItemWrite:
		r.target.RecordItemWrite(ctx, ev.name, ev.count)
	case eventChunkCommit:
		r.target.RecordChunkCommit(ctx, ev.name, ev.count)
	case eventChunkRollback:
		r.target.RecordChunkRollback(ctx, ev.name)
	case eventBytes:
		r.target.RecordBytes(ctx, ev.name, ev.bytes)
	case eventDuration:
		r.target.RecordDuration(ctx, ev.name, ev.duration, ev.tags)
	}
}

// Close stops the worker after every queued event has been recorded. It is safe to call twice.
func (r *AsyncMetricRecorder) Close() {
	r.once.Do(func() {
		close(r.stopCh)
		r.wg.Wait()
		if n := r.Dropped(); n > 0 {
			r.log.Warnf("Async metric recorder dropped %d events.", n)
		}
	})
}

// Dropped returns the number of events discarded because the queue was full.
func (r *AsyncMetricRecorder) Dropped() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

func (r *AsyncMetricRecorder) send(ev metricEvent) {
	select {
	case <-r.stopCh:
		return
	default:
	}
	select {
	case r.queue <- ev:
	default:
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
	}
}

func (r *AsyncMetricRecorder) RecordJobEnd(_ context.Context, execution *model.JobExecution) {
	r.send(metricEvent{kind: eventJobEnd, jobExecution: execution})
}

func (r *AsyncMetricRecorder) RecordStepStart(_ context.Context, execution *model.StepExecution) {
	r.send(metricEvent{kind: eventStepStart, stepExecution: execution})
}

func (r *AsyncMetricRecorder) RecordStepEnd(_ context.Context, execution *model.StepExecution) {
	r.send(metricEvent{kind: eventStepEnd, stepExecution: execution})
}

func (r *AsyncMetricRecorder) RecordItemRead(_ context.Context, stepName string, count int) {
	r.send(metricEvent{kind: eventItemRead, name: stepName, count: count})
}

func (r *AsyncMetricRecorder) RecordItemWrite(_ context.Context, stepName string, count int) {
	r.send(metricEvent{kind: eventItemWrite, name: stepName, count: count})
}

func (r *AsyncMetricRecorder) RecordChunkCommit(_ context.Context, stepName string, count int) {
	r.send(metricEvent{kind: eventChunkCommit, name: stepName, count: count})
}

func (r *AsyncMetricRecorder) RecordChunkRollback(_ context.Context, stepName string) {
	r.send(metricEvent{kind: eventChunkRollback, name: stepName})
}

func (r *AsyncMetricRecorder) RecordBytes(_ context.Context, name string, n int64) {
	r.send(metricEvent{kind: eventBytes, name: name, bytes: n})
}

func (r *AsyncMetricRecorder) RecordDuration(_ context.Context, name string, duration time.Duration, tags map[string]string) {
	r.send(metricEvent{kind: eventDuration, name: name, duration: duration, tags: tags})
}

var _ metrics.MetricRecorder = (*AsyncMetricRecorder)(nil)
