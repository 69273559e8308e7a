package metrics_test

import (
	"context"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/greentaxi/pkg/batch/core/domain/model"
	coremetrics "github.com/tigerroll/greentaxi/pkg/batch/core/metrics"
	"github.com/tigerroll/greentaxi/pkg/batch/infrastructure/metrics"
	testutil "github.com/tigerroll/greentaxi/pkg/batch/test"
)

// sample returns the summed counter value, or the histogram sample count, of family name.
func sample(t *testing.T, r *metrics.PrometheusRecorder, name string) float64 {
	t.Helper()
	families, err := r.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		total := 0.0
		for _, m := range f.GetMetric() {
			if c := m.GetCounter(); c != nil {
				total += c.GetValue()
			}
			if h := m.GetHistogram(); h != nil {
				total += float64(h.GetSampleCount())
			}
		}
		return total
	}
	return 0
}

func TestPrometheusRecorder(t *testing.T) {
	r := metrics.NewPrometheusRecorder()
	ctx := context.Background()

	se := testutil.NewTestStepExecution("loadGreenTaxiJob", "loadStep")
	se.MarkAsStarted()
	r.RecordStepStart(ctx, se)
	r.RecordItemRead(ctx, "loadStep", 10)
	r.RecordItemWrite(ctx, "loadStep", 8)
	r.RecordChunkCommit(ctx, "loadStep", 8)
	r.RecordChunkRollback(ctx, "loadStep")
	se.MarkAsCompleted()
	r.RecordStepEnd(ctx, se)
	r.RecordBytes(ctx, "fetch", 2048)
	r.RecordDuration(ctx, "compute", 20*time.Millisecond, nil)
	r.RecordDuration(ctx, "reload", time.Second, map[string]string{"outcome": "failure"})

	je := se.JobExecution
	r.RecordJobEnd(ctx, je) // still running: ignored
	je.MarkAsCompleted()
	r.RecordJobEnd(ctx, je)

	assert.Equal(t, 10.0, sample(t, r, "greentaxi_step_read_total"))
	assert.Equal(t, 8.0, sample(t, r, "greentaxi_step_write_total"))
	assert.Equal(t, 1.0, sample(t, r, "greentaxi_step_commit_total"))
	assert.Equal(t, 1.0, sample(t, r, "greentaxi_step_rollback_total"))
	assert.Equal(t, 1.0, sample(t, r, "greentaxi_step_status_total"))
	assert.Equal(t, 2048.0, sample(t, r, "greentaxi_transfer_bytes_total"))
	assert.Equal(t, 2.0, sample(t, r, "greentaxi_operation_duration_seconds"))
	assert.Equal(t, 1.0, sample(t, r, "greentaxi_job_duration_seconds"))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `greentaxi_operation_duration_seconds_count{name="reload",outcome="failure"} 1`)
}

// countingRecorder counts calls per method.
type countingRecorder struct {
	coremetrics.NoOpMetricRecorder
	mu    sync.Mutex
	calls map[string]int
	block chan struct{}
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{calls: map[string]int{}}
}

func (c *countingRecorder) inc(name string) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	c.calls[name]++
	c.mu.Unlock()
}

func (c *countingRecorder) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

func (c *countingRecorder) RecordJobEnd(context.Context, *model.JobExecution)   { c.inc("job_end") }
func (c *countingRecorder) RecordStepEnd(context.Context, *model.StepExecution) { c.inc("step_end") }
func (c *countingRecorder) RecordItemWrite(context.Context, string, int)        { c.inc("write") }
func (c *countingRecorder) RecordBytes(context.Context, string, int64)          { c.inc("bytes") }
func (c *countingRecorder) RecordDuration(context.Context, string, time.Duration, map[string]string) {
	c.inc("duration")
}

func TestAsyncMetricRecorder_DrainsOnClose(t *testing.T) {
	target := newCountingRecorder()
	r := metrics.NewAsyncMetricRecorder(16, target)
	ctx := context.Background()

	je := testutil.NewTestJobExecution("loadGreenTaxiJob", nil)
	se := je.NewStepExecution("loadStep")
	for i := 0; i < 5; i++ {
		r.RecordItemWrite(ctx, "loadStep", 100)
	}
	r.RecordStepEnd(ctx, se)
	r.RecordJobEnd(ctx, je)
	r.RecordBytes(ctx, "fetch", 1)
	r.RecordDuration(ctx, "compute", time.Millisecond, nil)
	r.Close()
	r.Close()

	assert.Equal(t, 5, target.count("write"))
	assert.Equal(t, 1, target.count("step_end"))
	assert.Equal(t, 1, target.count("job_end"))
	assert.Equal(t, 1, target.count("bytes"))
	assert.Equal(t, 1, target.count("duration"))
	assert.Zero(t, r.Dropped())

	// Events after Close are ignored.
	r.RecordItemWrite(ctx, "loadStep", 1)
	assert.Equal(t, 5, target.count("write"))
}

func TestAsyncMetricRecorder_DropsWhenFull(t *testing.T) {
	target := newCountingRecorder()
	target.block = make(chan struct{})
	r := metrics.NewAsyncMetricRecorder(1, target)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		r.RecordItemWrite(ctx, "loadStep", 1)
	}
	close(target.block)
	r.Close()

	// The worker holds at most one event and the queue one more.
	assert.LessOrEqual(t, target.count("write"), 2)
	assert.GreaterOrEqual(t, r.Dropped(), int64(8))
	assert.Equal(t, int64(10), r.Dropped()+int64(target.count("write")))
}
