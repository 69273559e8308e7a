package metrics

import (
	"context"

	"go.uber.org/fx"

	config "github.com/tigerroll/greentaxi/pkg/batch/core/config"
	metrics "github.com/tigerroll/greentaxi/pkg/batch/core/metrics"
	logger "github.com/tigerroll/greentaxi/pkg/batch/support/util/logger"
)

// RecorderResult carries the selected recorder. Prometheus is nil unless the
// "prometheus" type is configured.
type RecorderResult struct {
	fx.Out
	Recorder   metrics.MetricRecorder
	Prometheus *PrometheusRecorder
}

// NewMetricRecorderProvider selects the recorder from surfin.observability.metrics.type.
func NewMetricRecorderProvider(lc fx.Lifecycle, cfg *config.Config) (RecorderResult, error) {
	mc := cfg.Surfin.Observability.Metrics
	switch mc.Type {
	case "prometheus", "":
		p := NewPrometheusRecorder()
		return RecorderResult{Recorder: p, Prometheus: p}, nil
	case "none":
		return RecorderResult{Recorder: metrics.NewNoOpMetricRecorder()}, nil
	}

	r, err := NewOTelMetricRecorder(context.Background(), mc, cfg.Surfin.Observability.Tracing.ServiceName)
	if err != nil {
		return RecorderResult{}, err
	}
	lc.Append(fx.Hook{OnStop: r.Shutdown})
	if mc.AsyncBufferSize <= 0 {
		return RecorderResult{Recorder: r}, nil
	}
	// Hooks stop in reverse order: the queue drains before the exporter shuts down.
	async := NewAsyncMetricRecorder(mc.AsyncBufferSize, r)
	lc.Append(fx.Hook{OnStop: func(context.Context) error {
		async.Close()
		return nil
	}})
	return RecorderResult{Recorder: async}, nil
}

// NewTracerProvider selects the tracer from surfin.observability.tracing.exporter.
func NewTracerProvider(lc fx.Lifecycle, cfg *config.Config) (metrics.Tracer, error) {
	tc := cfg.Surfin.Observability.Tracing
	if tc.Exporter == "" || tc.Exporter == "none" {
		logger.Debugf("Tracing disabled.")
		return metrics.NewNoOpTracer(), nil
	}
	t, err := NewOpenTelemetryTracer(context.Background(), tc)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: t.Shutdown})
	return t, nil
}

// Module provides metrics.MetricRecorder, *PrometheusRecorder and metrics.Tracer.
var Module = fx.Options(
	fx.Provide(NewMetricRecorderProvider),
	fx.Provide(NewTracerProvider),
)
