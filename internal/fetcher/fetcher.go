// Package fetcher downloads monthly trip files into landing storage.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	appconfig "github.com/tigerroll/greentaxi/internal/config"
	"github.com/tigerroll/greentaxi/pkg/batch/adapter/storage"
	"github.com/tigerroll/greentaxi/pkg/batch/core/metrics"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/exception"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/logger"
)

const moduleName = "fetcher"

// RemoteFetcher streams one month of trips from the archive into landing storage.
// There is no retry, no resume and no content verification.
type RemoteFetcher struct {
	cfg      *appconfig.AppConfig
	client   *http.Client
	landing  storage.StorageConnection
	recorder metrics.MetricRecorder
	tracer   metrics.Tracer
	log      *logger.Logger
}

// Option customizes a RemoteFetcher.
type Option func(*RemoteFetcher)

// WithHTTPClient replaces the HTTP client. Its Timeout is overwritten by the configured one
// unless the client already sets a shorter non-zero timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(f *RemoteFetcher) { f.client = c }
}

// WithMetrics sets the metric recorder and tracer.
func WithMetrics(recorder metrics.MetricRecorder, tracer metrics.Tracer) Option {
	return func(f *RemoteFetcher) {
		if recorder != nil {
			f.recorder = recorder
		}
		if tracer != nil {
			f.tracer = tracer
		}
	}
}

// NewRemoteFetcher creates a fetcher writing into landing.
func NewRemoteFetcher(cfg *appconfig.AppConfig, landing storage.StorageConnection, opts ...Option) *RemoteFetcher {
	f := &RemoteFetcher{
		cfg:      cfg,
		client:   &http.Client{},
		landing:  landing,
		recorder: metrics.NewNoOpMetricRecorder(),
		tracer:   metrics.NewNoOpTracer(),
		log:      logger.Named(moduleName),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client.Timeout == 0 || f.client.Timeout > cfg.Source.HTTPTimeout {
		f.client.Timeout = cfg.Source.HTTPTimeout
	}
	return f
}

// countingReader remembers the first read error so body failures can be told apart from
// storage failures.
type countingReader struct {
	r       io.Reader
	n       int64
	readErr error
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if err != nil && err != io.EOF && c.readErr == nil {
		c.readErr = err
	}
	return n, err
}

// Fetch downloads year/month and returns the landing object name.
// Connection failures, non-2xx responses and timeouts are network errors.
func (f *RemoteFetcher) Fetch(ctx context.Context, year, month string) (string, error) {
	url := f.cfg.SourceURL(year, month)
	object := f.cfg.LandingObject(year, month)

	ctx, end := f.tracer.StartSpan(ctx, "fetch", map[string]interface{}{"url": url, "object": object})
	defer end()
	start := time.Now()

	objectName, err := f.fetch(ctx, url, object)
	outcome := "success"
	if err != nil {
		outcome = "failure"
		f.tracer.RecordError(ctx, moduleName, err)
	}
	f.recorder.RecordDuration(ctx, "fetch", time.Since(start), map[string]string{"outcome": outcome})
	return objectName, err
}

func (f *RemoteFetcher) fetch(ctx context.Context, url, object string) (string, error) {
	f.log.Infof("Downloading %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", exception.NewBatchError(moduleName, "failed to create request for "+url, err, false, false)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", exception.NewNetworkError(moduleName, "request to "+url+" failed", err, exception.IsTimeout(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", exception.NewNetworkError(moduleName,
			fmt.Sprintf("unexpected status %d from %s", resp.StatusCode, url), nil, resp.StatusCode >= 500)
	}

	body := &countingReader{r: resp.Body}
	if err := f.landing.Upload(ctx, "", object, body, "text/csv"); err != nil {
		if body.readErr != nil {
			return "", exception.NewNetworkError(moduleName, "download of "+url+" interrupted", body.readErr, exception.IsTimeout(body.readErr))
		}
		if exception.IsTimeout(err) {
			return "", exception.NewNetworkError(moduleName, "download of "+url+" timed out", err, true)
		}
		return "", exception.NewBatchError(moduleName, "failed to write "+f.landing.URI("", object), err, false, false)
	}
	f.recorder.RecordBytes(ctx, "fetch", body.n)
	f.log.Infof("Saved %d bytes to %s", body.n, f.landing.URI("", object))
	return object, nil
}
