package writer

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go/parquet"
	pqwriter "github.com/xitongsys/parquet-go/writer"

	"github.com/tigerroll/greentaxi/pkg/batch/adapter/storage"
	"github.com/tigerroll/greentaxi/pkg/batch/core/application/port"
	"github.com/tigerroll/greentaxi/pkg/batch/core/tx"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/exception"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/logger"
)

// ParquetWriterConfig holds the settings of a ParquetWriter.
type ParquetWriterConfig struct {
	// Bucket is passed to the storage connection; empty uses the connection default.
	Bucket string `mapstructure:"bucket"`
	// OutputBaseDir is the object prefix of every written file (e.g. "export/").
	OutputBaseDir string `mapstructure:"outputBaseDir"`
	// CompressionType is "SNAPPY", "GZIP" or "NONE".
	CompressionType string `mapstructure:"compressionType"`
	// Parallel is the number of goroutines parquet-go uses to encode row groups.
	Parallel int64 `mapstructure:"parallel"`
	// RowGroupSize is the target row group size in bytes. Zero keeps the library default.
	RowGroupSize int64 `mapstructure:"rowGroupSize"`
}

// ParquetOption customizes a ParquetWriter.
type ParquetOption[T any] func(*ParquetWriter[T])

// WithPartitionKey groups items into one file per key returned by fn.
func WithPartitionKey[T any](fn func(T) (string, error)) ParquetOption[T] {
	return func(w *ParquetWriter[T]) { w.partitionKeyFunc = fn }
}

// WithObjectNamer replaces the default object naming of a partition.
func WithObjectNamer[T any](fn func(partitionKey string) string) ParquetOption[T] {
	return func(w *ParquetWriter[T]) { w.objectNameFunc = fn }
}

// ParquetWriter buffers items by partition and uploads one Parquet file per partition on Close.
// The transaction passed to Write is ignored.
type ParquetWriter[T any] struct {
	name    string                    // name identifies the writer in logs and errors.
	config  ParquetWriterConfig       // config holds bucket, prefix, compression and encoder settings.
	conn    storage.StorageConnection // conn is the object storage files are uploaded to.
	codec   parquet.CompressionCodec  // codec is the resolved compression codec.
	log     *logger.Logger            // log is the writer's named logger.
	written []string                  // written lists the objects uploaded by the last Close.

	partitionKeyFunc func(T) (string, error)          // partitionKeyFunc derives the partition of an item.
	objectNameFunc   func(partitionKey string) string // objectNameFunc names the object of a partition.

	// buffered holds items per partition key; order keeps partitions in first-seen order.
	buffered map[string][]T
	order    []string
	total    int64
}

// Verify that [ParquetWriter] implements the [port.ItemWriter] interface at compile time.
var _ port.ItemWriter[struct{}] = (*ParquetWriter[struct{}])(nil)

// NewParquetWriter creates a new instance of [ParquetWriter].
// The Parquet schema is derived from the parquet struct tags of T.
//
// Parameters:
//
//	name: A unique name for this writer instance.
//	conn: The [storage.StorageConnection] files are uploaded through. Must not be nil.
//	cfg: The writer settings. An empty CompressionType means SNAPPY; Parallel <= 0 means 4.
//	opts: Optional partitioning and naming overrides ([WithPartitionKey], [WithObjectNamer]).
//
// Returns:
//
//	A new [ParquetWriter], or a [exception.BatchError] for a nil connection or an
//	unsupported compression type.
func NewParquetWriter[T any](name string, conn storage.StorageConnection, cfg ParquetWriterConfig, opts ...ParquetOption[T]) (*ParquetWriter[T], error) {
	if conn == nil {
		return nil, exception.NewBatchError("writer", fmt.Sprintf("ParquetWriter '%s' requires a storage connection", name), nil, false, false)
	}
	if cfg.CompressionType == "" {
		cfg.CompressionType = "SNAPPY"
	}
	codec, err := compressionCodec(cfg.CompressionType)
	if err != nil {
		return nil, exception.NewBatchError("writer", fmt.Sprintf("invalid compression type for ParquetWriter '%s'", name), err, false, false)
	}
	if cfg.Parallel <= 0 {
		cfg.Parallel = 4
	}
	w := &ParquetWriter[T]{
		name:     name,
		config:   cfg,
		conn:     conn,
		codec:    codec,
		log:      logger.Named(name),
		buffered: make(map[string][]T),
	}
	w.partitionKeyFunc = func(T) (string, error) { return "", nil }
	w.objectNameFunc = w.defaultObjectName
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

func (w *ParquetWriter[T]) defaultObjectName(partitionKey string) string {
	file := fmt.Sprintf("data_%s_%s.parquet", time.Now().UTC().Format("20060102150405"), uuid.NewString()[:8])
	return path.Join(w.config.OutputBaseDir, partitionKey, file)
}

// Open resets the buffer.
func (w *ParquetWriter[T]) Open(ctx context.Context) error {
	w.buffered = make(map[string][]T)
	w.order = nil
	w.total = 0
	w.written = nil
	return nil
}

// Write buffers items under their partition key. Nothing is uploaded until Close.
func (w *ParquetWriter[T]) Write(ctx context.Context, _ tx.Tx, items []T) error {
	for _, item := range items {
		key, err := w.partitionKeyFunc(item)
		if err != nil {
			return exception.NewBatchError("writer", fmt.Sprintf("ParquetWriter '%s' failed to derive partition key", w.name), err, false, false)
		}
		if _, ok := w.buffered[key]; !ok {
			w.order = append(w.order, key)
		}
		w.buffered[key] = append(w.buffered[key], item)
		w.total++
	}
	w.log.Debugf("Buffered %d items, %d in total.", len(items), w.total)
	return nil
}

// Close encodes every buffered partition and uploads it, in first-seen partition order.
// A failing partition does not stop the others; all failures are aggregated.
//
// Parameters:
//
//	ctx: The context for the uploads.
//
// Returns:
//
//	A [multierror.Error] of every partition that failed to encode or upload, or nil.
func (w *ParquetWriter[T]) Close(ctx context.Context) error {
	if w.total == 0 {
		w.log.Infof("No records buffered, no Parquet file written.")
		return nil
	}

	var result *multierror.Error
	for _, key := range w.order {
		items := w.buffered[key]
		buf, err := w.encode(items)
		if err != nil {
			result = multierror.Append(result, exception.NewBatchError("writer",
				fmt.Sprintf("ParquetWriter '%s' failed to encode partition '%s'", w.name, key), err, false, false))
			continue
		}
		objectName := w.objectNameFunc(key)
		size := buf.Len()
		if err := w.conn.Upload(ctx, w.config.Bucket, objectName, buf, "application/octet-stream"); err != nil {
			result = multierror.Append(result, exception.NewBatchError("writer",
				fmt.Sprintf("ParquetWriter '%s' failed to upload '%s'", w.name, objectName), err, false, true))
			continue
		}
		w.written = append(w.written, objectName)
		w.log.Infof("Uploaded %d rows (%d bytes) to %s.", len(items), size, w.conn.URI(w.config.Bucket, objectName))
	}

	w.buffered = make(map[string][]T)
	w.order = nil
	w.total = 0
	return result.ErrorOrNil()
}

// Written returns the object names uploaded by the last Close.
func (w *ParquetWriter[T]) Written() []string {
	return append([]string(nil), w.written...)
}

func (w *ParquetWriter[T]) encode(items []T) (buf *bytes.Buffer, err error) {
	buf = new(bytes.Buffer)
	pw, err := pqwriter.NewParquetWriterFromWriter(buf, new(T), w.config.Parallel)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = w.codec
	if w.config.RowGroupSize > 0 {
		pw.RowGroupSize = w.config.RowGroupSize
	}
	for i := range items {
		if err := pw.Write(items[i]); err != nil {
			return nil, err
		}
	}

	// parquet-go panics on some schema mismatches during flush.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parquet writer panicked on WriteStop: %v", r)
			buf = nil
		}
	}()
	if err := pw.WriteStop(); err != nil {
		return nil, err
	}
	return buf, nil
}

func compressionCodec(compressionType string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(compressionType) {
	case "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE", "UNCOMPRESSED":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	}
	return 0, fmt.Errorf("unsupported compression type: %s", compressionType)
}
