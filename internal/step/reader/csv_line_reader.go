// Package reader provides the ItemReader of the load step.
package reader

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/tigerroll/greentaxi/internal/domain/schema"
	"github.com/tigerroll/greentaxi/pkg/batch/adapter/storage"
	"github.com/tigerroll/greentaxi/pkg/batch/core/application/port"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/exception"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/logger"
)

const moduleName = "CSVLineReader"

// maxLineSize bounds a single CSV line.
const maxLineSize = 1 << 20

// Line is one data line of a trip file.
type Line struct {
	// Index is the 0-based position of the line among data lines (header excluded).
	Index  int
	Fields []string
}

// CSVLineReader reads a trip file from storage line by line. The header is checked against
// the schema on Open. Fields are split on ',' without quote handling.
type CSVLineReader struct {
	conn   storage.StorageConnection
	bucket string
	object string
	schema *schema.Descriptor

	body    io.ReadCloser
	scanner *bufio.Scanner
	next    int
	log     *logger.Logger
}

var _ port.ItemReader[Line] = (*CSVLineReader)(nil)

// NewCSVLineReader creates a reader for object in conn.
func NewCSVLineReader(conn storage.StorageConnection, bucket, object string, desc *schema.Descriptor) *CSVLineReader {
	return &CSVLineReader{
		conn:   conn,
		bucket: bucket,
		object: object,
		schema: desc,
		log:    logger.Named(moduleName),
	}
}

// Open downloads the object and consumes the header line.
func (r *CSVLineReader) Open(ctx context.Context) error {
	body, err := r.conn.Download(ctx, r.bucket, r.object)
	if err != nil {
		return exception.NewBatchError(moduleName, "failed to open "+r.conn.URI(r.bucket, r.object), err, false, false)
	}
	r.body = body
	r.scanner = bufio.NewScanner(body)
	r.scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	r.next = 0

	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return exception.NewBatchError(moduleName, "failed to read header", err, false, false)
		}
		r.log.Warnf("%s is empty.", r.conn.URI(r.bucket, r.object))
		return nil
	}
	header := splitLine(r.scanner.Text())
	if err := r.schema.CheckHeader(header); err != nil {
		return exception.NewBatchError(moduleName, "header of "+r.conn.URI(r.bucket, r.object)+" does not match the schema", err, false, false)
	}
	r.log.Debugf("Header of %s matches %d schema columns.", r.object, len(header))
	return nil
}

// Read returns the next data line, or port.ErrNoMoreItems at the end of the file.
// Blank lines are skipped and do not consume an index.
func (r *CSVLineReader) Read(ctx context.Context) (Line, error) {
	if err := ctx.Err(); err != nil {
		return Line{}, err
	}
	if r.scanner == nil {
		return Line{}, port.ErrNoMoreItems
	}
	for r.scanner.Scan() {
		text := r.scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		line := Line{Index: r.next, Fields: splitLine(text)}
		r.next++
		return line, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Line{}, exception.NewBatchError(moduleName, "failed to read "+r.object, err, false, false)
	}
	return Line{}, port.ErrNoMoreItems
}

// Close releases the object body.
func (r *CSVLineReader) Close(ctx context.Context) error {
	if r.body == nil {
		return nil
	}
	err := r.body.Close()
	r.body = nil
	r.scanner = nil
	return err
}

// LinesRead returns the number of data lines returned so far.
func (r *CSVLineReader) LinesRead() int {
	return r.next
}

func splitLine(text string) []string {
	return strings.Split(strings.TrimSuffix(text, "\r"), ",")
}
