// Package storage declares the object-storage contracts used for landing, quarantining and
// exporting trip files. Backends register themselves from the local and gcs sub-packages.
package storage

import (
	"context"
	"io"
)

// StorageExecutor is an interface that defines the object operations of a storage backend.
// Every method takes a bucket; an empty bucket means the bucket (or base directory) the
// connection was configured with.
type StorageExecutor interface {
	// Upload writes data to objectName, replacing any existing object.
	//
	// ctx: The context for the operation.
	// bucket: The target bucket, or empty for the default.
	// objectName: The object path, using "/" as separator.
	// data: The content to write. It is read to EOF.
	// contentType: The MIME type recorded where the backend supports it.
	// Returns: An error if the write failed.
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error

	// Download opens objectName for reading. The caller must close the reader.
	// Returns: The object content, or an error wrapping the backend's not-found error for a missing object.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)

	// ListObjects calls fn for every object below prefix, in lexical order.
	// An error returned by fn stops the listing and is returned.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error

	// DeleteObject removes an object. Deleting a missing object is not an error.
	DeleteObject(ctx context.Context, bucket, objectName string) error

	// MoveObject renames src to dst within the bucket. Backends without a rename copy and delete.
	MoveObject(ctx context.Context, bucket, src, dst string) error
}

// StorageConnection is a named, configured storage backend.
type StorageConnection interface {
	StorageExecutor // Embeds the object operations

	// Name is the key of the connection under surfin.adaptor.storage.
	Name() string
	// Type is the backend: "local" or "gcs".
	Type() string
	// URI renders a human readable location such as /data/landing/x.csv or gs://bucket/x.csv.
	URI(bucket, objectName string) string
	// Close releases the client. The connection must not be used afterwards.
	Close() error
}

// StorageProvider opens and caches storage connections by name.
type StorageProvider interface {
	// GetConnection returns the connection configured under name, opening it on first use.
	// Returns: The cached [StorageConnection], or an error for an unknown name or backend.
	GetConnection(name string) (StorageConnection, error)
	// CloseAll closes every opened connection. Returns: The aggregated close errors.
	CloseAll() error
}
