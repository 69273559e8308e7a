// Package gcs implements the storage contracts on Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	storageAdapter "github.com/tigerroll/greentaxi/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/greentaxi/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/logger"
)

// ProviderType is the storage type name of this backend.
const ProviderType = "gcs"

func init() {
	storageAdapter.RegisterFactory(ProviderType, func(cfg storageConfig.StorageConfig, name string) (storageAdapter.StorageConnection, error) {
		return NewGCSAdapter(context.Background(), cfg, name)
	})
}

// GCSAdapter stores objects in a GCS bucket.
type GCSAdapter struct {
	client *storage.Client
	cfg    storageConfig.StorageConfig
	name   string
}

var _ storageAdapter.StorageConnection = (*GCSAdapter)(nil)

// NewGCSAdapter creates a client from the credentials file, or from Application Default
// Credentials when none is configured.
func NewGCSAdapter(ctx context.Context, cfg storageConfig.StorageConfig, name string) (*GCSAdapter, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs storage '%s': failed to create client: %w", name, err)
	}
	return &GCSAdapter{client: client, cfg: cfg, name: name}, nil
}

func (a *GCSAdapter) Close() error { return a.client.Close() }
func (a *GCSAdapter) Type() string { return ProviderType }
func (a *GCSAdapter) Name() string { return a.name }

func (a *GCSAdapter) bucket(bucket string) string {
	if bucket == "" {
		return a.cfg.BucketName
	}
	return bucket
}

// URI returns gs://bucket/object.
func (a *GCSAdapter) URI(bucket, objectName string) string {
	return fmt.Sprintf("gs://%s/%s", a.bucket(bucket), objectName)
}

// Upload streams data into the object. The object becomes visible only once the writer closes.
func (a *GCSAdapter) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	w := a.client.Bucket(a.bucket(bucket)).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, data); err != nil {
		w.Close()
		return fmt.Errorf("failed to upload %s: %w", a.URI(bucket, objectName), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", a.URI(bucket, objectName), err)
	}
	logger.Debugf("Stored %s (gcs storage '%s').", a.URI(bucket, objectName), a.name)
	return nil
}

// Download opens a reader on the object.
func (a *GCSAdapter) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	r, err := a.client.Bucket(a.bucket(bucket)).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", a.URI(bucket, objectName), err)
	}
	return r, nil
}

// ListObjects calls fn for every object name starting with prefix.
func (a *GCSAdapter) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	it := a.client.Bucket(a.bucket(bucket)).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to list gs://%s/%s: %w", a.bucket(bucket), prefix, err)
		}
		if err := fn(attrs.Name); err != nil {
			return err
		}
	}
}

// DeleteObject deletes the object. A missing object is ignored.
func (a *GCSAdapter) DeleteObject(ctx context.Context, bucket, objectName string) error {
	err := a.client.Bucket(a.bucket(bucket)).Object(objectName).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		logger.Warnf("Delete of missing object %s ignored.", a.URI(bucket, objectName))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", a.URI(bucket, objectName), err)
	}
	return nil
}

// MoveObject copies src to dst and deletes src.
func (a *GCSAdapter) MoveObject(ctx context.Context, bucket, src, dst string) error {
	b := a.client.Bucket(a.bucket(bucket))
	if _, err := b.Object(dst).CopierFrom(b.Object(src)).Run(ctx); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", a.URI(bucket, src), a.URI(bucket, dst), err)
	}
	if err := b.Object(src).Delete(ctx); err != nil {
		return fmt.Errorf("copied to %s but failed to delete %s: %w", a.URI(bucket, dst), a.URI(bucket, src), err)
	}
	return nil
}
