package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	gcs "cloud.google.com/go/storage"
)

var _ Store = (*GCS)(nil)

// GCS stores objects in a bucket below an optional prefix.
type GCS struct {
	client *gcs.Client
	bucket string
	prefix string
}

// NewGCS uses Application Default Credentials.
func NewGCS(ctx context.Context, bucket, prefix string) (*GCS, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create gcs client: %w", err)
	}
	return &GCS{client: client, bucket: bucket, prefix: prefix}, nil
}

func (g *GCS) object(name string) *gcs.ObjectHandle {
	return g.client.Bucket(g.bucket).Object(path.Join(g.prefix, name))
}

func (g *GCS) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	rc, err := g.object(name).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: gs://%s/%s", ErrNotExist, g.bucket, path.Join(g.prefix, name))
	}
	if err != nil {
		return nil, fmt.Errorf("storage: failed to read %s: %w", name, err)
	}
	return rc, nil
}

// Put relies on GCS finalizing an object only when the writer closes.
func (g *GCS) Put(ctx context.Context, name string, r io.Reader) error {
	w := g.object(name).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("storage: failed to upload %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("storage: failed to finalize %s: %w", name, err)
	}
	return nil
}

func (g *GCS) Delete(ctx context.Context, name string) error {
	err := g.object(name).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("storage: failed to delete %s: %w", name, err)
	}
	return nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}
