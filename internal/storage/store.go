// Package storage reads and writes the artifacts the services depend on:
// model files, recommendation tables and cluster snapshots. Objects live on
// local disk or in a Google Cloud Storage bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotExist is returned by Get when the object is missing.
var ErrNotExist = errors.New("storage: object does not exist")

// Store is an object store addressed by slash-separated names.
type Store interface {
	Get(ctx context.Context, name string) (io.ReadCloser, error)

	// Put replaces name with the contents of r. Readers never observe a
	// partially written object.
	Put(ctx context.Context, name string, r io.Reader) error

	// Delete removes name. Deleting a missing object is not an error.
	Delete(ctx context.Context, name string) error

	io.Closer
}

// Open returns a GCS store for gs://bucket/prefix locations and a disk store
// for anything else.
func Open(ctx context.Context, location string) (Store, error) {
	if strings.HasPrefix(location, "gs://") {
		bucket, prefix, err := parseGCSURI(location)
		if err != nil {
			return nil, err
		}
		return NewGCS(ctx, bucket, prefix)
	}
	return NewDisk(location), nil
}

func parseGCSURI(uri string) (bucket, prefix string, err error) {
	rest := strings.TrimPrefix(uri, "gs://")
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("storage: invalid gcs location %q", uri)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}

// ReadAll fetches a whole object.
func ReadAll(ctx context.Context, s Store, name string) ([]byte, error) {
	rc, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
