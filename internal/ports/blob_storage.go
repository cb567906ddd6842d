package ports

import (
	"context"
	"io"
)

// BlobStorage is an object store addressed by key
type BlobStorage interface {
	// Put stores the object and returns its public URL
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
