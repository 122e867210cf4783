package port

import "context"

// BlobStore reads and writes whole objects in a single bucket.
type BlobStore interface {
	// Get returns the object body, or domain.ErrObjectNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put replaces the object at key.
	Put(ctx context.Context, key string, body []byte, contentType string) error
}
