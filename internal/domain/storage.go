package domain

import (
	"context"
	"io"
)

// ImageStore abstracts blob storage for product images, addressed by key
// within a bucket fixed at construction time.
type ImageStore interface {
	// Put writes the blob under key, overwriting any existing object.
	Put(ctx context.Context, key string, body io.Reader) error
	// Get returns a reader for the blob at key. The caller closes it.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// ChangeBroadcaster signals connected clients that catalog data changed.
// The signal carries no payload; clients re-fetch. Implementations must not
// block and must not return errors to the mutation path.
type ChangeBroadcaster interface {
	NotifyProductsChanged()
}
