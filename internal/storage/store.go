package storage

import "context"

// ImageStore persists recipe images and returns the URL clients should use.
type ImageStore interface {
	Save(ctx context.Context, name string, data []byte, contentType string) (string, error)
	// Delete removes the object behind a URL previously returned by Save.
	// Unknown URLs are ignored.
	Delete(ctx context.Context, url string) error
}
