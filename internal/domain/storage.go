package domain

import "context"

// ImageStore copies a generated image to durable storage and returns the
// URL it can be served from.
type ImageStore interface {
	Store(ctx context.Context, sourceURL string) (string, error)
}
