// Package artifact stores and retrieves the serialized search index blob.
// Consumers treat the blob as opaque: only the index package encodes or
// decodes it.
package artifact

import (
	"context"
	"io"
)

// Store is a remote location holding exactly one index artifact at a
// well-known key.
type Store interface {
	// Exists reports whether the artifact is present.
	Exists(ctx context.Context) (bool, error)

	// Download writes the artifact bytes to w and returns the byte count.
	Download(ctx context.Context, w io.Writer) (int64, error)

	// Upload replaces the artifact with the bytes read from r.
	Upload(ctx context.Context, r io.Reader) error
}
