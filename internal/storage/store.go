package storage

import (
	"context"
	"io"
)

// Store defines the interface for a file storage backend.
type Store interface {
	// Append adds data to the end of path, creating it if needed.
	Append(ctx context.Context, path string, data []byte) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}
