package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// AferoStore implements Store on an afero filesystem: the OS filesystem in
// production, a MemMapFs in tests.
type AferoStore struct {
	fs afero.Fs
	// serializes appends so concurrent lines never interleave
	mu sync.Mutex
}

// NewAferoStore creates a new AferoStore.
func NewAferoStore(fs afero.Fs) *AferoStore {
	return &AferoStore{fs: fs}
}

// NewOsStore returns a store rooted at dir on the local disk. A relative dir
// is resolved against the working directory.
func NewOsStore(dir string) (*AferoStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve %q: %w", dir, err)
	}
	return NewAferoStore(afero.NewBasePathFs(afero.NewOsFs(), abs)), nil
}

// Append implements Store.
func (s *AferoStore) Append(ctx context.Context, path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := s.fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Open opens a file for reading.
func (s *AferoStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	return s.fs.OpenFile(path, os.O_RDONLY, 0)
}
