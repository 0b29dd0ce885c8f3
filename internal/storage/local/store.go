// Package local keeps uploaded images on the local filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidName is returned for names that would escape the storage root.
var ErrInvalidName = errors.New("invalid file name")

// Store writes files into a single directory.
type Store struct {
	root string
}

// New creates the storage directory if needed.
func New(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Store{root: abs}, nil
}

// Dir returns the absolute storage directory.
func (s *Store) Dir() string { return s.root }

// Save writes data under name and returns the stored path. Existing files
// are never overwritten. The file appears only once fully written.
func (s *Store) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !validName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	dst := filepath.Join(s.root, name)

	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // dst keeps its own link

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	// Link fails if dst exists, unlike Rename.
	if err := os.Link(tmp.Name(), dst); err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("save %s: %w", name, os.ErrExist)
		}
		return "", fmt.Errorf("link %s: %w", name, err)
	}
	return dst, nil
}

// Remove deletes a stored file. Removing a missing file is not an error.
func (s *Store) Remove(_ context.Context, path string) error {
	rel, err := filepath.Rel(s.root, path)
	if err != nil || !validName(rel) {
		return fmt.Errorf("%w: %q", ErrInvalidName, path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", rel, err)
	}
	return nil
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && !strings.HasPrefix(name, ".")
}
