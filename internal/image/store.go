package image

import (
	"context"
	"path/filepath"
	"strings"
	"time"
)

// Store persists image bytes under names chosen by the Ingester.
type Store interface {
	// Put writes data under name and returns the location recorded in the Asset.
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
	// Remove deletes name. Removing a missing file is not an error.
	Remove(ctx context.Context, name string) error
	// List enumerates every stored image.
	List(ctx context.Context) ([]Object, error)
}

// Object is a stored image as seen by List.
type Object struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// checkName rejects anything that is not a plain file name.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." {
		return ErrInvalidName
	}
	if strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return ErrInvalidName
	}
	return nil
}
