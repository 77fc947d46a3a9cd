package listing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/abduss/homelist/internal/image"
)

var (
	// ErrNotFound signals that no listing has the requested id.
	ErrNotFound = errors.New("listing not found")
	// ErrStorage matches every *StorageError.
	ErrStorage = errors.New("listing storage failure")
	// ErrCorruptCollection is wrapped in a StorageError when persisted state cannot be parsed.
	ErrCorruptCollection = errors.New("listing collection is corrupt")
)

// StorageError reports a failed durable read or write. A failed write never
// takes partial effect.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// ValidationError lists everything wrong with a submission.
type ValidationError struct {
	Fields []string
	Images []image.ItemError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields)+len(e.Images))
	parts = append(parts, e.Fields...)
	for _, item := range e.Images {
		parts = append(parts, fmt.Sprintf("image %d (%s): %s", item.Index, item.Name, strings.Join(item.Errors, "; ")))
	}
	return "invalid listing: " + strings.Join(parts, ", ")
}
