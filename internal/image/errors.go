package image

import "errors"

var (
	// ErrNotFound signals that the requested image file does not exist.
	ErrNotFound = errors.New("image not found")
	// ErrInvalidName is returned for filenames that could escape the content root.
	ErrInvalidName = errors.New("invalid image name")
	// ErrExists is returned when a store is asked to overwrite an existing file.
	ErrExists = errors.New("image already exists")
)
