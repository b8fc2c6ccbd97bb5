package imagestore

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedImage means the payload is empty, not an image, or
	// not one of PNG, JPEG, GIF, WEBP.
	ErrUnsupportedImage = errors.New("unsupported image format")
	// ErrTooLarge means the payload exceeds the configured upload limit.
	ErrTooLarge = errors.New("image exceeds upload size limit")
)

// StoreError wraps a failure of the remote object store.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("image store %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
