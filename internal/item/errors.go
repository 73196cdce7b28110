package item

import "errors"

// Sentinel errors for item registry operations.
var (
	// ErrNotFound indicates the item is not registered for export.
	ErrNotFound = errors.New("item: not registered")

	// ErrInvalidMode indicates an unrecognised export mode.
	ErrInvalidMode = errors.New("item: invalid export mode")
)
