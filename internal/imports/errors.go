package imports

import "errors"

var (
	// ErrNotFound indicates a missing or already-consumed staged payload.
	ErrNotFound = errors.New("imports: upload payload not found or already consumed")
	// ErrInvalidInput indicates an unusable staging request.
	ErrInvalidInput = errors.New("imports: invalid input")
	// ErrUnsupportedType indicates a file type the adapters cannot parse.
	ErrUnsupportedType = errors.New("imports: unsupported file type")
)
