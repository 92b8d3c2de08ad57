package imagestore

import "errors"

// ErrCorruptContent is returned when uploaded bytes claim to be an image
// but do not decode, or decode to a type that contradicts the extension.
var ErrCorruptContent = errors.New("file content is not a valid image")

// ErrNotFound is returned when a stored image cannot be located.
var ErrNotFound = errors.New("image not found")

// ValidationError reports caller-supplied upload data that failed a
// precondition before any bytes were written.
type ValidationError struct {
	Field  string // "filename", "extension" or "size"
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}
