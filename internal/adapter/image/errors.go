package image

import "fmt"

// ErrorKind categorizes transcoding failures. All kinds are fatal for the
// request and non-retryable without different input.
type ErrorKind int

const (
	// ErrUnrecognized means the byte sequence matched no known container.
	ErrUnrecognized ErrorKind = iota
	// ErrDecode means the container was recognized but the data is corrupt.
	ErrDecode
	// ErrEncode means re-encoding the bounded image failed.
	ErrEncode
)

// String returns a human-readable description of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrUnrecognized:
		return "unrecognized format"
	case ErrDecode:
		return "decode failed"
	case ErrEncode:
		return "encode failed"
	default:
		return "unknown error"
	}
}

// Error is a transcoding failure with enough context to diagnose without
// re-running: the kind of failure and the original payload size.
type Error struct {
	Kind          ErrorKind
	OriginalBytes int
	Err           error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("image %s (%d input bytes): %v", e.Kind, e.OriginalBytes, e.Err)
	}
	return fmt.Sprintf("image %s (%d input bytes)", e.Kind, e.OriginalBytes)
}

// Unwrap exposes the underlying codec error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by kind, so callers can compare against a prototype
// with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}
