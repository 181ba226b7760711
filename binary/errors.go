package binary

import "errors"

// ErrTruncated is returned when a read runs past the end of the buffer.
var ErrTruncated = errors.New("binary: unexpected end of stream")

// ErrMalformed is returned when the stream holds a value the format does not allow.
var ErrMalformed = errors.New("binary: malformed value")

// ErrUnsupportedFormat is returned by GetSerializer for unknown formats.
var ErrUnsupportedFormat = errors.New("binary: unsupported serialization format")
