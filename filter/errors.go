package filter

import (
	"errors"
	"fmt"
)

// Registration errors
var (
	ErrRegistration   = errors.New("filter: registration failed")
	ErrNilFilter      = fmt.Errorf("%w: filter is nil", ErrRegistration)
	ErrNilCodec       = fmt.Errorf("%w: key or value codec is nil", ErrRegistration)
	ErrRegistryClosed = fmt.Errorf("%w: registry is closed", ErrRegistration)
	ErrIDsExhausted   = fmt.Errorf("%w: no free invocation id", ErrRegistration)
)

// Invocation errors
var (
	ErrUnknownFilter  = errors.New("filter: unknown invocation id")
	ErrCodec          = errors.New("filter: codec error")
	ErrFilterFailed   = errors.New("filter: filter failed")
	ErrTransportWrite = errors.New("filter: response write failed")
)
