package remotefilter

import (
	"errors"

	"github.com/huykn/remote-filter/filter"
)

// ErrInvalidConfig is returned when the bridge configuration is invalid.
var ErrInvalidConfig = errors.New("remotefilter: invalid configuration")

// ErrBridgeClosed is returned when operations are performed on a closed bridge.
var ErrBridgeClosed = errors.New("remotefilter: bridge is closed")

// ErrRedisConnection is returned when Redis connection fails.
var ErrRedisConnection = errors.New("remotefilter: redis connection failed")

// Errors reported by the registry and dispatcher.
var (
	ErrRegistration   = filter.ErrRegistration
	ErrUnknownFilter  = filter.ErrUnknownFilter
	ErrCodec          = filter.ErrCodec
	ErrFilterFailed   = filter.ErrFilterFailed
	ErrTransportWrite = filter.ErrTransportWrite
)
