package remotefilter

import (
	"github.com/huykn/remote-filter/event"
	"github.com/huykn/remote-filter/filter"
)

// Logger is an alias for filter.Logger.
type Logger = filter.Logger

// Filter is an alias for filter.Filter.
type Filter[K, V any] = filter.Filter[K, V]

// FilterFunc is an alias for filter.FilterFunc.
type FilterFunc[K, V any] = filter.FilterFunc[K, V]

// CacheEntryEvent is an alias for event.CacheEntryEvent.
type CacheEntryEvent[K, V any] = event.CacheEntryEvent[K, V]

// Result is an alias for filter.Result.
type Result = filter.Result

// Stats is an alias for filter.Stats.
type Stats = filter.Stats

// NewConsoleLogger creates a logger that prints to stdout.
func NewConsoleLogger(prefix string) Logger {
	return filter.NewConsoleLogger(prefix)
}
