// Package filter binds user predicates to invocation identifiers and runs
// them against cache entry events decoded from the wire.
//
// A Registry maps each identifier to a Binding that knows how to decode the
// filter's key and value types. The Dispatcher reads an invocation message,
// resolves its Binding, evaluates the filter and writes back a Result.
package filter

import "github.com/huykn/remote-filter/event"

// Filter decides whether a cache entry event passes.
//
// Process is called synchronously on the transport's worker and should return
// promptly. Implementations may be called concurrently for different events.
type Filter[K, V any] interface {
	Process(evt *event.CacheEntryEvent[K, V]) (bool, error)
}

// FilterFunc adapts an ordinary function to the Filter interface.
type FilterFunc[K, V any] func(evt *event.CacheEntryEvent[K, V]) (bool, error)

// Process calls f(evt).
func (f FilterFunc[K, V]) Process(evt *event.CacheEntryEvent[K, V]) (bool, error) {
	return f(evt)
}
