// Package event models a single cache entry change delivered by the cluster.
package event

import "fmt"

// Kind is the kind of change an event describes.
type Kind int8

// Event kinds as they appear on the wire.
const (
	Created Kind = 0
	Updated Kind = 1
	Removed Kind = 2
	Expired Kind = 3
)

// Valid reports whether k is a known event kind.
func (k Kind) Valid() bool {
	return k >= Created && k <= Expired
}

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Removed:
		return "removed"
	case Expired:
		return "expired"
	default:
		return fmt.Sprintf("kind(%d)", int8(k))
	}
}

// Optional holds a value that may be absent.
type Optional[V any] struct {
	value   V
	present bool
}

// Some returns a present optional holding v.
func Some[V any](v V) Optional[V] {
	return Optional[V]{value: v, present: true}
}

// None returns an absent optional.
func None[V any]() Optional[V] {
	return Optional[V]{}
}

// Get returns the value and whether it is present.
func (o Optional[V]) Get() (V, bool) {
	return o.value, o.present
}

// IsPresent reports whether a value is held.
func (o Optional[V]) IsPresent() bool {
	return o.present
}

// CacheEntryEvent describes one change to a cache entry.
// It is built fresh for each invocation and must be treated as read-only.
type CacheEntryEvent[K, V any] struct {
	cacheName string
	kind      Kind
	key       K
	oldValue  Optional[V]
	newValue  Optional[V]
}

// New creates a cache entry event.
func New[K, V any](cacheName string, kind Kind, key K, oldValue, newValue Optional[V]) *CacheEntryEvent[K, V] {
	return &CacheEntryEvent[K, V]{
		cacheName: cacheName,
		kind:      kind,
		key:       key,
		oldValue:  oldValue,
		newValue:  newValue,
	}
}

// CacheName returns the name of the cache the entry belongs to.
func (e *CacheEntryEvent[K, V]) CacheName() string { return e.cacheName }

// Kind returns the kind of change.
func (e *CacheEntryEvent[K, V]) Kind() Kind { return e.kind }

// Key returns the entry key.
func (e *CacheEntryEvent[K, V]) Key() K { return e.key }

// OldValue returns the value before the change, if the cluster sent one.
func (e *CacheEntryEvent[K, V]) OldValue() Optional[V] { return e.oldValue }

// NewValue returns the value after the change, if any.
func (e *CacheEntryEvent[K, V]) NewValue() Optional[V] { return e.newValue }

// HasOldValue reports whether an old value is present.
func (e *CacheEntryEvent[K, V]) HasOldValue() bool { return e.oldValue.present }

// HasNewValue reports whether a new value is present.
func (e *CacheEntryEvent[K, V]) HasNewValue() bool { return e.newValue.present }

func (e *CacheEntryEvent[K, V]) String() string {
	return fmt.Sprintf("%s %s key=%v", e.cacheName, e.kind, e.key)
}
