package event

import (
	"errors"
	"fmt"

	"github.com/huykn/remote-filter/binary"
)

// ErrMissingKey is returned when an encoded event carries no key.
var ErrMissingKey = errors.New("event: key is required")

// ErrInvalidKind is returned when an encoded event carries an unknown kind.
var ErrInvalidKind = errors.New("event: invalid event kind")

// Encode writes the event body:
//
//	cacheName:string | kind:int8 | keyPresent:bool + key | oldPresent:bool + old | newPresent:bool + new
func Encode[K, V any](w *binary.Writer, e *CacheEntryEvent[K, V], keys binary.Codec[K], values binary.Codec[V]) error {
	if err := w.WriteString(e.cacheName); err != nil {
		return err
	}
	if err := w.WriteInt8(int8(e.kind)); err != nil {
		return err
	}
	if err := w.WriteOptionalMarker(true); err != nil {
		return err
	}
	if err := keys.Encode(w, e.key); err != nil {
		return fmt.Errorf("encode key: %w", err)
	}
	if err := encodeOptional(w, e.oldValue, values); err != nil {
		return fmt.Errorf("encode old value: %w", err)
	}
	if err := encodeOptional(w, e.newValue, values); err != nil {
		return fmt.Errorf("encode new value: %w", err)
	}
	return nil
}

// EncodeInvocation writes a complete invocation message: the invocation
// identifier followed by the event body.
func EncodeInvocation[K, V any](w *binary.Writer, invocationID int32, e *CacheEntryEvent[K, V], keys binary.Codec[K], values binary.Codec[V]) error {
	if err := w.WriteInt32(invocationID); err != nil {
		return err
	}
	return Encode(w, e, keys, values)
}

// Decode reads an event body written by Encode.
func Decode[K, V any](r *binary.Reader, keys binary.Codec[K], values binary.Codec[V]) (*CacheEntryEvent[K, V], error) {
	cacheName, err := r.ReadString()
	if err != nil {
		return nil, fmt.Errorf("decode cache name: %w", err)
	}

	rawKind, err := r.ReadInt8()
	if err != nil {
		return nil, fmt.Errorf("decode kind: %w", err)
	}
	kind := Kind(rawKind)
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKind, rawKind)
	}

	present, err := r.ReadOptionalMarker()
	if err != nil {
		return nil, fmt.Errorf("decode key marker: %w", err)
	}
	if !present {
		return nil, ErrMissingKey
	}
	key, err := keys.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}

	oldValue, err := decodeOptional(r, values)
	if err != nil {
		return nil, fmt.Errorf("decode old value: %w", err)
	}
	newValue, err := decodeOptional(r, values)
	if err != nil {
		return nil, fmt.Errorf("decode new value: %w", err)
	}

	return New(cacheName, kind, key, oldValue, newValue), nil
}

func encodeOptional[V any](w *binary.Writer, o Optional[V], values binary.Codec[V]) error {
	if err := w.WriteOptionalMarker(o.present); err != nil {
		return err
	}
	if !o.present {
		return nil
	}
	return values.Encode(w, o.value)
}

func decodeOptional[V any](r *binary.Reader, values binary.Codec[V]) (Optional[V], error) {
	present, err := r.ReadOptionalMarker()
	if err != nil {
		return None[V](), err
	}
	if !present {
		return None[V](), nil
	}
	v, err := values.Decode(r)
	if err != nil {
		return None[V](), err
	}
	return Some(v), nil
}
