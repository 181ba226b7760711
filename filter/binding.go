package filter

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/huykn/remote-filter/binary"
	"github.com/huykn/remote-filter/event"
)

// invocation evaluates a filter against an already decoded event.
type invocation func() (bool, error)

// Binding ties an invocation id to a filter and the codecs of its key and
// value types. The concrete types are captured when the filter is
// registered, so callers of a Binding never see them.
type Binding struct {
	id       int32
	filter   any
	prepare  func(r *binary.Reader) (invocation, error)
	inFlight atomic.Int64
	retired  atomic.Bool
}

func newBinding[K, V any](id int32, f Filter[K, V], keys binary.Codec[K], values binary.Codec[V]) *Binding {
	return &Binding{
		id:     id,
		filter: f,
		prepare: func(r *binary.Reader) (invocation, error) {
			evt, err := event.Decode(r, keys, values)
			if err != nil {
				return nil, err
			}
			return func() (bool, error) {
				return f.Process(evt)
			}, nil
		},
	}
}

// ID returns the invocation id.
func (b *Binding) ID() int32 {
	return b.id
}

// Filter returns the registered filter instance.
func (b *Binding) Filter() any {
	return b.filter
}

// InFlight returns the number of invocations currently running for this binding.
func (b *Binding) InFlight() int64 {
	return b.inFlight.Load()
}

// acquire marks an invocation as running. It fails once the binding has
// been removed from its registry.
func (b *Binding) acquire() bool {
	b.inFlight.Add(1)
	if b.retired.Load() {
		b.inFlight.Add(-1)
		return false
	}
	return true
}

func (b *Binding) release() {
	b.inFlight.Add(-1)
}

// wait blocks until no invocation is running or ctx is done.
func (b *Binding) wait(ctx context.Context) error {
	if b.InFlight() == 0 {
		return nil
	}

	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if b.InFlight() == 0 {
				return nil
			}
		}
	}
}

// decode reads the event body. Codec panics are reported as ErrCodec.
func (b *Binding) decode(r *binary.Reader) (inv invocation, err error) {
	defer func() {
		if p := recover(); p != nil {
			inv, err = nil, fmt.Errorf("%w: codec panic: %v", ErrCodec, p)
		}
	}()

	inv, err = b.prepare(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCodec, err)
	}
	return inv, nil
}

// call runs the filter. Filter panics are reported as ErrFilterFailed.
func (b *Binding) call(inv invocation) (passed bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			passed, err = false, fmt.Errorf("%w: panic: %v", ErrFilterFailed, p)
		}
	}()

	passed, err = inv()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrFilterFailed, err)
	}
	return passed, nil
}
