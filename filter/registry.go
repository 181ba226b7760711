package filter

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/huykn/remote-filter/binary"
	"github.com/huykn/remote-filter/metrics"
)

// drainInterval is how often Drain re-checks the in-flight counter.
const drainInterval = 5 * time.Millisecond

// Registry maps invocation ids to filter bindings.
//
// Lookups are lock-free and may run from any number of goroutines.
// Register and Deregister serialize on a mutex; a binding stored by Register
// is visible to every Lookup that starts after Register returns.
type Registry struct {
	bindings *xsync.MapOf[int32, *Binding]
	recorder metrics.Recorder
	mu       sync.Mutex
	nextID   int32
	closed   bool
}

// NewRegistry creates an empty registry. A nil recorder disables metrics.
func NewRegistry(recorder metrics.Recorder) *Registry {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &Registry{
		bindings: xsync.NewMapOf[int32, *Binding](),
		recorder: recorder,
	}
}

// Register binds f to a fresh invocation id and returns the id. The caller
// sends the id to the cluster so that future events reference it.
//
// The same filter instance may be registered more than once; every
// registration gets its own id.
func Register[K, V any](reg *Registry, f Filter[K, V], keys binary.Codec[K], values binary.Codec[V]) (int32, error) {
	if isNil(f) {
		return 0, ErrNilFilter
	}
	if isNil(keys) || isNil(values) {
		return 0, ErrNilCodec
	}
	return reg.bind(func(id int32) *Binding {
		return newBinding(id, f, keys, values)
	})
}

func (r *Registry) bind(build func(id int32) *Binding) (int32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, ErrRegistryClosed
	}

	id, err := r.allocateID()
	if err != nil {
		return 0, err
	}

	r.bindings.Store(id, build(id))
	r.recorder.RecordBindings(r.bindings.Size())
	return id, nil
}

// allocateID returns the next positive id not currently bound. Callers hold r.mu.
func (r *Registry) allocateID() (int32, error) {
	for i := 0; i < math.MaxInt32; i++ {
		if r.nextID == math.MaxInt32 {
			r.nextID = 0
		}
		r.nextID++
		if _, taken := r.bindings.Load(r.nextID); !taken {
			return r.nextID, nil
		}
	}
	return 0, ErrIDsExhausted
}

// Lookup returns the binding for id, or false if id is not registered.
func (r *Registry) Lookup(id int32) (*Binding, bool) {
	return r.bindings.Load(id)
}

// Deregister removes the binding for id. Invocations that resolve the id
// afterwards fail with StatusUnknownFilter; invocations already running are
// not waited for, see Retire.
func (r *Registry) Deregister(id int32) error {
	_, err := r.remove(id)
	return err
}

// Retire removes the binding for id and then blocks until every invocation
// that started before the removal has finished, or ctx is done. Once Retire
// returns nil the filter is never called again for id.
func (r *Registry) Retire(ctx context.Context, id int32) error {
	b, err := r.remove(id)
	if err != nil {
		return err
	}
	return b.wait(ctx)
}

func (r *Registry) remove(id int32) (*Binding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bindings.LoadAndDelete(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFilter, id)
	}
	b.retired.Store(true)
	r.recorder.RecordBindings(r.bindings.Size())
	return b, nil
}

// Drain blocks until no invocation for id is running or ctx is done.
//
// Drain only observes invocations that already resolved the binding. The
// cluster must have stopped sending events for id before Drain is called.
func (r *Registry) Drain(ctx context.Context, id int32) error {
	b, ok := r.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownFilter, id)
	}
	return b.wait(ctx)
}

// Len returns the number of registered filters.
func (r *Registry) Len() int {
	return r.bindings.Size()
}

// Close drops every binding. Later calls to Register fail with ErrRegistryClosed.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	r.bindings.Range(func(_ int32, b *Binding) bool {
		b.retired.Store(true)
		return true
	})
	r.bindings.Clear()
	r.recorder.RecordBindings(0)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Chan, reflect.Interface, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
