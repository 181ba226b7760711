package filter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/huykn/remote-filter/binary"
	"github.com/huykn/remote-filter/event"
)

func encodeInvocation(t *testing.T, id int32, evt *event.CacheEntryEvent[int32, int64]) []byte {
	t.Helper()
	w := binary.NewBufferWriter()
	require.NoError(t, event.EncodeInvocation[int32, int64](w, id, evt, binary.Int32Codec{}, binary.Int64Codec{}))
	return w.Bytes()
}

func dispatch(t *testing.T, d *Dispatcher, msg []byte) Result {
	t.Helper()
	w := binary.NewBufferWriter()
	require.NoError(t, d.Dispatch(binary.NewReader(msg), w))

	r := binary.NewReader(w.Bytes())
	res, err := DecodeResult(r)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Remaining(), "response must be a single result")
	return res
}

func updated(key int32, oldValue, newValue int64) *event.CacheEntryEvent[int32, int64] {
	return event.New("counters", event.Updated, key, event.Some(oldValue), event.Some(newValue))
}

func TestDispatchThreshold(t *testing.T) {
	reg := NewRegistry(nil)
	d := NewDispatcher(reg, DispatcherOptions{})

	id, err := Register[int32, int64](reg, &thresholdFilter{min: 10}, binary.Int32Codec{}, binary.Int64Codec{})
	require.NoError(t, err)

	assert.Equal(t, Pass(true), dispatch(t, d, encodeInvocation(t, id, updated(1, 3, 15))))
	assert.Equal(t, Pass(false), dispatch(t, d, encodeInvocation(t, id, updated(1, 15, 5))))

	res := dispatch(t, d, encodeInvocation(t, 999, updated(1, 3, 15)))
	assert.Equal(t, StatusUnknownFilter, res.Status)

	stats := d.Stats()
	assert.Equal(t, int64(3), stats.Dispatched)
	assert.Equal(t, int64(1), stats.Passed)
	assert.Equal(t, int64(1), stats.Rejected)
	assert.Equal(t, int64(1), stats.UnknownFilter)
}

func TestDispatchConstantFilters(t *testing.T) {
	reg := NewRegistry(nil)
	d := NewDispatcher(reg, DispatcherOptions{})

	for _, want := range []bool{true, false} {
		want := want
		id, err := Register[int32, int64](reg, FilterFunc[int32, int64](func(*event.CacheEntryEvent[int32, int64]) (bool, error) {
			return want, nil
		}), binary.Int32Codec{}, binary.Int64Codec{})
		require.NoError(t, err)

		evt := event.New[int32, int64]("counters", event.Removed, 4, event.Some[int64](1), event.None[int64]())
		assert.Equal(t, Pass(want), dispatch(t, d, encodeInvocation(t, id, evt)))
	}
}

func TestDispatchUnknownFilterNeverInvokes(t *testing.T) {
	reg := NewRegistry(nil)
	var calls atomic.Int32
	counting := FilterFunc[int32, int64](func(*event.CacheEntryEvent[int32, int64]) (bool, error) {
		calls.Add(1)
		return true, nil
	})
	id, err := Register[int32, int64](reg, counting, binary.Int32Codec{}, binary.Int64Codec{})
	require.NoError(t, err)

	var faults []Result
	d := NewDispatcher(reg, DispatcherOptions{OnFault: func(_ int32, r Result) { faults = append(faults, r) }})

	res := dispatch(t, d, encodeInvocation(t, id+1, updated(1, 1, 2)))
	assert.Equal(t, StatusUnknownFilter, res.Status)
	assert.Contains(t, res.Message, fmt.Sprint(id+1))

	// Payload after an unknown id is irrelevant.
	w := binary.NewBufferWriter()
	require.NoError(t, w.WriteInt32(999))
	require.NoError(t, w.WriteBytes([]byte("garbage")))
	res = dispatch(t, d, w.Bytes())
	assert.Equal(t, StatusUnknownFilter, res.Status)

	assert.Zero(t, calls.Load())
	assert.Len(t, faults, 2)
}

func TestDispatchUnreadableID(t *testing.T) {
	d := NewDispatcher(NewRegistry(nil), DispatcherOptions{})
	w := binary.NewBufferWriter()

	err := d.Dispatch(binary.NewReader([]byte{1, 2}), w)
	assert.ErrorIs(t, err, ErrCodec)
	assert.ErrorIs(t, err, binary.ErrTruncated)
	assert.Empty(t, w.Bytes())
}

func TestDispatchCodecError(t *testing.T) {
	reg := NewRegistry(nil)
	d := NewDispatcher(reg, DispatcherOptions{})
	id, err := Register[int32, int64](reg, &thresholdFilter{min: 10}, binary.Int32Codec{}, binary.Int64Codec{})
	require.NoError(t, err)

	msg := encodeInvocation(t, id, updated(1, 3, 15))
	res := dispatch(t, d, msg[:len(msg)-2])
	assert.Equal(t, StatusCodecError, res.Status)
	assert.NotEmpty(t, res.Message)

	// Bad event kind.
	w := binary.NewBufferWriter()
	require.NoError(t, w.WriteInt32(id))
	require.NoError(t, w.WriteString("counters"))
	require.NoError(t, w.WriteInt8(77))
	res = dispatch(t, d, w.Bytes())
	assert.Equal(t, StatusCodecError, res.Status)

	assert.Equal(t, int64(2), d.Stats().CodecErrors)
}

type panickingCodec struct{}

func (panickingCodec) Encode(w *binary.Writer, v int64) error { return w.WriteInt64(v) }
func (panickingCodec) Decode(r *binary.Reader) (int64, error) { panic("corrupt value") }

func TestDispatchCodecPanic(t *testing.T) {
	reg := NewRegistry(nil)
	d := NewDispatcher(reg, DispatcherOptions{})
	id, err := Register[int32, int64](reg, &thresholdFilter{}, binary.Int32Codec{}, panickingCodec{})
	require.NoError(t, err)

	res := dispatch(t, d, encodeInvocation(t, id, updated(1, 3, 15)))
	assert.Equal(t, StatusCodecError, res.Status)
	assert.Contains(t, res.Message, "corrupt value")
}

func TestDispatchFilterError(t *testing.T) {
	reg := NewRegistry(nil)
	d := NewDispatcher(reg, DispatcherOptions{})

	failing, err := Register[int32, int64](reg, FilterFunc[int32, int64](func(*event.CacheEntryEvent[int32, int64]) (bool, error) {
		return true, errors.New("quota lookup failed")
	}), binary.Int32Codec{}, binary.Int64Codec{})
	require.NoError(t, err)

	panicking, err := Register[int32, int64](reg, FilterFunc[int32, int64](func(*event.CacheEntryEvent[int32, int64]) (bool, error) {
		panic("nil map")
	}), binary.Int32Codec{}, binary.Int64Codec{})
	require.NoError(t, err)

	healthy, err := Register[int32, int64](reg, &thresholdFilter{min: 10}, binary.Int32Codec{}, binary.Int64Codec{})
	require.NoError(t, err)

	res := dispatch(t, d, encodeInvocation(t, failing, updated(1, 3, 15)))
	assert.Equal(t, StatusFilterError, res.Status)
	assert.Contains(t, res.Message, "quota lookup failed")

	res = dispatch(t, d, encodeInvocation(t, panicking, updated(1, 3, 15)))
	assert.Equal(t, StatusFilterError, res.Status)
	assert.Contains(t, res.Message, "nil map")

	// The dispatcher keeps working after a failing filter.
	assert.Equal(t, Pass(true), dispatch(t, d, encodeInvocation(t, healthy, updated(1, 3, 15))))
	assert.Equal(t, int64(2), d.Stats().FilterErrors)

	b, _ := reg.Lookup(panicking)
	assert.Zero(t, b.InFlight())
}

type brokenPipe struct{}

func (brokenPipe) Write(p []byte) (int, error) { return 0, errors.New("connection reset") }

func TestDispatchWriteFailure(t *testing.T) {
	reg := NewRegistry(nil)
	d := NewDispatcher(reg, DispatcherOptions{})
	id, err := Register[int32, int64](reg, &thresholdFilter{}, binary.Int32Codec{}, binary.Int64Codec{})
	require.NoError(t, err)

	err = d.Dispatch(binary.NewReader(encodeInvocation(t, id, updated(1, 3, 15))), binary.NewWriter(brokenPipe{}))
	assert.ErrorIs(t, err, ErrTransportWrite)
	assert.Equal(t, int64(1), d.Stats().WriteFailures)

	// Unknown filter responses hit the same broken channel.
	err = d.Dispatch(binary.NewReader(encodeInvocation(t, 999, updated(1, 3, 15))), binary.NewWriter(brokenPipe{}))
	assert.ErrorIs(t, err, ErrTransportWrite)
}

// cacheNameFilter fails if it ever sees an event for a cache other than its own.
type cacheNameFilter struct {
	name  string
	calls atomic.Int64
}

func (f *cacheNameFilter) Process(evt *event.CacheEntryEvent[int32, int64]) (bool, error) {
	f.calls.Add(1)
	if evt.CacheName() != f.name {
		return false, fmt.Errorf("filter %s received event for %s", f.name, evt.CacheName())
	}
	v, _ := evt.NewValue().Get()
	return v%2 == 0, nil
}

func TestDispatchConcurrentNoCrossTalk(t *testing.T) {
	const filters, calls = 16, 200

	reg := NewRegistry(nil)
	d := NewDispatcher(reg, DispatcherOptions{})

	var g errgroup.Group
	var mu sync.Mutex
	owned := make([]*cacheNameFilter, 0, filters)

	for i := 0; i < filters; i++ {
		i := i
		g.Go(func() error {
			f := &cacheNameFilter{name: fmt.Sprintf("cache-%d", i)}
			id, err := Register[int32, int64](reg, f, binary.Int32Codec{}, binary.Int64Codec{})
			if err != nil {
				return err
			}
			mu.Lock()
			owned = append(owned, f)
			mu.Unlock()

			for j := 0; j < calls; j++ {
				evt := event.New(f.name, event.Updated, int32(j), event.None[int64](), event.Some(int64(j)))
				msg := binary.NewBufferWriter()
				if err := event.EncodeInvocation[int32, int64](msg, id, evt, binary.Int32Codec{}, binary.Int64Codec{}); err != nil {
					return err
				}

				w := binary.NewBufferWriter()
				if err := d.Dispatch(binary.NewReader(msg.Bytes()), w); err != nil {
					return err
				}
				res, err := DecodeResult(binary.NewReader(w.Bytes()))
				if err != nil {
					return err
				}
				if res != Pass(j%2 == 0) {
					return fmt.Errorf("%s call %d: got %+v", f.name, j, res)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for _, f := range owned {
		assert.Equal(t, int64(calls), f.calls.Load(), f.name)
	}
	assert.Equal(t, int64(filters*calls), d.Stats().Dispatched)
}

func TestRetireUnderLoadStopsCalls(t *testing.T) {
	for round := 0; round < 20; round++ {
		reg := NewRegistry(nil)
		d := NewDispatcher(reg, DispatcherOptions{})

		var retired atomic.Bool
		var late atomic.Int32
		id, err := Register[int32, int64](reg, FilterFunc[int32, int64](func(*event.CacheEntryEvent[int32, int64]) (bool, error) {
			if retired.Load() {
				late.Add(1)
			}
			return true, nil
		}), binary.Int32Codec{}, binary.Int64Codec{})
		require.NoError(t, err)

		msg := encodeInvocation(t, id, updated(1, 1, 2))
		stop := make(chan struct{})
		var g errgroup.Group
		for i := 0; i < 8; i++ {
			g.Go(func() error {
				for {
					select {
					case <-stop:
						return nil
					default:
					}
					if err := d.Dispatch(binary.NewReader(msg), binary.NewBufferWriter()); err != nil {
						return err
					}
				}
			})
		}

		time.Sleep(time.Millisecond)
		require.NoError(t, reg.Retire(context.Background(), id))
		retired.Store(true)
		time.Sleep(time.Millisecond)
		close(stop)
		require.NoError(t, g.Wait())

		assert.Zero(t, late.Load(), "round %d: filter called after Retire returned", round)
	}
}
