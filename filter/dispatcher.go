package filter

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/huykn/remote-filter/binary"
	"github.com/huykn/remote-filter/metrics"
)

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	// Logger is the logger for faults and debug output.
	// If nil, defaults to no-op logger.
	Logger Logger

	// DebugMode enables debug logging of every invocation.
	DebugMode bool

	// Metrics records dispatch outcomes. If nil, metrics are discarded.
	Metrics metrics.Recorder

	// OnFault is called for every invocation that ends in a fault, before the
	// response is written. The subscription owner uses it to apply its
	// fail-open or fail-closed policy.
	OnFault func(invocationID int32, result Result)
}

// Stats counts dispatch outcomes.
type Stats struct {
	Dispatched    int64
	Passed        int64
	Rejected      int64
	UnknownFilter int64
	CodecErrors   int64
	FilterErrors  int64
	WriteFailures int64
}

// Dispatcher is the entry point the transport calls for every inbound
// invocation message. It is safe for concurrent use as long as each call
// gets its own Reader and Writer.
type Dispatcher struct {
	registry *Registry
	logger   Logger
	metrics  metrics.Recorder
	options  DispatcherOptions
	stats    Stats
}

// NewDispatcher creates a dispatcher that resolves filters in reg.
func NewDispatcher(reg *Registry, opts DispatcherOptions) *Dispatcher {
	if opts.Logger == nil {
		opts.Logger = NewNoOpLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop{}
	}
	return &Dispatcher{
		registry: reg,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		options:  opts,
	}
}

// Dispatch reads one invocation message from r, evaluates the bound filter
// and writes exactly one response to w.
//
// Unknown ids, undecodable events and failing filters are reported to the
// caller in the response and Dispatch returns nil. Dispatch returns an error
// only when the invocation id itself cannot be read (ErrCodec, nothing is
// written) or when writing the response fails (ErrTransportWrite).
func (d *Dispatcher) Dispatch(r *binary.Reader, w *binary.Writer) error {
	start := time.Now()

	id, err := r.ReadInt32()
	if err != nil {
		atomic.AddInt64(&d.stats.CodecErrors, 1)
		d.logger.Error("Dispatch: unreadable invocation id", "error", err)
		return fmt.Errorf("%w: read invocation id: %w", ErrCodec, err)
	}

	result := d.invoke(id, r)
	d.record(id, result, time.Since(start))

	if err := result.Encode(w); err != nil {
		atomic.AddInt64(&d.stats.WriteFailures, 1)
		d.metrics.RecordWriteFailure()
		d.logger.Error("Dispatch: failed to write response", "id", id, "status", result.Status.String(), "error", err)
		return fmt.Errorf("%w: invocation %d: %w", ErrTransportWrite, id, err)
	}
	return nil
}

// invoke resolves the binding, decodes the event and runs the filter.
func (d *Dispatcher) invoke(id int32, r *binary.Reader) Result {
	b, ok := d.registry.Lookup(id)
	if !ok {
		return Fault(StatusUnknownFilter, fmt.Sprintf("%v: %d", ErrUnknownFilter, id))
	}

	if !b.acquire() {
		return Fault(StatusUnknownFilter, fmt.Sprintf("%v: %d", ErrUnknownFilter, id))
	}
	defer b.release()

	inv, err := b.decode(r)
	if err != nil {
		return Fault(StatusCodecError, err.Error())
	}

	passed, err := b.call(inv)
	if err != nil {
		return Fault(StatusFilterError, err.Error())
	}
	return Pass(passed)
}

func (d *Dispatcher) record(id int32, result Result, elapsed time.Duration) {
	atomic.AddInt64(&d.stats.Dispatched, 1)
	switch result.Status {
	case StatusPass:
		if result.Passed {
			atomic.AddInt64(&d.stats.Passed, 1)
		} else {
			atomic.AddInt64(&d.stats.Rejected, 1)
		}
	case StatusUnknownFilter:
		atomic.AddInt64(&d.stats.UnknownFilter, 1)
	case StatusCodecError:
		atomic.AddInt64(&d.stats.CodecErrors, 1)
	case StatusFilterError:
		atomic.AddInt64(&d.stats.FilterErrors, 1)
	}
	d.metrics.RecordDispatch(result.Status.String(), elapsed)

	if result.IsFault() {
		d.logger.Warn("Dispatch: invocation faulted", "id", id, "status", result.Status.String(), "message", result.Message)
		if d.options.OnFault != nil {
			d.options.OnFault(id, result)
		}
		return
	}
	if d.options.DebugMode {
		d.logger.Debug("Dispatch: filter evaluated", "id", id, "passed", result.Passed, "elapsed", elapsed)
	}
}

// Stats returns dispatch counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Dispatched:    atomic.LoadInt64(&d.stats.Dispatched),
		Passed:        atomic.LoadInt64(&d.stats.Passed),
		Rejected:      atomic.LoadInt64(&d.stats.Rejected),
		UnknownFilter: atomic.LoadInt64(&d.stats.UnknownFilter),
		CodecErrors:   atomic.LoadInt64(&d.stats.CodecErrors),
		FilterErrors:  atomic.LoadInt64(&d.stats.FilterErrors),
		WriteFailures: atomic.LoadInt64(&d.stats.WriteFailures),
	}
}
