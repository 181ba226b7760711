// Package metrics records dispatch outcomes for the filter bridge.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder is the interface for recording operational metrics.
type Recorder interface {
	// RecordDispatch records one finished invocation and its outcome.
	RecordDispatch(status string, d time.Duration)
	// RecordBindings records the number of registered filters.
	RecordBindings(count int)
	// RecordWriteFailure records a response that could not be written.
	RecordWriteFailure()
}

// Noop is a Recorder that discards all data.
type Noop struct{}

func (Noop) RecordDispatch(status string, d time.Duration) {}
func (Noop) RecordBindings(count int)                      {}
func (Noop) RecordWriteFailure()                           {}

// Prometheus records metrics into a prometheus registry.
type Prometheus struct {
	dispatches    *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	bindings      prometheus.Gauge
	writeFailures prometheus.Counter
}

// NewPrometheus creates a Prometheus recorder and registers its collectors with reg.
func NewPrometheus(reg prometheus.Registerer, namespace string) (*Prometheus, error) {
	p := &Prometheus{
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "dispatch_total",
			Help:      "Filter invocations by result status.",
		}, []string{"status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent decoding, invoking and encoding one filter invocation.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"status"}),
		bindings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "bindings",
			Help:      "Number of registered filters.",
		}),
		writeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "filter",
			Name:      "write_failures_total",
			Help:      "Responses that could not be written to the transport.",
		}),
	}

	for _, c := range []prometheus.Collector{p.dispatches, p.latency, p.bindings, p.writeFailures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// RecordDispatch increments the status counter and observes the latency.
func (p *Prometheus) RecordDispatch(status string, d time.Duration) {
	p.dispatches.WithLabelValues(status).Inc()
	p.latency.WithLabelValues(status).Observe(d.Seconds())
}

// RecordBindings sets the bindings gauge.
func (p *Prometheus) RecordBindings(count int) {
	p.bindings.Set(float64(count))
}

// RecordWriteFailure increments the write failure counter.
func (p *Prometheus) RecordWriteFailure() {
	p.writeFailures.Inc()
}
