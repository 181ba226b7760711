package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoop(t *testing.T) {
	var r Recorder = Noop{}
	r.RecordDispatch("pass", time.Millisecond)
	r.RecordBindings(3)
	r.RecordWriteFailure()
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPrometheus(reg, "remotefilter")
	require.NoError(t, err)

	p.RecordDispatch("pass", time.Millisecond)
	p.RecordDispatch("pass", time.Millisecond)
	p.RecordDispatch("filter_error", time.Millisecond)
	p.RecordBindings(4)
	p.RecordWriteFailure()

	assert.Equal(t, 2.0, testutil.ToFloat64(p.dispatches.WithLabelValues("pass")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.dispatches.WithLabelValues("filter_error")))
	assert.Equal(t, 4.0, testutil.ToFloat64(p.bindings))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.writeFailures))
}

func TestPrometheusDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheus(reg, "remotefilter")
	require.NoError(t, err)

	_, err = NewPrometheus(reg, "remotefilter")
	assert.Error(t, err)
}
