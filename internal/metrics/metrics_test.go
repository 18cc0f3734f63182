package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Connections.Inc()
	m.Drop("send-message", ReasonRateLimited)
	m.Drop("send-message", ReasonRateLimited)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Connections))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.DroppedEvents.WithLabelValues("send-message", ReasonRateLimited)))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "devmatch_gateway_connections")
	assert.Contains(t, names, "devmatch_gateway_dropped_events_total")
}

func TestNew_NilRegisterer(t *testing.T) {
	m := New(nil)
	assert.NotPanics(t, func() { m.Evictions.Inc() })
	// a second set doesn't collide when unregistered
	assert.NotPanics(t, func() { New(nil) })
}
