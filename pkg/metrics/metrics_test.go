package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegisterOnOwnRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("opd", reg)

	m.Bookings.WithLabelValues("success").Inc()
	m.Bookings.WithLabelValues("success").Inc()
	m.TokenRetries.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Bookings.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenRetries))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "opd_bookings_total")
	assert.Contains(t, names, "opd_token_allocation_retries_total")
}

func TestTwoInstancesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		NewNop()
		NewNop()
	})
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "success", Outcome(nil))
	assert.Equal(t, "error", Outcome(fmt.Errorf("x")))
}
