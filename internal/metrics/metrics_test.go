package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("test_endpoint")
		ObserveQuery("camps", 3*time.Millisecond)
	})
}

func TestCounters(t *testing.T) {
	before := counterValue(t, transitions.WithLabelValues("camp", "complete", ResultOK))
	IncTransition("camp", "complete", ResultOK)
	assert.Equal(t, before+1, counterValue(t, transitions.WithLabelValues("camp", "complete", ResultOK)))

	IncSnapshot("camps")
	IncSnapshot("camps")
	assert.GreaterOrEqual(t, counterValue(t, snapshots.WithLabelValues("camps")), float64(2))

	base := counterValue(t, shapeAnomalies.WithLabelValues("testBookings"))
	AddShapeAnomalies("testBookings", 0)
	AddShapeAnomalies("testBookings", 3)
	assert.Equal(t, base+3, counterValue(t, shapeAnomalies.WithLabelValues("testBookings")))

	before = counterValue(t, syncTasks.WithLabelValues(SyncRetried))
	IncSync(SyncRetried)
	assert.Equal(t, before+1, counterValue(t, syncTasks.WithLabelValues(SyncRetried)))
}
