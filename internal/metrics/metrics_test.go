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
		IncHTTP("/booking", "2xx")
		ObserveBackend("list_entries", "ok", 120*time.Millisecond)
		IncBotUpdate("callback")
	})
}

func TestRejectionsAndSubmits(t *testing.T) {
	before := counterValue(t, selectionRejections.WithLabelValues("daily_limit"))
	IncRejection("daily_limit")
	assert.Equal(t, before+1, counterValue(t, selectionRejections.WithLabelValues("daily_limit")))

	hours := counterValue(t, bookedHours)
	IncSubmitted("ok", 2)
	IncSubmitted("conflict", 3)
	assert.Equal(t, hours+2, counterValue(t, bookedHours))
}
