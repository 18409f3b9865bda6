package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSurfaceOpenedAndClosed(t *testing.T) {
	SurfacesOpened.Reset()
	SurfacesActive.Set(0)

	RecordSurfaceOpened("floating")
	RecordSurfaceOpened("window")

	assert.Equal(t, 1.0, getCounterValue(t, SurfacesOpened, "floating"))
	assert.Equal(t, 1.0, getCounterValue(t, SurfacesOpened, "window"))
	assert.Equal(t, 2.0, getGaugeValue(t, SurfacesActive))

	RecordSurfaceClosed()
	assert.Equal(t, 1.0, getGaugeValue(t, SurfacesActive))
}

func TestRecordSyncReceived(t *testing.T) {
	SyncReceived.Reset()

	RecordSyncReceived("TASK_COMPLETE", "applied")
	RecordSyncReceived("TIMER_STATE_CHANGE", "stale")
	RecordSyncReceived("TIMER_STATE_CHANGE", "stale")

	assert.Equal(t, 1.0, getCounterValue(t, SyncReceived, "TASK_COMPLETE", "applied"))
	assert.Equal(t, 2.0, getCounterValue(t, SyncReceived, "TIMER_STATE_CHANGE", "stale"))
}

func TestRecordTaskCompleted(t *testing.T) {
	TasksCompleted.Reset()
	FocusTime.Reset()

	RecordTaskCompleted("expired", 25*time.Minute)

	assert.Equal(t, 1.0, getCounterValue(t, TasksCompleted, "expired"))
	assert.Equal(t, 1500.0, getHistogramSum(t, FocusTime, "expired"))
}

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("GET", "/api/tasks", "200", 250*time.Millisecond)

	assert.Equal(t, 1.0, getCounterValue(t, HTTPRequestsTotal, "GET", "/api/tasks", "200"))
	assert.Equal(t, 0.25, getHistogramSum(t, HTTPRequestDuration, "GET", "/api/tasks"))
}

func getCounterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	counter, err := vec.GetMetricWithLabelValues(labels...)
	require.NoError(t, err)

	metric := &dto.Metric{}
	require.NoError(t, counter.Write(metric))
	return metric.GetCounter().GetValue()
}

func getGaugeValue(t *testing.T, gauge prometheus.Gauge) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, gauge.Write(metric))
	return metric.GetGauge().GetValue()
}

func getHistogramSum(t *testing.T, vec *prometheus.HistogramVec, labels ...string) float64 {
	t.Helper()
	observer, err := vec.GetMetricWithLabelValues(labels...)
	require.NoError(t, err)

	histogram, ok := observer.(prometheus.Histogram)
	require.True(t, ok)

	metric := &dto.Metric{}
	require.NoError(t, histogram.Write(metric))
	return metric.GetHistogram().GetSampleSum()
}
