package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unitutor-api/internal/models"
)

func TestMetricsSnapshotAggregates(t *testing.T) {
	m := NewMetricsService()

	m.ObserveHTTPRequest(http.MethodGet, "/api/rooms", http.StatusOK, 10*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodPost, "/api/meetings", http.StatusConflict, 30*time.Millisecond)
	m.RecordBookingConflict("room", "check")
	m.RecordBookingConflict("consultation", "constraint")
	m.RecordBookingCreated("room", 3)
	m.RecordExport("csv", models.ExportStatusCompleted)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 20.0, snap.AverageRequestDurationMs, 0.001)
	assert.Equal(t, uint64(2), snap.BookingConflicts)
	assert.Zero(t, snap.CacheHitRatio)
	assert.Positive(t, snap.Goroutines)
}

func TestMetricsHandlerExposesCollectors(t *testing.T) {
	m := NewMetricsService()
	m.RecordBookingConflict("room", "constraint")
	m.ObserveHTTPRequest(http.MethodGet, "/api/calendar", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `unitutor_booking_conflicts_total{resource="room",source="constraint"} 1`)
	assert.Contains(t, body, "unitutor_http_requests_total")
}

func TestMetricsNilServiceIsSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
		m.RecordCacheOperation(true, time.Millisecond)
		m.RecordBookingConflict("room", "check")
		m.RecordBookingCreated("room", 1)
		m.RecordExport("pdf", models.ExportStatusFailed)
	})
	assert.Equal(t, models.SystemMetrics{}, m.Snapshot())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
