package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.Transition("advance_turn", "applied")
	m.Transition("advance_turn", "applied")
	m.Compensation("create turn", "ok")
	m.Scored("fallback", 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("advance_turn", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compensations.WithLabelValues("create turn", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scoring.WithLabelValues("fallback")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Transition("start_game", "applied")
	m.Scored("scored", time.Second)
	m.ClientConnected()
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.Request("/api/rooms", http.StatusCreated)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "hot_seat_http_requests_total"))
}
