package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordBorrowed()
	c.RecordBorrowed()
	c.RecordReturned()
	c.RecordRejected("borrow", "conflict")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.borrowed))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.returned))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rejected.WithLabelValues("borrow", "conflict")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.rejected.WithLabelValues("return", "not_found")))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ObserveHTTP(http.MethodPost, http.StatusConflict, 5*time.Millisecond)

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body, _ := io.ReadAll(w.Body)
	assert.Contains(t, string(body), `library_http_requests_total{method="POST",status_code="409"} 1`)
	assert.Contains(t, string(body), "library_loans_borrowed_total 0")
}
