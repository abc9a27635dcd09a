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

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.RecordCandidate(18, "unavailable")
	c.RecordAcquisition("new")
	c.RecordBytes("fmi", 10)
	c.SetLastRun(time.Now())
	c.RecordCycleFailure("load")
	c.RecordRedraw(2, 1, time.Millisecond)
	c.CycleTimer().ObserveDuration()
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector("forecast")
	b := NewCollector("forecast")

	a.RecordCandidate(12, "ok")
	a.RecordCandidate(12, "ok")
	a.RecordBytes("ecmwf", 2048)

	assert.Equal(t, 2.0, testutil.ToFloat64(a.CandidateAttempts.WithLabelValues("12", "ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.CandidateAttempts.WithLabelValues("12", "ok")))
	assert.Equal(t, 2048.0, testutil.ToFloat64(a.BytesDownloaded.WithLabelValues("ecmwf")))
}

func TestRouterServesMetrics(t *testing.T) {
	c := NewCollector("forecast")
	c.RecordAcquisition("new")

	router := NewRouter(c)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `forecast_acquisitions_total{outcome="new"} 1`))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "ok", rec.Body.String())
}
