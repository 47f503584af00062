package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/Ecaloota/open-csip-aus-listing-api/internal/telemetry"
)

// matchingMetric returns the first series of c whose labels include labels, or nil.
func matchingMetric(c prometheus.Collector, labels prometheus.Labels) *dto.Metric {
	ch := make(chan prometheus.Metric, 64)
	c.Collect(ch)
	close(ch)
	for m := range ch {
		var dm dto.Metric
		if err := m.Write(&dm); err != nil {
			continue
		}
		matched := 0
		for _, lp := range dm.GetLabel() {
			if want, ok := labels[lp.GetName()]; ok && want == lp.GetValue() {
				matched++
			}
		}
		if matched == len(labels) {
			return &dm
		}
	}
	return nil
}

func counterFor(cv *prometheus.CounterVec, labels prometheus.Labels) float64 {
	if m := matchingMetric(cv, labels); m != nil {
		return m.GetCounter().GetValue()
	}
	return 0
}

func histogramCountFor(hv *prometheus.HistogramVec, labels prometheus.Labels) uint64 {
	if m := matchingMetric(hv, labels); m != nil {
		return m.GetHistogram().GetSampleCount()
	}
	return 0
}

// ---------------------------------------------------------------------------
// MetricsMiddleware
// ---------------------------------------------------------------------------

func TestMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	r := gin.New()
	r.Use(MetricsMiddleware())
	r.GET("/admin/listings/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	labels := prometheus.Labels{"method": "GET", "path": "/admin/listings/:id", "status": "404"}
	before := counterFor(telemetry.HTTPRequestsTotal, labels)
	beforeHist := histogramCountFor(telemetry.HTTPRequestDuration, prometheus.Labels{"method": "GET", "path": "/admin/listings/:id"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/listings/42", nil))

	if got := counterFor(telemetry.HTTPRequestsTotal, labels); got != before+1 {
		t.Errorf("http_requests_total = %v, want %v", got, before+1)
	}
	afterHist := histogramCountFor(telemetry.HTTPRequestDuration, prometheus.Labels{"method": "GET", "path": "/admin/listings/:id"})
	if afterHist != beforeHist+1 {
		t.Errorf("http_request_duration_seconds count = %d, want %d", afterHist, beforeHist+1)
	}
	if m := matchingMetric(telemetry.HTTPRequestsTotal, prometheus.Labels{"path": "/admin/listings/42"}); m != nil {
		t.Error("raw path leaked into the path label")
	}
}

func TestMetricsMiddleware_NoRoute(t *testing.T) {
	r := gin.New()
	r.Use(MetricsMiddleware())

	labels := prometheus.Labels{"method": "GET", "path": noRoute, "status": "404"}
	before := counterFor(telemetry.HTTPRequestsTotal, labels)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/does/not/exist", nil))

	if got := counterFor(telemetry.HTTPRequestsTotal, labels); got != before+1 {
		t.Errorf("http_requests_total{path=%q} = %v, want %v", noRoute, got, before+1)
	}
}
