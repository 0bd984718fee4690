package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/example/marketplace-orders/internal/metrics"
)

func TestInstrument_RecordsStatusAndLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	ok := Instrument(m, "get_order")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	missing := Instrument(m, "get_order")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))

	ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/1", nil))
	ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/2", nil))
	missing.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/3", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("get_order", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("get_order", "404")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.LatencyMS))
}

func TestInstrument_ImplicitOK(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	h := Instrument(m, "health")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("health", "200")))
}
