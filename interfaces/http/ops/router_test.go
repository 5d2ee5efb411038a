package ops

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainservices "github.com/santiagotion/sentinel-sub001/domain/services"
	"github.com/santiagotion/sentinel-sub001/pkg/observability"
)

func serve(t *testing.T, handler http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	router := NewRouter(nil, nil, nil, nil).Setup()

	rr := serve(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rr.Body.String())
}

func TestReadinessAndStatus(t *testing.T) {
	mounted := false
	status := func() (Status, bool) {
		if !mounted {
			return Status{}, false
		}
		return Status{HandleID: "h-1", State: domainservices.StateSettled, Alpha: 0.0009, Nodes: 8, Edges: 9, DroppedEdges: 1}, true
	}
	router := NewRouter(nil, status, nil, nil).Setup()

	assert.Equal(t, http.StatusServiceUnavailable, serve(t, router, http.MethodGet, "/ready", nil).Code)
	assert.Equal(t, http.StatusNotFound, serve(t, router, http.MethodGet, "/status", nil).Code)

	mounted = true
	assert.Equal(t, http.StatusOK, serve(t, router, http.MethodGet, "/ready", nil).Code)

	rr := serve(t, router, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var got Status
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "h-1", got.HandleID)
	assert.Equal(t, domainservices.StateSettled, got.State)
	assert.Equal(t, 1, got.DroppedEdges)
}

func TestMetricsEndpoint(t *testing.T) {
	collector := observability.NewCollector("sentinel")
	collector.ObserveTick(time.Millisecond, 0, false)
	router := NewRouter(collector, nil, nil, nil).Setup()

	rr := serve(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "sentinel_simulation_ticks_total 1"))
}

func TestMetricsDisabled(t *testing.T) {
	router := NewRouter(nil, nil, nil, nil).Setup()
	assert.Equal(t, http.StatusNotFound, serve(t, router, http.MethodGet, "/metrics", nil).Code)
}

func TestCORS(t *testing.T) {
	router := NewRouter(nil, nil, []string{"http://localhost:3000"}, nil).Setup()

	rr := serve(t, router, http.MethodGet, "/health", map[string]string{"Origin": "http://localhost:3000"})
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))

	rr = serve(t, router, http.MethodGet, "/health", map[string]string{"Origin": "http://evil.example"})
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}
