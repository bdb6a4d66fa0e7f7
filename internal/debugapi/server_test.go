package debugapi_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-logr/logr"
	"github.com/mcastellin/scuttlebutt/internal/debugapi"
	scuttlebutt "github.com/mcastellin/scuttlebutt/pkg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func newTestGossiper(t *testing.T) *scuttlebutt.Gossiper {
	t.Helper()
	g, err := scuttlebutt.NewGossiper("127.0.0.1:0", scuttlebutt.NopObserver{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Shutdown() })
	return g
}

func TestSelfRouteReportsNameAndKeys(t *testing.T) {
	g := newTestGossiper(t)
	g.Set("role", "follower")

	events := debugapi.NewEventHub(logr.Discard())
	srv := debugapi.New("127.0.0.1:0", g, prometheus.NewRegistry(), logr.Discard(), false, events)

	req := httptest.NewRequest(http.MethodGet, "/self", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), g.Name())
	require.Contains(t, rec.Body.String(), "role")
}

func TestUnknownPeerRouteReturnsNotFound(t *testing.T) {
	g := newTestGossiper(t)
	events := debugapi.NewEventHub(logr.Discard())
	srv := debugapi.New("127.0.0.1:0", g, prometheus.NewRegistry(), logr.Discard(), false, events)

	req := httptest.NewRequest(http.MethodGet, "/peers/nope:1", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsRouteIsServedWhenRegistrySet(t *testing.T) {
	g := newTestGossiper(t)
	events := debugapi.NewEventHub(logr.Discard())
	srv := debugapi.New("127.0.0.1:0", g, prometheus.NewRegistry(), logr.Discard(), false, events)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
