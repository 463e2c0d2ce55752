package viewer

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/neumerance/kerberos-swarm/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAgent struct {
	server *httptest.Server
	hits   atomic.Int32
}

func newFakeAgent(t *testing.T, status int) *fakeAgent {
	t.Helper()
	a := &fakeAgent{}
	a.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.hits.Add(1)
		if r.URL.Path != "/api/health" {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(a.server.Close)
	return a
}

func (a *fakeAgent) camera(t *testing.T, name string) models.Camera {
	t.Helper()
	return models.Camera{Name: name, WebPort: serverPort(t, a.server.URL)}
}

func serverPort(t *testing.T, rawURL string) int {
	t.Helper()
	_, portStr, err := net.SplitHostPort(rawURL[len("http://"):])
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return port
}

// closedPort returns a port that nothing listens on.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func newTestChecker(cameras []models.Camera, ttl time.Duration, metrics *Metrics) *StatusChecker {
	return NewStatusChecker(cameras, "127.0.0.1", ttl, 2*time.Second, metrics, zerolog.Nop())
}

func TestStatusChecker_Mapping(t *testing.T) {
	live := newFakeAgent(t, http.StatusOK)
	connecting := newFakeAgent(t, http.StatusNotFound)
	broken := newFakeAgent(t, http.StatusInternalServerError)

	cameras := []models.Camera{
		live.camera(t, "camera-live"),
		connecting.camera(t, "camera-connecting"),
		broken.camera(t, "camera-broken"),
		{Name: "camera-offline", WebPort: closedPort(t)},
	}
	checker := newTestChecker(cameras, time.Minute, nil)

	statuses := checker.All()
	require.Len(t, statuses, 4)

	assert.Equal(t, models.AgentLive, statuses[0].Status)
	assert.NotNil(t, statuses[0].LastSeen)
	assert.Empty(t, statuses[0].Error)

	assert.Equal(t, models.AgentConnecting, statuses[1].Status)
	assert.NotNil(t, statuses[1].LastSeen)

	assert.Equal(t, models.AgentError, statuses[2].Status)
	assert.Equal(t, "HTTP 500", statuses[2].Error)
	assert.Nil(t, statuses[2].LastSeen)

	assert.Equal(t, models.AgentOffline, statuses[3].Status)
	assert.NotEmpty(t, statuses[3].Error)
	assert.Nil(t, statuses[3].LastSeen)
}

func TestStatusChecker_Caches(t *testing.T) {
	agent := newFakeAgent(t, http.StatusOK)
	checker := newTestChecker([]models.Camera{agent.camera(t, "camera-a")}, time.Minute, nil)

	_, ok := checker.Status("camera-a")
	require.True(t, ok)
	_, ok = checker.Status("camera-a")
	require.True(t, ok)

	assert.Equal(t, int32(1), agent.hits.Load())
}

func TestStatusChecker_Expires(t *testing.T) {
	agent := newFakeAgent(t, http.StatusOK)
	checker := newTestChecker([]models.Camera{agent.camera(t, "camera-a")}, 50*time.Millisecond, nil)

	_, ok := checker.Status("camera-a")
	require.True(t, ok)
	time.Sleep(100 * time.Millisecond)
	_, ok = checker.Status("camera-a")
	require.True(t, ok)

	assert.Equal(t, int32(2), agent.hits.Load())
}

func TestStatusChecker_UnknownCamera(t *testing.T) {
	checker := newTestChecker(nil, time.Minute, nil)

	_, ok := checker.Status("camera-missing")
	assert.False(t, ok)
}

func TestStatusChecker_RefreshKeepsLastSeen(t *testing.T) {
	agent := newFakeAgent(t, http.StatusOK)
	cam := agent.camera(t, "camera-a")
	checker := newTestChecker([]models.Camera{cam}, time.Minute, nil)

	first := checker.Refresh(context.Background())
	require.Len(t, first, 1)
	require.NotNil(t, first[0].LastSeen)

	agent.server.Close()

	second := checker.Refresh(context.Background())
	require.Len(t, second, 1)
	assert.Equal(t, models.AgentOffline, second[0].Status)
	require.NotNil(t, second[0].LastSeen)
	assert.True(t, first[0].LastSeen.Equal(*second[0].LastSeen))

	cached, ok := checker.Status("camera-a")
	require.True(t, ok)
	assert.Equal(t, models.AgentOffline, cached.Status)
}

func TestStatusChecker_Metrics(t *testing.T) {
	live := newFakeAgent(t, http.StatusOK)
	broken := newFakeAgent(t, http.StatusBadGateway)

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	checker := newTestChecker([]models.Camera{
		live.camera(t, "camera-live"),
		broken.camera(t, "camera-broken"),
	}, time.Minute, metrics)

	checker.Refresh(context.Background())

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cameraUp.WithLabelValues("camera-live")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.cameraUp.WithLabelValues("camera-broken")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.probes.WithLabelValues("live")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.probes.WithLabelValues("error")))
}

func TestStatusChecker_RefreshBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	port := serverPort(t, server.URL)
	cameras := make([]models.Camera, 6)
	for i := range cameras {
		cameras[i] = models.Camera{Name: "camera-" + strconv.Itoa(i), WebPort: port}
	}
	checker := newTestChecker(cameras, time.Minute, nil)
	checker.MaxConcurrent = 2

	statuses := checker.Refresh(context.Background())
	require.Len(t, statuses, 6)
	for _, status := range statuses {
		assert.Equal(t, models.AgentLive, status.Status, status.Name)
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Positive(t, peak.Load())
}

func TestStatusChecker_RefreshNonPositiveLimit(t *testing.T) {
	agent := newFakeAgent(t, http.StatusOK)
	checker := newTestChecker([]models.Camera{agent.camera(t, "camera-a")}, time.Minute, nil)
	checker.MaxConcurrent = 0

	statuses := checker.Refresh(context.Background())
	require.Len(t, statuses, 1)
	assert.Equal(t, models.AgentLive, statuses[0].Status)
}
