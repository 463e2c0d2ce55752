package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViewerServer(t *testing.T, healthy bool) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var operations atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/health":
			if !healthy {
				http.Error(w, "starting", http.StatusServiceUnavailable)
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"status": "ok"})
		case "/api/v1/operations":
			operations.Add(1)
			assert.Equal(t, "3", r.URL.Query().Get("limit"))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"operations": []map[string]interface{}{
					{"id": "op-1", "command": "docker compose", "args": []string{"up", "-d"}, "exit_code": 0},
				},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server, &operations
}

func TestHistoryCommand_Remote(t *testing.T) {
	server, operations := newViewerServer(t, true)

	err := execute(t, "--history-db", "", "history", "--remote", "--server", server.URL, "-l", "3")
	require.NoError(t, err)
	assert.Equal(t, int32(1), operations.Load())
}

func TestHistoryCommand_RemoteUnhealthy(t *testing.T) {
	server, operations := newViewerServer(t, false)

	err := execute(t, "--history-db", "", "history", "--remote", "--server", server.URL, "-l", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not healthy")
	assert.Zero(t, operations.Load())
}

func TestCamerasCommand_UnhealthyViewer(t *testing.T) {
	server, _ := newViewerServer(t, false)

	err := execute(t, "--history-db", "", "cameras", "--server", server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 503")
}
