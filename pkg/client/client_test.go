package client

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetWorkerPort(t *testing.T) {
	t.Setenv("MEMKEEP_WORKER_PORT", "")
	assert.Equal(t, DefaultWorkerPort, GetWorkerPort())

	t.Setenv("MEMKEEP_WORKER_PORT", "12345")
	assert.Equal(t, 12345, GetWorkerPort())

	t.Setenv("MEMKEEP_WORKER_PORT", "not-a-number")
	assert.Equal(t, DefaultWorkerPort, GetWorkerPort())

	t.Setenv("MEMKEEP_WORKER_PORT", "70000")
	assert.Equal(t, DefaultWorkerPort, GetWorkerPort())
}

// serverPort extracts the port of an httptest server bound to 127.0.0.1.
func serverPort(t *testing.T, server *httptest.Server) int {
	t.Helper()

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return port
}

func TestIsWorkerRunning(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	assert.True(t, IsWorkerRunning(serverPort(t, server)))
	assert.False(t, IsWorkerRunning(1)) // nothing listens there
}

func TestIsPortInUse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	assert.True(t, IsPortInUse(serverPort(t, server)))
	assert.False(t, IsPortInUse(1))
}

func TestPOST(t *testing.T) {
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/observation", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		json.NewEncoder(w).Encode(map[string]string{"status": "queued"})
	}))
	defer server.Close()

	body, err := POST(serverPort(t, server), "/observation", map[string]string{"claudeSessionId": "abc"})
	require.NoError(t, err)
	assert.Contains(t, string(body), "queued")
	assert.Equal(t, "abc", received["claudeSessionId"])
}

func TestPOSTNon2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "not found"})
	}))
	defer server.Close()

	_, err := POST(serverPort(t, server), "/summary", map[string]string{})
	assert.Error(t, err)
}

func TestGET(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"results": []string{}})
	}))
	defer server.Close()

	body, err := GET(serverPort(t, server), "/search?query=x&type=observations")
	require.NoError(t, err)
	assert.Contains(t, string(body), "results")
}
