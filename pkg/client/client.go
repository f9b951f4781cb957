// Package client locates and talks to a running memkeep worker. The
// hook executables and the CLI use it to find the worker's port and to
// refuse starting a second instance.
package client

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

const (
	// DefaultWorkerPort is used when MEMKEEP_WORKER_PORT is unset.
	DefaultWorkerPort = 37651

	healthTimeout = 2 * time.Second
)

// GetWorkerPort returns the configured worker port, falling back to the
// default on an unset or unparsable MEMKEEP_WORKER_PORT.
func GetWorkerPort() int {
	raw := os.Getenv("MEMKEEP_WORKER_PORT")
	if raw == "" {
		return DefaultWorkerPort
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port < 1 || port > 65535 {
		return DefaultWorkerPort
	}
	return port
}

// IsWorkerRunning probes the worker's health endpoint.
func IsWorkerRunning(port int) bool {
	client := &http.Client{Timeout: healthTimeout}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// IsPortInUse reports whether something is listening on the port, even
// if it is not a memkeep worker.
func IsPortInUse(port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), healthTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// POST sends a JSON body to a worker endpoint and returns the raw
// response body. Non-2xx statuses are returned as errors.
func POST(port int, path string, body interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(
		fmt.Sprintf("http://127.0.0.1:%d%s", port, path),
		"application/json",
		bytes.NewReader(payload),
	)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return data, fmt.Errorf("worker returned %d: %s", resp.StatusCode, data)
	}
	return data, nil
}

// GET fetches a worker endpoint and returns the raw response body.
func GET(port int, path string) ([]byte, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d%s", port, path))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return data, fmt.Errorf("worker returned %d: %s", resp.StatusCode, data)
	}
	return data, nil
}
