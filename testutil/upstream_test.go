package testutil

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestUpstreamServer_Script(t *testing.T) {
	ts := NewUpstreamServer(
		UpstreamStep{Status: 503, Body: `{"error":"unavailable"}`},
		UpstreamStep{Status: 200, Body: `{"id":"u1"}`},
	)
	defer ts.Close()

	status, body := get(t, ts.URL())
	assert.Equal(t, 503, status)
	assert.Equal(t, `{"error":"unavailable"}`, body)

	status, body = get(t, ts.URL())
	assert.Equal(t, 200, status)
	assert.Equal(t, `{"id":"u1"}`, body)

	// the last step repeats once the script runs out
	status, _ = get(t, ts.URL())
	assert.Equal(t, 200, status)

	assert.Equal(t, 3, ts.Hits())
}

func TestUpstreamServer_EmptyScript(t *testing.T) {
	ts := NewUpstreamServer()
	defer ts.Close()

	status, body := get(t, ts.URL())
	assert.Equal(t, 200, status)
	assert.Equal(t, "{}", body)
}

func TestUpstreamServer_Latency(t *testing.T) {
	ts := NewUpstreamServer(UpstreamStep{Status: 200, Body: "{}"})
	defer ts.Close()
	ts.SetLatency(50 * time.Millisecond)

	start := time.Now()
	status, _ := get(t, ts.URL())
	elapsed := time.Since(start)

	assert.Equal(t, 200, status)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
}

func TestUpstreamServer_Reset(t *testing.T) {
	ts := NewUpstreamServer(
		UpstreamStep{Status: 500, Body: "{}"},
		UpstreamStep{Status: 200, Body: "{}"},
	)
	defer ts.Close()

	status, _ := get(t, ts.URL())
	assert.Equal(t, 500, status)

	ts.Reset()

	status, _ = get(t, ts.URL())
	assert.Equal(t, 500, status)
	assert.Equal(t, 1, ts.Hits())
}

func TestUpstreamServer_Append(t *testing.T) {
	ts := NewUpstreamServer(UpstreamStep{Status: 500, Body: "{}"})
	defer ts.Close()

	status, _ := get(t, ts.URL())
	assert.Equal(t, 500, status)

	ts.Append(UpstreamStep{Status: 200, Body: `{"ok":true}`})

	status, body := get(t, ts.URL())
	assert.Equal(t, 200, status)
	assert.Equal(t, `{"ok":true}`, body)
}
