package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// UpstreamStep is one scripted upstream response.
type UpstreamStep struct {
	Status  int
	Body    string
	Latency time.Duration // extra delay before answering this step
}

// UpstreamServer is a scripted httptest server for retrier, breaker
// and resolver tests. Each request consumes the next step; when the
// script runs out the last step repeats, so a permanently failing
// upstream is a one-step script.
type UpstreamServer struct {
	srv *httptest.Server

	mu      sync.Mutex
	steps   []UpstreamStep
	pos     int
	hits    int
	latency time.Duration // applied to every request
}

// NewUpstreamServer starts the server with the given script. Without
// steps every request answers 200 with an empty JSON object.
func NewUpstreamServer(steps ...UpstreamStep) *UpstreamServer {
	u := &UpstreamServer{steps: steps}
	u.srv = httptest.NewServer(http.HandlerFunc(u.handle))
	return u
}

func (u *UpstreamServer) handle(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.hits++
	base := u.latency
	step := UpstreamStep{Status: http.StatusOK, Body: "{}"}
	if len(u.steps) > 0 {
		if u.pos >= len(u.steps) {
			step = u.steps[len(u.steps)-1]
		} else {
			step = u.steps[u.pos]
			u.pos++
		}
	}
	u.mu.Unlock()

	if d := base + step.Latency; d > 0 {
		time.Sleep(d)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(step.Status)
	if step.Body != "" {
		w.Write([]byte(step.Body))
	}
}

// URL returns the server's base URL.
func (u *UpstreamServer) URL() string {
	return u.srv.URL
}

// Hits returns how many requests the server has answered.
func (u *UpstreamServer) Hits() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.hits
}

// SetLatency delays every following request by d, on top of per-step
// latency. Used to trip attempt timeouts.
func (u *UpstreamServer) SetLatency(d time.Duration) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.latency = d
}

// Append extends the script while the server is running.
func (u *UpstreamServer) Append(steps ...UpstreamStep) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.steps = append(u.steps, steps...)
}

// Reset rewinds the script and zeroes the counter.
func (u *UpstreamServer) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.pos = 0
	u.hits = 0
}

// Close shuts the server down.
func (u *UpstreamServer) Close() {
	u.srv.Close()
}
