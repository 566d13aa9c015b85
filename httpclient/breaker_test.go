package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/KOMKZ/go-aegis-framework/breaker"
	"github.com/KOMKZ/go-aegis-framework/retry"
)

// ============================================================
// Mock BreakerManager
// ============================================================

type mockBreakerManager struct {
	enabled      bool
	fireFunc     func(ctx context.Context, req *breaker.Request) *breaker.Response
	getStateFunc func(resource string) breaker.State
}

// Fire defaults to a pass-through mirroring the real manager: run the
// call, consult the fallback on failure.
func (m *mockBreakerManager) Fire(ctx context.Context, req *breaker.Request) *breaker.Response {
	if m.fireFunc != nil {
		return m.fireFunc(ctx, req)
	}

	value, err := req.Execute(ctx)
	if err != nil {
		if req.Fallback != nil {
			fbValue, fbErr := req.Fallback(ctx, err)
			if fbErr != nil {
				return &breaker.Response{Error: fbErr}
			}
			return &breaker.Response{Value: fbValue, FromFallback: true}
		}
		return &breaker.Response{Error: err}
	}
	return &breaker.Response{Value: value}
}

func (m *mockBreakerManager) IsEnabled() bool {
	return m.enabled
}

func (m *mockBreakerManager) GetState(resource string) breaker.State {
	if m.getStateFunc != nil {
		return m.getStateFunc(resource)
	}
	return breaker.StateClosed
}

// ============================================================
// Breaker options
// ============================================================

func TestWithBreaker(t *testing.T) {
	manager := &mockBreakerManager{enabled: true}

	client := NewClient(WithBreaker(manager))

	if client.config.breakerManager != manager {
		t.Error("breaker manager not set")
	}
}

func TestWithBreakerResource(t *testing.T) {
	client := NewClient(WithBreakerResource("test-service"))

	if client.config.breakerResource != "test-service" {
		t.Error("breaker resource not set")
	}
}

func TestWithBreakerFallback(t *testing.T) {
	fallback := func(ctx context.Context, err error) (*Response, error) {
		return &Response{StatusCode: 200}, nil
	}

	client := NewClient(WithBreakerFallback(fallback))

	if client.config.breakerFallback == nil {
		t.Error("breaker fallback not set")
	}
}

func TestDisableBreaker(t *testing.T) {
	client := NewClient(DisableBreaker())

	if !client.config.breakerDisabled {
		t.Error("breaker should be disabled")
	}
}

// ============================================================
// Breaker integration
// ============================================================

func TestClient_Do_WithBreaker_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("success"))
	}))
	defer ts.Close()

	fireCalled := false
	manager := &mockBreakerManager{
		enabled: true,
		fireFunc: func(ctx context.Context, req *breaker.Request) *breaker.Response {
			fireCalled = true
			if !strings.Contains(req.Resource, ts.URL) {
				t.Errorf("unexpected resource: %s", req.Resource)
			}
			value, err := req.Execute(ctx)
			return &breaker.Response{Value: value, Error: err}
		},
	}

	client := NewClient(WithBreaker(manager))
	req := NewGetRequest(ts.URL)

	resp, err := client.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("Do() failed: %v", err)
	}
	defer resp.Close()

	if !fireCalled {
		t.Error("breaker Fire not called")
	}

	if resp.StatusCode != 200 {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestClient_Do_WithBreaker_CircuitOpen(t *testing.T) {
	serverHit := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serverHit = true
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	// Open breaker: reject without running Execute.
	manager := &mockBreakerManager{
		enabled: true,
		fireFunc: func(ctx context.Context, req *breaker.Request) *breaker.Response {
			return &breaker.Response{Error: breaker.ErrCircuitOpen}
		},
	}

	client := NewClient(WithBreaker(manager))
	req := NewGetRequest(ts.URL)

	_, err := client.Do(context.Background(), req)
	if err == nil {
		t.Fatal("expected circuit breaker error")
	}

	if !errors.Is(err, breaker.ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got: %v", err)
	}

	if serverHit {
		t.Error("no HTTP call should be made while the circuit is open")
	}
}

func TestClient_Do_WithBreaker_Fallback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	fallbackCalled := false
	fallback := func(ctx context.Context, err error) (*Response, error) {
		fallbackCalled = true
		return &Response{
			StatusCode: 200,
			Body:       []byte("fallback response"),
		}, nil
	}

	// Default mock: failed call consults the fallback.
	manager := &mockBreakerManager{enabled: true}

	client := NewClient(
		WithBreaker(manager),
		WithBreakerFallback(fallback),
	)
	req := NewGetRequest(ts.URL)

	resp, err := client.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("Do() failed: %v", err)
	}
	defer resp.Close()

	if !fallbackCalled {
		t.Error("fallback not called")
	}

	if string(resp.Body) != "fallback response" {
		t.Errorf("expected fallback response, got: %s", string(resp.Body))
	}
}

func TestClient_Do_WithBreaker_CustomResource(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	capturedResource := ""
	manager := &mockBreakerManager{
		enabled: true,
		fireFunc: func(ctx context.Context, req *breaker.Request) *breaker.Response {
			capturedResource = req.Resource
			value, err := req.Execute(ctx)
			return &breaker.Response{Value: value, Error: err}
		},
	}

	client := NewClient(WithBreaker(manager))
	req := NewGetRequest(ts.URL)

	_, err := client.Do(context.Background(), req,
		WithBreakerResource("custom-service"),
	)
	if err != nil {
		t.Fatalf("Do() failed: %v", err)
	}

	if capturedResource != "custom-service" {
		t.Errorf("expected resource 'custom-service', got: %s", capturedResource)
	}
}

func TestClient_Do_BreakerDisabled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	fireCalled := false
	manager := &mockBreakerManager{
		enabled: true,
		fireFunc: func(ctx context.Context, req *breaker.Request) *breaker.Response {
			fireCalled = true
			value, err := req.Execute(ctx)
			return &breaker.Response{Value: value, Error: err}
		},
	}

	client := NewClient(WithBreaker(manager))
	req := NewGetRequest(ts.URL)

	resp, err := client.Do(context.Background(), req, DisableBreaker())
	if err != nil {
		t.Fatalf("Do() failed: %v", err)
	}
	defer resp.Close()

	if fireCalled {
		t.Error("breaker should not be called when disabled")
	}
}

func TestClient_Do_BreakerNotEnabled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	fireCalled := false
	manager := &mockBreakerManager{
		enabled: false,
		fireFunc: func(ctx context.Context, req *breaker.Request) *breaker.Response {
			fireCalled = true
			value, err := req.Execute(ctx)
			return &breaker.Response{Value: value, Error: err}
		},
	}

	client := NewClient(WithBreaker(manager))
	req := NewGetRequest(ts.URL)

	resp, err := client.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("Do() failed: %v", err)
	}
	defer resp.Close()

	if fireCalled {
		t.Error("breaker should not be called when not enabled")
	}
}

func TestClient_Do_WithBreaker_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	var capturedError error
	manager := &mockBreakerManager{
		enabled: true,
		fireFunc: func(ctx context.Context, req *breaker.Request) *breaker.Response {
			value, err := req.Execute(ctx)
			capturedError = err
			return &breaker.Response{Value: value, Error: err}
		},
	}

	client := NewClient(WithBreaker(manager))
	req := NewGetRequest(ts.URL)

	// A 5xx surfaces as an error so the breaker records the failure.
	_, err := client.Do(context.Background(), req)
	if err == nil {
		t.Error("expected error for 5xx response")
	}

	if capturedError == nil {
		t.Fatal("breaker should receive error for 5xx response")
	}

	var statusErr *StatusError
	if !errors.As(capturedError, &statusErr) {
		t.Fatalf("expected StatusError, got: %v", capturedError)
	}
	if statusErr.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", statusErr.Code)
	}
}

func TestClient_Do_WithBreaker_BaseURL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	capturedResource := ""
	manager := &mockBreakerManager{
		enabled: true,
		fireFunc: func(ctx context.Context, req *breaker.Request) *breaker.Response {
			capturedResource = req.Resource
			value, err := req.Execute(ctx)
			return &breaker.Response{Value: value, Error: err}
		},
	}

	client := NewClient(
		WithBaseURL(ts.URL),
		WithBreaker(manager),
	)
	req := NewGetRequest("/api/users")

	_, err := client.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("Do() failed: %v", err)
	}

	if !strings.Contains(capturedResource, ts.URL) {
		t.Errorf("resource should contain base URL, got: %s", capturedResource)
	}
	if !strings.Contains(capturedResource, "/api/users") {
		t.Errorf("resource should contain path, got: %s", capturedResource)
	}
}

// ============================================================
// Breaker + retry layering
// ============================================================

func TestClient_Do_WithBreakerAndRetry(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer ts.Close()

	fireCount := 0
	manager := &mockBreakerManager{
		enabled: true,
		fireFunc: func(ctx context.Context, req *breaker.Request) *breaker.Response {
			fireCount++
			value, err := req.Execute(ctx)
			return &breaker.Response{Value: value, Error: err}
		},
	}

	client := NewClient(WithBreaker(manager))
	req := NewGetRequest(ts.URL)

	resp, err := client.Do(context.Background(), req,
		WithRetry(
			retry.MaxAttempts(3),
			retry.Backoff(retry.ConstantBackoff(10*time.Millisecond)),
		),
	)
	if err != nil {
		t.Fatalf("Do() failed: %v", err)
	}
	defer resp.Close()

	// Retry wraps the breaker: every attempt goes through Fire.
	if attempts != 2 {
		t.Errorf("expected 2 HTTP attempts, got %d", attempts)
	}

	if fireCount != 2 {
		t.Errorf("expected 2 breaker executions, got %d", fireCount)
	}
}

// ============================================================
// Config merge
// ============================================================

func TestConfig_merge_Breaker(t *testing.T) {
	manager1 := &mockBreakerManager{enabled: true}
	manager2 := &mockBreakerManager{enabled: false}

	base := newConfig()
	base.breakerManager = manager1
	base.breakerResource = "base-resource"

	other := newConfig()
	other.breakerManager = manager2
	other.breakerResource = "override-resource"

	merged := base.merge(other)

	if merged.breakerManager != manager2 {
		t.Error("breaker manager should be overridden")
	}

	if merged.breakerResource != "override-resource" {
		t.Error("breaker resource should be overridden")
	}
}

func TestConfig_merge_BreakerFallback(t *testing.T) {
	fallback1 := func(ctx context.Context, err error) (*Response, error) {
		return &Response{StatusCode: 503}, nil
	}
	fallback2 := func(ctx context.Context, err error) (*Response, error) {
		return &Response{StatusCode: 200}, nil
	}

	base := newConfig()
	base.breakerFallback = fallback1

	other := newConfig()
	other.breakerFallback = fallback2

	merged := base.merge(other)

	if merged.breakerFallback == nil {
		t.Error("breaker fallback should be set")
	}

	resp, _ := merged.breakerFallback(context.Background(), errors.New("test"))
	if resp.StatusCode != 200 {
		t.Error("fallback should be overridden")
	}
}

// ============================================================
// Benchmarks
// ============================================================

func BenchmarkClient_Do_WithBreaker(b *testing.B) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	manager := &mockBreakerManager{enabled: true}

	client := NewClient(WithBreaker(manager))
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := NewGetRequest(ts.URL)
		resp, _ := client.Do(ctx, req)
		if resp != nil {
			resp.Close()
		}
	}
}

func BenchmarkClient_Do_WithoutBreaker(b *testing.B) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewClient()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := NewGetRequest(ts.URL)
		resp, _ := client.Do(ctx, req)
		if resp != nil {
			resp.Close()
		}
	}
}
