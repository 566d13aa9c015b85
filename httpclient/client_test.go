package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KOMKZ/go-aegis-framework/retry"
)

// echoServer answers with status and records what the upstream saw.
func echoServer(t *testing.T, status int, inspect func(r *http.Request)) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			inspect(r)
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestNewClient(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		c := NewClient()
		require.NotNil(t, c)
		assert.NotNil(t, c.httpClient)
		assert.NotNil(t, c.config)
	})

	t.Run("constructor options land in the config", func(t *testing.T) {
		c := NewClient(
			WithBaseURL("https://orders.internal"),
			WithTimeout(5*time.Second),
			WithHeader("User-Agent", "aegis/1.0"),
		)
		assert.Equal(t, "https://orders.internal", c.config.baseURL)
		assert.Equal(t, 5*time.Second, c.config.timeout)
		assert.Equal(t, "aegis/1.0", c.config.headers["User-Agent"])
	})
}

func TestClientDo(t *testing.T) {
	t.Run("success carries status and attempt count", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"ok":true}`))
		}))
		defer ts.Close()

		resp, err := NewClient().Do(context.Background(), NewGetRequest(ts.URL))
		require.NoError(t, err)
		defer resp.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, resp.IsSuccess())
		assert.Equal(t, 1, resp.Attempts)
	})

	t.Run("relative paths join the base URL", func(t *testing.T) {
		var gotPath string
		ts := echoServer(t, http.StatusOK, func(r *http.Request) { gotPath = r.URL.Path })

		resp, err := NewClient(WithBaseURL(ts.URL)).
			Do(context.Background(), NewGetRequest("/api/orders"))
		require.NoError(t, err)
		defer resp.Close()
		assert.Equal(t, "/api/orders", gotPath)
	})

	t.Run("per-call query parameters reach the upstream", func(t *testing.T) {
		var gotQuery map[string][]string
		ts := echoServer(t, http.StatusOK, func(r *http.Request) { gotQuery = r.URL.Query() })

		resp, err := NewClient().Do(context.Background(), NewGetRequest(ts.URL),
			WithQuery("page", "1"),
			WithQuery("limit", "20"),
		)
		require.NoError(t, err)
		defer resp.Close()
		assert.Equal(t, []string{"1"}, gotQuery["page"])
		assert.Equal(t, []string{"20"}, gotQuery["limit"])
	})

	t.Run("request and per-call headers stack", func(t *testing.T) {
		var gotHeader http.Header
		ts := echoServer(t, http.StatusOK, func(r *http.Request) { gotHeader = r.Header.Clone() })

		req := NewGetRequest(ts.URL).WithHeader("Authorization", "Bearer token")
		resp, err := NewClient().Do(context.Background(), req,
			WithHeader("X-Request-Source", "resolver"))
		require.NoError(t, err)
		defer resp.Close()

		assert.Equal(t, "Bearer token", gotHeader.Get("Authorization"))
		assert.Equal(t, "resolver", gotHeader.Get("X-Request-Source"))
	})

	t.Run("5xx is a response, not an error", func(t *testing.T) {
		ts := echoServer(t, http.StatusInternalServerError, nil)

		resp, err := NewClient().Do(context.Background(), NewGetRequest(ts.URL))
		require.NoError(t, err)
		defer resp.Close()
		assert.True(t, resp.IsServerError())
	})

	t.Run("204 leaves the body empty", func(t *testing.T) {
		ts := echoServer(t, http.StatusNoContent, nil)

		resp, err := NewClient().Do(context.Background(), NewGetRequest(ts.URL))
		require.NoError(t, err)
		defer resp.Close()
		assert.Empty(t, resp.Body)
	})
}

func TestClientVerbShortcuts(t *testing.T) {
	t.Run("Get", func(t *testing.T) {
		var gotMethod string
		ts := echoServer(t, http.StatusOK, func(r *http.Request) { gotMethod = r.Method })

		resp, err := NewClient().Get(context.Background(), ts.URL)
		require.NoError(t, err)
		defer resp.Close()
		assert.Equal(t, http.MethodGet, gotMethod)
		assert.True(t, resp.IsSuccess())
	})

	t.Run("Delete", func(t *testing.T) {
		var gotMethod string
		ts := echoServer(t, http.StatusNoContent, func(r *http.Request) { gotMethod = r.Method })

		resp, err := NewClient().Delete(context.Background(), ts.URL)
		require.NoError(t, err)
		defer resp.Close()
		assert.Equal(t, http.MethodDelete, gotMethod)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})
}

func TestClientHooksOnSuccess(t *testing.T) {
	var sawInjected bool
	ts := echoServer(t, http.StatusOK, func(r *http.Request) {
		sawInjected = r.Header.Get("X-Injected") == "true"
	})

	afterCalled := false
	resp, err := NewClient().Do(context.Background(), NewGetRequest(ts.URL),
		WithBeforeRequest(func(r *http.Request) error {
			r.Header.Set("X-Injected", "true")
			return nil
		}),
		WithAfterResponse(func(r *Response) error {
			afterCalled = true
			return nil
		}),
	)
	require.NoError(t, err)
	defer resp.Close()

	assert.True(t, sawInjected, "before hook should run ahead of the request")
	assert.True(t, afterCalled, "after hook should see the response")
}

func TestClientDeadlines(t *testing.T) {
	slow := func() *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}))
	}

	t.Run("client timeout cuts a slow upstream", func(t *testing.T) {
		ts := slow()
		defer ts.Close()

		_, err := NewClient(WithTimeout(50 * time.Millisecond)).
			Do(context.Background(), NewGetRequest(ts.URL))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "context deadline exceeded")
	})

	t.Run("canceled context aborts immediately", func(t *testing.T) {
		ts := slow()
		defer ts.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewClient().Do(ctx, NewGetRequest(ts.URL))
		assert.Error(t, err)
	})

	t.Run("nil context falls back to background", func(t *testing.T) {
		ts := echoServer(t, http.StatusOK, nil)

		resp, err := NewClient().Do(nil, NewGetRequest(ts.URL))
		require.NoError(t, err)
		defer resp.Close()
	})
}

func TestClientRetryLayering(t *testing.T) {
	t.Run("client-level retry applies to plain calls", func(t *testing.T) {
		attempts := 0
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts < 2 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer ts.Close()

		client := NewClient(WithRetry(
			retry.MaxAttempts(3),
			retry.Backoff(retry.ConstantBackoff(5*time.Millisecond)),
		))
		resp, err := client.Get(context.Background(), ts.URL)
		require.NoError(t, err)
		defer resp.Close()
		assert.Equal(t, 2, attempts)
		assert.Equal(t, 2, resp.Attempts)
	})

	t.Run("per-call disable wins over the client config", func(t *testing.T) {
		attempts := 0
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer ts.Close()

		client := NewClient(WithRetry(retry.MaxAttempts(3)))
		resp, err := client.Do(context.Background(), NewGetRequest(ts.URL), DisableRetry())
		require.NoError(t, err)
		defer resp.Close()
		assert.Equal(t, 1, attempts)
	})

	t.Run("exhausted retries keep the final status inspectable", func(t *testing.T) {
		ts := echoServer(t, http.StatusServiceUnavailable, nil)

		_, err := NewClient().Do(context.Background(), NewGetRequest(ts.URL),
			WithRetry(
				retry.MaxAttempts(2),
				retry.Condition(retry.RetryOnHTTPStatus(http.StatusServiceUnavailable)),
				retry.Backoff(retry.ConstantBackoff(5*time.Millisecond)),
			))
		require.Error(t, err)

		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode())
		assert.Equal(t, 2, retry.GetAttempts(err))
	})
}

func TestGetGeneric(t *testing.T) {
	type account struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(account{Name: "ada", Email: "ada@orders.internal"})
	}))
	defer ts.Close()

	got, err := Get[account](NewClient(), context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "ada", got.Name)
	assert.Equal(t, "ada@orders.internal", got.Email)
}
