// Package httpclient is a resilient HTTP client: per-request options,
// replayable bodies, and retry plus circuit breaker layered around every
// call. EntityResolver builds the full cross-service resolution path on
// top of it, backed by the fallback cache.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/KOMKZ/go-aegis-framework/retry"
)

// Client wraps http.Client with option merging, retries and breaking.
type Client struct {
	httpClient *http.Client
	config     *config
}

// NewClient builds a client from the given options.
func NewClient(opts ...Option) *Client {
	cfg := newConfig()
	applyOptions(cfg, opts)

	if cfg.transport == nil {
		cfg.transport = http.DefaultTransport.(*http.Transport).Clone()
	}

	httpClient := &http.Client{
		Timeout:   cfg.timeout,
		Transport: cfg.transport,
		Jar:       cfg.cookieJar,
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
	}
}

// Do executes the request with the merged client and request options,
// layering retry around the breaker-protected call.
func (c *Client) Do(ctx context.Context, req *Request, opts ...Option) (*Response, error) {
	reqCfg := newConfig()
	applyOptions(reqCfg, opts)
	finalCfg := c.config.merge(reqCfg)

	if ctx == nil {
		ctx = context.Background()
	}
	if finalCfg.ctx != nil {
		ctx = finalCfg.ctx
	}

	// Join base URL for relative request URLs.
	fullURL := req.URL
	if finalCfg.baseURL != "" && !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
		fullURL = strings.TrimRight(finalCfg.baseURL, "/") + "/" + strings.TrimLeft(req.URL, "/")
	}
	req.URL = fullURL

	for k, vs := range finalCfg.queries {
		for _, v := range vs {
			req.Query.Add(k, v)
		}
	}

	// Request headers win over configured ones.
	for k, v := range finalCfg.headers {
		if _, exists := req.Headers[k]; !exists {
			req.Headers[k] = v
		}
	}

	var resp *Response
	var err error
	startTime := time.Now()
	attempts := 1

	useBreaker := finalCfg.breakerManager != nil &&
		!finalCfg.breakerDisabled &&
		finalCfg.breakerManager.IsEnabled()

	if finalCfg.retryEnabled && len(finalCfg.retryOpts) > 0 {
		attempts = 0
		err = retry.Do(ctx, func() error {
			attempts++
			if useBreaker {
				resp, err = c.executeWithBreaker(ctx, req, finalCfg)
			} else {
				resp, err = c.doRequest(ctx, req, finalCfg)
			}

			if err != nil {
				return err
			}

			// Surface retryable statuses to the retry conditions.
			if resp.IsServerError() || resp.StatusCode == http.StatusTooManyRequests {
				return &StatusError{Code: resp.StatusCode, Status: resp.Status}
			}

			return nil
		}, finalCfg.retryOpts...)
	} else {
		if useBreaker {
			resp, err = c.executeWithBreaker(ctx, req, finalCfg)
		} else {
			resp, err = c.doRequest(ctx, req, finalCfg)
		}
	}

	if err != nil {
		return nil, err
	}

	resp.Duration = time.Since(startTime)
	resp.Attempts = attempts

	if finalCfg.afterResponse != nil {
		if err := finalCfg.afterResponse(resp); err != nil {
			return resp, err
		}
	}

	return resp, nil
}

// doRequest performs a single HTTP round trip.
func (c *Client) doRequest(ctx context.Context, req *Request, cfg *config) (*Response, error) {
	httpReq, err := req.buildHTTPRequest()
	if err != nil {
		return nil, fmt.Errorf("build http request failed: %w", err)
	}

	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}
	httpReq = httpReq.WithContext(ctx)

	if cfg.beforeRequest != nil {
		if err := cfg.beforeRequest(httpReq); err != nil {
			return nil, fmt.Errorf("before request hook failed: %w", err)
		}
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}

	resp, err := newResponse(httpResp, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("build response failed: %w", err)
	}

	return resp, nil
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, url string, opts ...Option) (*Response, error) {
	req := NewGetRequest(url)
	return c.Do(ctx, req, opts...)
}

// Post sends a POST request. The body comes from WithBody.
func (c *Client) Post(ctx context.Context, url string, opts ...Option) (*Response, error) {
	req := NewPostRequest(url)

	reqCfg := newConfig()
	applyOptions(reqCfg, opts)

	if reqCfg.body != nil {
		req.WithBody(reqCfg.body)
	}

	return c.Do(ctx, req, opts...)
}

// Put sends a PUT request. The body comes from WithBody.
func (c *Client) Put(ctx context.Context, url string, opts ...Option) (*Response, error) {
	req := NewPutRequest(url)

	reqCfg := newConfig()
	applyOptions(reqCfg, opts)

	if reqCfg.body != nil {
		req.WithBody(reqCfg.body)
	}

	return c.Do(ctx, req, opts...)
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, url string, opts ...Option) (*Response, error) {
	req := NewDeleteRequest(url)
	return c.Do(ctx, req, opts...)
}

// ============================================================
// Generic helpers (auto deserialization)
// ============================================================

// DoWithData executes the request and unmarshals a 2xx body into T.
func DoWithData[T any](client *Client, ctx context.Context, req *Request, opts ...Option) (*T, error) {
	resp, err := client.Do(ctx, req, opts...)
	if err != nil {
		return nil, err
	}
	defer resp.Close()

	if !resp.IsSuccess() {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	var result T
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response failed: %w", err)
	}

	return &result, nil
}

// Get is the generic GET helper.
func Get[T any](client *Client, ctx context.Context, url string, opts ...Option) (*T, error) {
	req := NewGetRequest(url)
	return DoWithData[T](client, ctx, req, opts...)
}

// Post is the generic POST helper, marshaling data as JSON.
func Post[T any](client *Client, ctx context.Context, url string, data interface{}, opts ...Option) (*T, error) {
	req := NewPostRequest(url)

	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal request data failed: %w", err)
		}
		req.WithBody(bytes.NewReader(jsonData))
		req.WithHeader("Content-Type", "application/json")
	}

	return DoWithData[T](client, ctx, req, opts...)
}

// Put is the generic PUT helper, marshaling data as JSON.
func Put[T any](client *Client, ctx context.Context, url string, data interface{}, opts ...Option) (*T, error) {
	req := NewPutRequest(url)

	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal request data failed: %w", err)
		}
		req.WithBody(bytes.NewReader(jsonData))
		req.WithHeader("Content-Type", "application/json")
	}

	return DoWithData[T](client, ctx, req, opts...)
}
