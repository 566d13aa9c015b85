package httpclient

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request describes one HTTP request. The body is cached in bodyBytes so
// it can be replayed across retry attempts.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   url.Values
	Body    io.Reader

	bodyBytes []byte
}

// NewRequest builds a request with the given method and URL.
func NewRequest(method, urlStr string) *Request {
	return &Request{
		Method:  method,
		URL:     urlStr,
		Headers: make(map[string]string),
		Query:   make(url.Values),
	}
}

// NewGetRequest builds a GET request.
func NewGetRequest(urlStr string) *Request {
	return NewRequest(http.MethodGet, urlStr)
}

// NewPostRequest builds a POST request.
func NewPostRequest(urlStr string) *Request {
	return NewRequest(http.MethodPost, urlStr)
}

// NewPutRequest builds a PUT request.
func NewPutRequest(urlStr string) *Request {
	return NewRequest(http.MethodPut, urlStr)
}

// NewDeleteRequest builds a DELETE request.
func NewDeleteRequest(urlStr string) *Request {
	return NewRequest(http.MethodDelete, urlStr)
}

// WithHeader sets a header.
func (r *Request) WithHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

// WithQuery sets a query parameter.
func (r *Request) WithQuery(key, value string) *Request {
	r.Query.Set(key, value)
	return r
}

// WithBody sets the body. The reader is drained into the replay cache.
func (r *Request) WithBody(body io.Reader) *Request {
	r.Body = body
	if body != nil {
		if data, err := io.ReadAll(body); err == nil {
			r.bodyBytes = data
			r.Body = bytes.NewReader(data)
		}
	}
	return r
}

// WithJSON marshals data as the JSON body and sets the content type.
func (r *Request) WithJSON(data interface{}) *Request {
	if data == nil {
		return r
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return r
	}

	r.bodyBytes = jsonData
	r.Body = bytes.NewReader(jsonData)
	r.Headers["Content-Type"] = "application/json"

	return r
}

// WithForm encodes data as the form body and sets the content type.
func (r *Request) WithForm(data map[string]string) *Request {
	if data == nil {
		return r
	}

	formData := make(url.Values)
	for k, v := range data {
		formData.Set(k, v)
	}

	formStr := formData.Encode()
	r.bodyBytes = []byte(formStr)
	r.Body = strings.NewReader(formStr)
	r.Headers["Content-Type"] = "application/x-www-form-urlencoded"

	return r
}

// buildHTTPRequest materializes an http.Request. The body is rebuilt from
// the replay cache so each retry attempt sends the full payload.
func (r *Request) buildHTTPRequest() (*http.Request, error) {
	fullURL := r.URL
	if len(r.Query) > 0 {
		if strings.Contains(fullURL, "?") {
			fullURL += "&" + r.Query.Encode()
		} else {
			fullURL += "?" + r.Query.Encode()
		}
	}

	var body io.Reader
	if len(r.bodyBytes) > 0 {
		body = bytes.NewReader(r.bodyBytes)
	} else if r.Body != nil {
		body = r.Body
	}

	req, err := http.NewRequest(r.Method, fullURL, body)
	if err != nil {
		return nil, err
	}

	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

// Clone returns an independent copy sharing only the body cache.
func (r *Request) Clone() *Request {
	clone := &Request{
		Method:    r.Method,
		URL:       r.URL,
		Headers:   make(map[string]string),
		Query:     make(url.Values),
		bodyBytes: r.bodyBytes,
	}

	for k, v := range r.Headers {
		clone.Headers[k] = v
	}

	for k, vs := range r.Query {
		for _, v := range vs {
			clone.Query.Add(k, v)
		}
	}

	if len(r.bodyBytes) > 0 {
		clone.Body = bytes.NewReader(r.bodyBytes)
	}

	return clone
}
