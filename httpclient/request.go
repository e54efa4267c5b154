package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request is a buildable HTTP request. The body is cached as bytes so the
// same request can be replayed by the retry loop.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   url.Values

	bodyBytes []byte
}

// NewRequest creates a request with the given method and URL.
func NewRequest(method, urlStr string) *Request {
	return &Request{
		Method:  method,
		URL:     urlStr,
		Headers: make(map[string]string),
		Query:   make(url.Values),
	}
}

// NewGetRequest creates a GET request.
func NewGetRequest(urlStr string) *Request { return NewRequest(http.MethodGet, urlStr) }

// NewPostRequest creates a POST request.
func NewPostRequest(urlStr string) *Request { return NewRequest(http.MethodPost, urlStr) }

// NewPutRequest creates a PUT request.
func NewPutRequest(urlStr string) *Request { return NewRequest(http.MethodPut, urlStr) }

// NewPatchRequest creates a PATCH request.
func NewPatchRequest(urlStr string) *Request { return NewRequest(http.MethodPatch, urlStr) }

// NewDeleteRequest creates a DELETE request.
func NewDeleteRequest(urlStr string) *Request { return NewRequest(http.MethodDelete, urlStr) }

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

// WithBody sets the raw body. The reader is drained once and cached.
func (r *Request) WithBody(body io.Reader) *Request {
	if body == nil {
		return r
	}
	if data, err := io.ReadAll(body); err == nil {
		r.bodyBytes = data
	}
	return r
}

// WithJSON marshals data as the JSON body and sets Content-Type.
func (r *Request) WithJSON(data any) *Request {
	if data == nil {
		return r
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return r
	}
	r.bodyBytes = jsonData
	r.Headers["Content-Type"] = "application/json"
	return r
}

// WithForm encodes data as a form body and sets Content-Type.
func (r *Request) WithForm(data map[string]string) *Request {
	if data == nil {
		return r
	}
	formData := make(url.Values, len(data))
	for k, v := range data {
		formData.Set(k, v)
	}
	r.bodyBytes = []byte(formData.Encode())
	r.Headers["Content-Type"] = "application/x-www-form-urlencoded"
	return r
}

// buildHTTPRequest materializes an http.Request. Each call yields a fresh
// body reader so retried attempts never see a drained stream.
func (r *Request) buildHTTPRequest(ctx context.Context) (*http.Request, error) {
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
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, fullURL, body)
	if err != nil {
		return nil, err
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// Clone deep-copies the request so per-call mutation never leaks into a
// shared template.
func (r *Request) Clone() *Request {
	clone := &Request{
		Method:    r.Method,
		URL:       r.URL,
		Headers:   make(map[string]string, len(r.Headers)),
		Query:     make(url.Values, len(r.Query)),
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
	return clone
}
