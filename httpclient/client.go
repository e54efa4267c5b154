// Package httpclient is an HTTP client with circuit breaking, caller-side
// retries, client-side throttling and OTel instrumentation layered behind
// functional options. The layering per attempt is throttle, then breaker
// admission, then the wire call; retries wrap the whole attempt and never
// replay a breaker fast-fail.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vibeworks/go-resilience/retry"
)

// Client is a reusable HTTP client. Per-call options overlay the client's
// configuration without mutating it.
type Client struct {
	httpClient *http.Client
	config     *config
}

// NewClient creates a client.
func NewClient(opts ...Option) *Client {
	cfg := newConfig()
	applyOptions(cfg, opts)

	if cfg.timeout == 0 {
		cfg.timeout = DefaultTimeout
	}
	if cfg.transport == nil {
		cfg.transport = http.DefaultTransport
	}

	return &Client{
		httpClient: &http.Client{Transport: cfg.transport},
		config:     cfg,
	}
}

// Do executes the request. With a breaker configured, a fast-fail returns
// a *breaker.CircuitOpenError without touching the wire; with retries
// configured, failed attempts replay per the retry condition.
func (c *Client) Do(ctx context.Context, req *Request, opts ...Option) (*Response, error) {
	reqCfg := newConfig()
	applyOptions(reqCfg, opts)
	cfg := c.config.merge(reqCfg)

	if ctx == nil {
		ctx = context.Background()
	}

	req = req.Clone()
	if cfg.baseURL != "" && !strings.HasPrefix(req.URL, "http://") && !strings.HasPrefix(req.URL, "https://") {
		req.URL = strings.TrimRight(cfg.baseURL, "/") + "/" + strings.TrimLeft(req.URL, "/")
	}
	for k, vs := range cfg.queries {
		for _, v := range vs {
			req.Query.Add(k, v)
		}
	}
	for k, v := range cfg.headers {
		if _, exists := req.Headers[k]; !exists {
			req.Headers[k] = v
		}
	}

	start := time.Now()
	attempts := 1
	var resp *Response
	var err error

	if cfg.retryEnabled {
		err = retry.Do(ctx, func() error {
			resp, err = c.attempt(ctx, req, cfg)
			return err
		}, cfg.retryOpts...)
		if n := retry.Attempts(err); n > 0 {
			attempts = n
		}
	} else {
		resp, err = c.attempt(ctx, req, cfg)
	}

	if resp != nil {
		resp.Duration = time.Since(start)
		resp.Attempts = attempts
		if cfg.afterResponse != nil {
			if hookErr := cfg.afterResponse(resp); hookErr != nil && err == nil {
				err = hookErr
			}
		}
	}
	if err != nil {
		return resp, err
	}
	return resp, nil
}

// attempt runs one throttled, breaker-guarded request.
func (c *Client) attempt(ctx context.Context, req *Request, cfg *config) (*Response, error) {
	if cfg.limiter != nil {
		if err := cfg.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if cfg.breakerManager != nil && !cfg.breakerDisabled {
		return c.executeWithBreaker(ctx, req, cfg)
	}
	resp, err := c.doRequest(ctx, req, cfg)
	if err != nil {
		return nil, err
	}
	if resp.IsServerError() {
		return resp, &StatusError{Code: resp.StatusCode, Status: resp.Status, Response: resp}
	}
	return resp, nil
}

// doRequest performs the wire call.
func (c *Client) doRequest(ctx context.Context, req *Request, cfg *config) (*Response, error) {
	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	httpReq, err := req.buildHTTPRequest(ctx)
	if err != nil {
		return nil, fmt.Errorf("build http request failed: %w", err)
	}
	if httpReq.Header.Get("X-Request-Id") == "" {
		httpReq.Header.Set("X-Request-Id", uuid.NewString())
	}

	if cfg.beforeRequest != nil {
		if err := cfg.beforeRequest(httpReq); err != nil {
			return nil, fmt.Errorf("before request hook failed: %w", err)
		}
	}

	httpResp, err := c.transportFor(cfg).Do(httpReq)
	if err != nil {
		return nil, err
	}
	return newResponse(httpResp)
}

// transportFor returns the client, or a derived one when a per-call
// transport override is in effect.
func (c *Client) transportFor(cfg *config) *http.Client {
	if cfg.transport == nil || cfg.transport == c.httpClient.Transport {
		return c.httpClient
	}
	return &http.Client{Transport: cfg.transport}
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, url string, opts ...Option) (*Response, error) {
	return c.Do(ctx, NewGetRequest(url), opts...)
}

// Post sends a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, url string, body any, opts ...Option) (*Response, error) {
	return c.Do(ctx, NewPostRequest(url).WithJSON(body), opts...)
}

// Put sends a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, url string, body any, opts ...Option) (*Response, error) {
	return c.Do(ctx, NewPutRequest(url).WithJSON(body), opts...)
}

// Patch sends a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, url string, body any, opts ...Option) (*Response, error) {
	return c.Do(ctx, NewPatchRequest(url).WithJSON(body), opts...)
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, url string, opts ...Option) (*Response, error) {
	return c.Do(ctx, NewDeleteRequest(url), opts...)
}

// DoInto executes req and decodes the JSON body into T. Non-success
// responses return a *StatusError carrying the response.
func DoInto[T any](client *Client, ctx context.Context, req *Request, opts ...Option) (*T, error) {
	resp, err := client.Do(ctx, req, opts...)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, &StatusError{Code: resp.StatusCode, Status: resp.Status, Response: resp}
	}
	var result T
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response failed: %w", err)
	}
	return &result, nil
}

// GetInto is the generic GET helper.
func GetInto[T any](client *Client, ctx context.Context, url string, opts ...Option) (*T, error) {
	return DoInto[T](client, ctx, NewGetRequest(url), opts...)
}

// PostInto is the generic POST helper with a JSON body.
func PostInto[T any](client *Client, ctx context.Context, url string, data any, opts ...Option) (*T, error) {
	req := NewPostRequest(url)
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal request data failed: %w", err)
		}
		req.WithBody(bytes.NewReader(jsonData))
		req.WithHeader("Content-Type", "application/json")
	}
	return DoInto[T](client, ctx, req, opts...)
}
