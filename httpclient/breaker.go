package httpclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// StatusError marks a response whose status the breaker should classify.
// 5xx become server-class failures; the breaker never counts 4xx, which
// surface as plain responses instead.
type StatusError struct {
	Code     int
	Status   string
	Response *Response
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Status)
}

// StatusCode implements breaker.StatusCoder.
func (e *StatusError) StatusCode() int { return e.Code }

// breakerResource derives the record key for a request: an explicit
// override wins, otherwise the upstream origin (scheme://host) so every
// endpoint of one service shares a record.
func breakerResource(cfg *config, rawURL string) string {
	if cfg.breakerResource != "" {
		return cfg.breakerResource
	}
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return u.Scheme + "://" + u.Host
	}
	// Relative URL with no resolvable origin: fall back to the base URL.
	if cfg.baseURL != "" {
		return strings.TrimRight(cfg.baseURL, "/")
	}
	return rawURL
}

// executeWithBreaker runs one attempt through the breaker. Responses with
// 5xx status are returned as *StatusError inside the thunk so the
// breaker's classifier counts them; the response still reaches the caller
// alongside the error.
func (c *Client) executeWithBreaker(ctx context.Context, req *Request, cfg *config) (*Response, error) {
	resource := breakerResource(cfg, req.URL)

	result, err := cfg.breakerManager.Execute(ctx, resource, func(ctx context.Context) (any, error) {
		resp, err := c.doRequest(ctx, req, cfg)
		if err != nil {
			return nil, err
		}
		if resp.IsServerError() {
			return resp, &StatusError{Code: resp.StatusCode, Status: resp.Status, Response: resp}
		}
		return resp, nil
	})

	resp, _ := result.(*Response)
	return resp, err
}
