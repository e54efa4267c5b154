package httpclient

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"
)

// Response wraps an HTTP response with its body fully read.
type Response struct {
	StatusCode  int
	Status      string
	Headers     http.Header
	Body        []byte
	RawResponse *http.Response

	Duration time.Duration
	Attempts int
}

// IsSuccess reports whether the response is a successful outcome.
// Redirects count as success: only 4xx and 5xx are failures.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 400
}

// IsClientError reports a 4xx status.
func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

// IsServerError reports a 5xx status.
func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500 && r.StatusCode < 600
}

// RetryAfter parses the Retry-After header, in either delay-seconds or
// HTTP-date form. Returns 0 when absent or unparseable.
func (r *Response) RetryAfter() time.Duration {
	v := r.Headers.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// JSON unmarshals the body into v.
func (r *Response) JSON(v any) error {
	if v == nil {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

// String returns the body as a string.
func (r *Response) String() string { return string(r.Body) }

// Bytes returns the raw body.
func (r *Response) Bytes() []byte { return r.Body }

// Close releases the underlying response body.
func (r *Response) Close() error {
	if r.RawResponse != nil && r.RawResponse.Body != nil {
		return r.RawResponse.Body.Close()
	}
	return nil
}

func newResponse(httpResp *http.Response) (*Response, error) {
	body, err := io.ReadAll(httpResp.Body)
	httpResp.Body.Close()
	if err != nil {
		return nil, err
	}
	return &Response{
		StatusCode:  httpResp.StatusCode,
		Status:      httpResp.Status,
		Headers:     httpResp.Header,
		Body:        body,
		RawResponse: httpResp,
	}, nil
}
