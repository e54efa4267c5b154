package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vibeworks/go-resilience/retry"
)

func TestNewClient(t *testing.T) {
	client := NewClient()
	if client == nil {
		t.Fatal("NewClient() should not return nil")
	}
	if client.httpClient == nil {
		t.Error("httpClient should be initialized")
	}
	if client.config.timeout != DefaultTimeout {
		t.Errorf("expected default timeout, got %v", client.config.timeout)
	}
}

func TestNewClient_WithOptions(t *testing.T) {
	client := NewClient(
		WithBaseURL("https://api.example.com"),
		WithTimeout(5*time.Second),
		WithHeader("User-Agent", "Test/1.0"),
	)

	if client.config.baseURL != "https://api.example.com" {
		t.Error("baseURL not set")
	}
	if client.config.timeout != 5*time.Second {
		t.Error("timeout not set")
	}
	if client.config.headers["User-Agent"] != "Test/1.0" {
		t.Error("header not set")
	}
}

func TestClient_Do_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message": "success"}`))
	}))
	defer ts.Close()

	client := NewClient()
	resp, err := client.Do(context.Background(), NewGetRequest(ts.URL))
	if err != nil {
		t.Fatalf("Do() failed: %v", err)
	}
	defer resp.Close()

	if resp.StatusCode != 200 {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if !resp.IsSuccess() {
		t.Error("2xx should be a success")
	}
	if !strings.Contains(resp.String(), "success") {
		t.Errorf("unexpected body: %s", resp.String())
	}
	if resp.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", resp.Attempts)
	}
}

func TestClient_Do_BaseURLJoining(t *testing.T) {
	var gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewClient(WithBaseURL(ts.URL + "/"))
	if _, err := client.Get(context.Background(), "/v1/status"); err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if gotPath != "/v1/status" {
		t.Errorf("expected /v1/status, got %s", gotPath)
	}
}

func TestClient_Do_MergesHeadersAndQueries(t *testing.T) {
	var gotHeader, gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Api-Key")
		gotQuery = r.URL.Query().Get("tenant")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewClient(WithHeader("X-Api-Key", "secret"), WithQuery("tenant", "acme"))
	if _, err := client.Get(context.Background(), ts.URL); err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if gotHeader != "secret" {
		t.Errorf("client header not sent, got %q", gotHeader)
	}
	if gotQuery != "acme" {
		t.Errorf("client query not sent, got %q", gotQuery)
	}
}

func TestClient_Do_RequestIDInjected(t *testing.T) {
	var first, second string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if first == "" {
			first = r.Header.Get("X-Request-Id")
		} else {
			second = r.Header.Get("X-Request-Id")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewClient()
	client.Get(context.Background(), ts.URL)
	client.Get(context.Background(), ts.URL)

	if first == "" || second == "" {
		t.Fatal("X-Request-Id should be set on every request")
	}
	if first == second {
		t.Error("each request should get a distinct id")
	}
}

func TestClient_Do_RequestIDNotOverwritten(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Request-Id")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewClient()
	req := NewGetRequest(ts.URL).WithHeader("X-Request-Id", "caller-chosen")
	client.Do(context.Background(), req)

	if got != "caller-chosen" {
		t.Errorf("caller's id should survive, got %q", got)
	}
}

func TestClient_Do_ServerErrorReturnsStatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	client := NewClient()
	resp, err := client.Get(context.Background(), ts.URL)
	if err == nil {
		t.Fatal("5xx should surface as an error")
	}

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %T", err)
	}
	if se.StatusCode() != 502 {
		t.Errorf("expected 502, got %d", se.StatusCode())
	}
	if resp == nil || resp.StatusCode != 502 {
		t.Error("response should still accompany the error")
	}
}

func TestClient_Do_ClientErrorIsPlainResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	client := NewClient()
	resp, err := client.Get(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("4xx should not be an error: %v", err)
	}
	if !resp.IsClientError() {
		t.Error("expected a client error response")
	}
	if resp.IsSuccess() {
		t.Error("4xx is not a success")
	}
}

func TestClient_Do_RedirectCountsAsSuccess(t *testing.T) {
	resp := &Response{StatusCode: 304}
	if !resp.IsSuccess() {
		t.Error("3xx should count as success")
	}
}

func TestClient_Do_Retry(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewClient(WithRetry(
		retry.MaxAttempts(5),
		retry.Backoff(retry.NoBackoff()),
		retry.Condition(retry.OnHTTPStatus(503)),
	))

	resp, err := client.Get(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if resp.StatusCode != 200 {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestClient_Do_DisableRetryPerCall(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	client := NewClient(WithRetry(retry.MaxAttempts(5), retry.Backoff(retry.NoBackoff())))
	client.Get(context.Background(), ts.URL, DisableRetry())

	if calls != 1 {
		t.Errorf("expected a single call with retries disabled, got %d", calls)
	}
}

func TestClient_Do_BeforeAfterHooks(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Hooked") != "yes" {
			t.Error("before hook did not run")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	afterRan := false
	client := NewClient(
		WithBeforeRequest(func(req *http.Request) error {
			req.Header.Set("X-Hooked", "yes")
			return nil
		}),
		WithAfterResponse(func(resp *Response) error {
			afterRan = true
			return nil
		}),
	)

	if _, err := client.Get(context.Background(), ts.URL); err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if !afterRan {
		t.Error("after hook did not run")
	}
}

func TestClient_Do_Throttle(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	// 10 rps with burst 1: the second call must wait roughly 100ms.
	client := NewClient(WithThrottle(10, 1))

	ctx := context.Background()
	client.Get(ctx, ts.URL)
	start := time.Now()
	client.Get(ctx, ts.URL)

	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("second call should have been throttled, took %v", elapsed)
	}
}

func TestClient_Do_ThrottleHonorsContext(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewClient(WithThrottle(0.001, 1))
	ctx := context.Background()
	client.Get(ctx, ts.URL)

	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err := client.Get(ctx, ts.URL)
	if err == nil {
		t.Fatal("throttled call should fail when the context expires first")
	}
}

func TestDoInto(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"edge-1","healthy":true}`))
	}))
	defer ts.Close()

	type node struct {
		Name    string `json:"name"`
		Healthy bool   `json:"healthy"`
	}

	client := NewClient()
	got, err := GetInto[node](client, context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("GetInto() failed: %v", err)
	}
	if got.Name != "edge-1" || !got.Healthy {
		t.Errorf("unexpected decode: %+v", got)
	}
}

func TestDoInto_NonSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	client := NewClient()
	_, err := GetInto[map[string]any](client, context.Background(), ts.URL)

	var se *StatusError
	if !errors.As(err, &se) || se.Code != 404 {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}
}

func TestClient_Post_JSONBody(t *testing.T) {
	var gotBody, gotType string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		gotType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	client := NewClient()
	resp, err := client.Post(context.Background(), ts.URL, map[string]string{"k": "v"})
	if err != nil {
		t.Fatalf("Post() failed: %v", err)
	}
	if resp.StatusCode != 201 {
		t.Errorf("expected 201, got %d", resp.StatusCode)
	}
	if gotType != "application/json" {
		t.Errorf("expected json content type, got %q", gotType)
	}
	if !strings.Contains(gotBody, `"k":"v"`) {
		t.Errorf("unexpected body: %s", gotBody)
	}
}

func TestResponse_RetryAfter(t *testing.T) {
	mk := func(v string) *Response {
		h := http.Header{}
		if v != "" {
			h.Set("Retry-After", v)
		}
		return &Response{StatusCode: 429, Headers: h}
	}

	if d := mk("5").RetryAfter(); d != 5*time.Second {
		t.Errorf("delay-seconds form: got %v", d)
	}
	if d := mk("").RetryAfter(); d != 0 {
		t.Errorf("absent header: got %v", d)
	}
	if d := mk("garbage").RetryAfter(); d != 0 {
		t.Errorf("unparseable header: got %v", d)
	}
	httpDate := time.Now().Add(30 * time.Second).UTC().Format(http.TimeFormat)
	if d := mk(httpDate).RetryAfter(); d < 25*time.Second || d > 30*time.Second {
		t.Errorf("http-date form: got %v", d)
	}
}
