package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	c, err := NewClient(ts.URL, opts...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestQuerySendsPrompt(t *testing.T) {
	var gotBody QueryRequest
	var gotPath, gotMethod, gotID, gotAuth string

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		gotID = r.Header.Get("X-Request-ID")
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"answer":"Hello","code":"print(1)"}`)
	}, WithToken("secret"))

	res, err := c.Query(context.Background(), "who was JFK?", "req-1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/query" {
		t.Errorf("expected POST /query, got %s %s", gotMethod, gotPath)
	}
	if gotBody.Prompt != "who was JFK?" {
		t.Errorf("unexpected prompt %q", gotBody.Prompt)
	}
	if gotID != "req-1" {
		t.Errorf("expected request id header, got %q", gotID)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("expected bearer token, got %q", gotAuth)
	}
	if res.Kind != KindCode || res.Code != "print(1)" || res.Answer != "Hello" {
		t.Errorf("unexpected result %+v", res)
	}
	if res.Status != http.StatusOK {
		t.Errorf("expected status 200, got %d", res.Status)
	}
}

func TestQueryErrorDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"detail":"bad input"}`)
	})

	_, err := c.Query(context.Background(), "x", "")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", se.Status)
	}
	if err.Error() != "bad input" {
		t.Errorf("expected message %q, got %q", "bad input", err.Error())
	}
}

func TestQueryErrorFallback(t *testing.T) {
	bodies := []string{"", "not json", `{"detail":[{"msg":"field required"}]}`, `{"error":"boom"}`}
	for _, body := range bodies {
		body := body
		t.Run(body, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				io.WriteString(w, body)
			})
			_, err := c.Query(context.Background(), "x", "")
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Error() != "Request failed: 500" {
				t.Errorf("expected generic message, got %q", err.Error())
			}
		})
	}
}

func TestQueryMalformedSuccess(t *testing.T) {
	for _, body := range []string{`{"code":"x"}`, `<html>`, ``} {
		body := body
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
			io.WriteString(w, body)
		})
		_, err := c.Query(context.Background(), "x", "")
		if !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("body %q: expected ErrMalformedResponse, got %v", body, err)
		}
		var re *ResponseError
		if !errors.As(err, &re) || re.Status != http.StatusAccepted {
			t.Errorf("body %q: expected ResponseError with 202, got %v", body, err)
		}
	}
}

func TestQueryCancelled(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Query(ctx, "x", "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestQueryTransportFailure(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c, err := NewClient(url)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = c.Query(context.Background(), "x", "")
	if err == nil || !strings.HasPrefix(err.Error(), "request failed:") {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestNewClientValidatesURL(t *testing.T) {
	for _, u := range []string{"", "   ", "ftp://example.com", "://bad"} {
		if _, err := NewClient(u); err == nil {
			t.Errorf("expected error for %q", u)
		}
	}
	c, err := NewClient("http://localhost:8000/")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if c.Endpoint() != "http://localhost:8000/query" {
		t.Errorf("unexpected endpoint %s", c.Endpoint())
	}
}

func TestDecodeResultShapes(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		shape Shape
		kind  Kind
	}{
		{"plain", `{"answer":"a"}`, ShapeAuto, KindPlain},
		{"code", `{"answer":"a","code":"x=1"}`, ShapeAuto, KindCode},
		{"method", `{"answer":"a","method":"llm"}`, ShapeAuto, KindMethod},
		{"both prefers code", `{"answer":"a","code":"x","method":"python"}`, ShapeAuto, KindCode},
		{"method deployment ignores code", `{"answer":"a","code":"x","method":"python"}`, ShapeMethod, KindMethod},
		{"code deployment ignores method", `{"answer":"a","method":"llm"}`, ShapeCode, KindPlain},
		{"empty code is plain", `{"answer":"a","code":""}`, ShapeAuto, KindPlain},
		{"null code is plain", `{"answer":"a","code":null}`, ShapeAuto, KindPlain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := DecodeResult([]byte(tt.body), tt.shape)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if res.Kind != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, res.Kind)
			}
			if res.Kind != KindCode && res.Code != "" {
				t.Errorf("code set on %s result", res.Kind)
			}
			if res.Kind != KindMethod && res.Method != "" {
				t.Errorf("method set on %s result", res.Kind)
			}
		})
	}
}

func TestParseShape(t *testing.T) {
	if s, err := ParseShape(""); err != nil || s != ShapeAuto {
		t.Errorf("empty shape: %v %v", s, err)
	}
	if _, err := ParseShape("yaml"); err == nil {
		t.Error("expected error for unknown shape")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestWithHTTPClient(t *testing.T) {
	var seen string
	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		seen = r.URL.String()
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(`{"answer":"via transport"}`)),
		}, nil
	})}

	c, err := NewClient("http://answers.invalid/", WithHTTPClient(hc))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	res, err := c.Query(context.Background(), "x", "id")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if res.Answer != "via transport" || seen != c.Endpoint() {
		t.Errorf("got %+v via %q", res, seen)
	}
}

func TestWithTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}, WithTimeout(50*time.Millisecond))

	_, err := c.Query(context.Background(), "x", "")
	if err == nil || !strings.HasPrefix(err.Error(), "request failed:") {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}
