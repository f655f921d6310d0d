package http_test

import (
	"context"
	gohttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/alan-mat/saidia/internal/http"
)

func TestRequestRetriesOnServerError(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(gohttp.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"overloaded"}`))
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	c := http.NewClient(ts.URL, http.WithMaxRetries(2))

	result, err := c.Request(context.Background(), http.MethodPost, "/v1/test", map[string]any{"q": "hi"})
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("got %d calls, expected a single retry", calls)
	}
	if ok, _ := result["ok"].(bool); !ok {
		t.Errorf("unexpected result %v", result)
	}
}

func TestRequestRetriesExhausted(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		calls++
		w.WriteHeader(gohttp.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := http.NewClient(ts.URL, http.WithMaxRetries(1))

	if _, err := c.Request(context.Background(), http.MethodPost, "/v1/test", nil); err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if calls != 2 {
		t.Errorf("got %d calls, expected initial attempt plus one retry", calls)
	}
}
