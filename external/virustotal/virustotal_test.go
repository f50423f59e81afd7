package virustotal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"golang.org/x/time/rate"

	"github.com/foxseedlab/kiosko/internal/apperror"
	"github.com/foxseedlab/kiosko/internal/provider"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient("vt-key")
	c.baseURL = srv.URL
	c.httpClient = srv.Client()
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	return c
}

func TestSubmitThenFetchUntilCompleted(t *testing.T) {
	var polls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-apikey") != "vt-key" {
			t.Errorf("missing api key header")
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/urls":
			if err := r.ParseForm(); err != nil || r.PostForm.Get("url") != "https://example.com" {
				t.Errorf("unexpected form: %v %v", r.PostForm, err)
			}
			_, _ = w.Write([]byte(`{"data":{"type":"analysis","id":"u-123"}}`))
		case r.Method == http.MethodGet && r.URL.Path == "/analyses/u-123":
			if polls.Add(1) == 1 {
				_, _ = w.Write([]byte(`{"data":{"attributes":{"status":"queued"}}}`))
				return
			}
			_, _ = w.Write([]byte(`{"data":{"attributes":{"status":"completed","stats":{"malicious":2,"suspicious":1,"harmless":70,"undetected":5}}}}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})
	ctx := context.Background()

	id, err := c.Submit(ctx, "https://example.com")
	if err != nil || id != "u-123" {
		t.Fatalf("submit = %q, %v", id, err)
	}
	if _, err := c.Fetch(ctx, id); !errors.Is(err, provider.ErrNotReady) {
		t.Fatalf("first fetch err = %v", err)
	}
	v, err := c.Fetch(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if v.Malicious != 2 || v.Harmless != 70 || v.Undetected != 5 {
		t.Fatalf("verdict = %+v", v)
	}
}

func TestSubmit_RejectedKeyIsProviderFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"code":"WrongCredentialsError"}}`, http.StatusUnauthorized)
	})
	if _, err := c.Submit(context.Background(), "https://example.com"); apperror.KindOf(err) != apperror.KindProviderFailure {
		t.Fatalf("err = %v", err)
	}
}

func TestDo_RespectsCancelledContextWhileRateLimited(t *testing.T) {
	c := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Error("no request should be sent")
	})
	c.limiter = rate.NewLimiter(rate.Limit(0), 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Fetch(ctx, "u-1"); err == nil {
		t.Fatal("expected an error from the limiter")
	}
}
