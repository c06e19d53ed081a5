package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// ════════════════════════════════════════════════════════════════════
// OpenAI provider
// ════════════════════════════════════════════════════════════════════

func TestNewOpenAIProviderNoKey(t *testing.T) {
	_, err := NewOpenAIProvider("")
	if !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("got %v, want ErrNoAPIKey", err)
	}
}

func TestOpenAIComplete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("Authorization = %q", got)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"SUMMARY:\n- point"}}]}`)
	}))
	defer ts.Close()

	p, err := NewOpenAIProvider("key", WithOpenAIBaseURL(ts.URL))
	if err != nil {
		t.Fatal(err)
	}
	out, err := p.Complete(context.Background(), "system", "prompt")
	if err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}
	if out != "SUMMARY:\n- point" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestOpenAICompleteRateLimit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`)
	}))
	defer ts.Close()

	p, _ := NewOpenAIProvider("key", WithOpenAIBaseURL(ts.URL))
	_, err := p.Complete(context.Background(), "s", "p")
	if !errors.Is(err, ErrRateLimit) {
		t.Fatalf("got %v, want ErrRateLimit", err)
	}
}

func TestOpenAICompleteUnauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer ts.Close()

	p, _ := NewOpenAIProvider("key", WithOpenAIBaseURL(ts.URL))
	_, err := p.Complete(context.Background(), "s", "p")
	if !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("got %v, want ErrNoAPIKey", err)
	}
}

func TestOpenAICompleteServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	p, _ := NewOpenAIProvider("key", WithOpenAIBaseURL(ts.URL))
	_, err := p.Complete(context.Background(), "s", "p")
	if !errors.Is(err, ErrProviderDown) {
		t.Fatalf("got %v, want ErrProviderDown", err)
	}
}

// ════════════════════════════════════════════════════════════════════
// Anthropic provider
// ════════════════════════════════════════════════════════════════════

func TestAnthropicComplete(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("x-api-key"); got != "key" {
			t.Errorf("x-api-key = %q", got)
		}
		fmt.Fprint(w, `{"content":[{"type":"text","text":"hello "},{"type":"text","text":"world"}]}`)
	}))
	defer ts.Close()

	p, err := NewAnthropicProvider("key", WithAnthropicBaseURL(ts.URL))
	if err != nil {
		t.Fatal(err)
	}
	out, err := p.Complete(context.Background(), "system", "prompt")
	if err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}
	if out != "hello world" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestAnthropicCompleteRateLimit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"type":"rate_limit_error","message":"slow down"}}`)
	}))
	defer ts.Close()

	p, _ := NewAnthropicProvider("key", WithAnthropicBaseURL(ts.URL))
	_, err := p.Complete(context.Background(), "s", "p")
	if !errors.Is(err, ErrRateLimit) {
		t.Fatalf("got %v, want ErrRateLimit", err)
	}
}

// ════════════════════════════════════════════════════════════════════
// Chain
// ════════════════════════════════════════════════════════════════════

type fakeProvider struct {
	name string
	out  string
	err  error
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) Complete(context.Context, string, string) (string, error) {
	return f.out, f.err
}

func TestChainEmpty(t *testing.T) {
	c := NewChain()
	_, err := c.Complete(context.Background(), "s", "p")
	if !errors.Is(err, ErrNoProviders) {
		t.Fatalf("got %v, want ErrNoProviders", err)
	}
}

func TestChainFallsThroughOnOutage(t *testing.T) {
	c := NewChain(
		&fakeProvider{name: "a", err: fmt.Errorf("%w: boom", ErrProviderDown)},
		&fakeProvider{name: "b", out: "ok"},
	)
	out, err := c.Complete(context.Background(), "s", "p")
	if err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}
	if out != "ok" {
		t.Fatalf("got %q, want ok", out)
	}
}

func TestChainStopsOnRateLimit(t *testing.T) {
	// A quota error must surface, not silently fail over; operators
	// need to see billing problems.
	c := NewChain(
		&fakeProvider{name: "a", err: fmt.Errorf("%w: quota", ErrRateLimit)},
		&fakeProvider{name: "b", out: "ok"},
	)
	_, err := c.Complete(context.Background(), "s", "p")
	if !errors.Is(err, ErrRateLimit) {
		t.Fatalf("got %v, want ErrRateLimit", err)
	}
}
