package narrative

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "repolyze/internal/platform/errors"
)

func TestUnconfiguredProvider(t *testing.T) {
	p := New(Config{})
	if p.Configured() {
		t.Fatal("provider without key reports configured")
	}
	err := p.Stream(context.Background(), "prompt", func(string) error { return nil })
	if perr.CodeOf(err) != perr.ErrorCodeConfig {
		t.Fatalf("want config error, got %v", err)
	}
}

func TestStreamDeliversChunksInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{"Hello", " there", "!"}
		for _, c := range chunks {
			w.Write([]byte(`data: {"choices":[{"delta":{"content":"` + c + `"}}]}` + "\n\n"))
		}
		w.Write([]byte("data: [DONE]\n\n"))
	}))
	defer srv.Close()

	p := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	var got []string
	err := p.Stream(context.Background(), "prompt", func(s string) error {
		got = append(got, s)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if strings.Join(got, "") != "Hello there!" {
		t.Fatalf("chunks = %v", got)
	}
}

func TestStreamOpenFailureIsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	err := p.Stream(context.Background(), "prompt", func(string) error { return nil })
	if perr.CodeOf(err) != perr.ErrorCodeProvider {
		t.Fatalf("want provider error, got %v", err)
	}
}
