package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaChat_Success(t *testing.T) {
	var gotReq ollamaChatReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(ollamaChatResp{
			Message: &ollamaMsg{Role: "assistant", Content: "hello from ollama"},
		})
	}))
	defer srv.Close()

	provider := NewOllamaProvider(srv.URL, "test-model")
	reply, err := provider.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply != "hello from ollama" {
		t.Fatalf("reply = %q", reply)
	}
	if gotReq.Model != "test-model" || gotReq.Stream {
		t.Fatalf("request = %+v", gotReq)
	}
}

func TestOllamaChat_MissingMessageIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	provider := NewOllamaProvider(srv.URL, "test-model")
	_, err := provider.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("err = %v, want ErrMalformedResponse", err)
	}
}

func TestOllamaChat_ErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer srv.Close()

	provider := NewOllamaProvider(srv.URL, "test-model")
	_, err := provider.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	if !errors.Is(err, ErrAPI) {
		t.Fatalf("err = %v, want ErrAPI", err)
	}
}

func TestOllamaStreamChat_DeliversChunks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, chunk := range []string{"Hel", "lo"} {
			fmt.Fprintf(w, `{"message":{"role":"assistant","content":%q},"done":false}`+"\n", chunk)
		}
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true}`)
	}))
	defer srv.Close()

	provider := NewOllamaProvider(srv.URL, "test-model")
	chunks, errs := provider.StreamChat(context.Background(), []Message{{Role: "user", Content: "hi"}})

	var got string
	for chunk := range chunks {
		got += chunk
	}
	if err := <-errs; err != nil {
		t.Fatalf("stream: %v", err)
	}
	if got != "Hello" {
		t.Fatalf("streamed = %q, want Hello", got)
	}
}

func TestOllamaStreamChat_LeavesChatClientAlone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":"hi"},"done":true}`)
	}))
	defer srv.Close()

	provider := NewOllamaProvider(srv.URL, "test-model")
	before := provider.Client.Timeout

	chunks, errs := provider.StreamChat(context.Background(), []Message{{Role: "user", Content: "hi"}})
	for range chunks {
	}
	if err := <-errs; err != nil {
		t.Fatalf("stream: %v", err)
	}

	if provider.Client.Timeout != before {
		t.Fatalf("chat client timeout changed: %v -> %v", before, provider.Client.Timeout)
	}
	if provider.StreamClient.Timeout != 0 {
		t.Fatalf("stream client timeout = %v, want 0", provider.StreamClient.Timeout)
	}
}

func TestRegistry_UnknownProvider(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Get(context.Background(), "nope", "model")
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("err = %v, want ErrUnknownProvider", err)
	}
}

func TestRegistry_NamesAreNormalized(t *testing.T) {
	reg := NewRegistry()
	reg.Register("Fake", func(ctx context.Context, model string) (Provider, error) {
		_ = ctx
		_ = model
		return &OllamaProvider{}, nil
	})

	if _, err := reg.Get(context.Background(), "  fake ", "m"); err != nil {
		t.Fatalf("get: %v", err)
	}
	if names := reg.Names(); len(names) != 1 || names[0] != "fake" {
		t.Fatalf("names = %v, want [fake]", names)
	}
}
