package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func geminiServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *GeminiProvider) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, NewGeminiProvider(srv.URL, "test-key", "gemini-test")
}

func TestGeminiChat_Success(t *testing.T) {
	var gotReq geminiGenerateReq
	srv, provider := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-test:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("key = %s", r.URL.Query().Get("key"))
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": "hello from gemini"}},
				}},
			},
		})
	})
	_ = srv

	reply, err := provider.Chat(context.Background(), []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "earlier reply"},
		{Role: "user", Content: "again"},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply != "hello from gemini" {
		t.Fatalf("reply = %q", reply)
	}

	// assistant turns are sent with the wire role "model"
	if len(gotReq.Contents) != 3 {
		t.Fatalf("len(contents) = %d, want 3", len(gotReq.Contents))
	}
	if gotReq.Contents[0].Role != "user" || gotReq.Contents[1].Role != "model" {
		t.Fatalf("roles = %s, %s", gotReq.Contents[0].Role, gotReq.Contents[1].Role)
	}
}

func TestGeminiChat_MalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "oops"},
		{"no candidates", `{"candidates":[]}`},
		{"candidate without content", `{"candidates":[{}]}`},
		{"content without parts", `{"candidates":[{"content":{"role":"model","parts":[]}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, provider := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := provider.Chat(context.Background(), []Message{{Role: "user", Content: "x"}})
			if !errors.Is(err, ErrMalformedResponse) {
				t.Fatalf("err = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestGeminiChat_APIError(t *testing.T) {
	_, provider := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	})

	_, err := provider.Chat(context.Background(), []Message{{Role: "user", Content: "x"}})
	if !errors.Is(err, ErrAPI) {
		t.Fatalf("err = %v, want ErrAPI", err)
	}
}

func TestGeminiChat_ErrorField(t *testing.T) {
	_, provider := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"model overloaded"}}`))
	})

	_, err := provider.Chat(context.Background(), []Message{{Role: "user", Content: "x"}})
	if !errors.Is(err, ErrAPI) {
		t.Fatalf("err = %v, want ErrAPI", err)
	}
}

func TestGeminiChat_TimeoutClassified(t *testing.T) {
	_, provider := geminiServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := provider.Chat(ctx, []Message{{Role: "user", Content: "x"}})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestGeminiChat_RequiresAPIKey(t *testing.T) {
	provider := NewGeminiProvider("http://127.0.0.1:1", "", "gemini-test")
	if _, err := provider.Chat(context.Background(), nil); err == nil {
		t.Fatal("expected error for missing api key")
	}
}
