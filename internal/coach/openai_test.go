package coach

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newFakeOpenAI(t *testing.T, advice, image string, status int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		var req struct {
			Model string `json:"model"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "test-model" {
			t.Errorf("model = %q, want test-model", req.Model)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"nope","type":"server_error"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": advice},
				"finish_reason": "stop",
			}},
		})
	})
	mux.HandleFunc("POST /v1/images/generations", func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"nope","type":"server_error"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"created": 1,
			"data":    []map[string]any{{"b64_json": image}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIBackend(t *testing.T) {
	srv := newFakeOpenAI(t, "Save Point reached!", "iVBOR", http.StatusOK)
	b := NewOpenAIBackend(OpenAIConfig{
		APIKey:     "test-key",
		BaseURL:    srv.URL + "/v1",
		Model:      "test-model",
		ImageModel: "test-image",
	})
	ctx := context.Background()

	text, err := b.Advise(ctx, "hello")
	if err != nil {
		t.Fatalf("advise: %v", err)
	}
	if text != "Save Point reached!" {
		t.Errorf("advice = %q", text)
	}

	img, err := b.Portrait(ctx, portraitPrompt)
	if err != nil {
		t.Fatalf("portrait: %v", err)
	}
	if img != "iVBOR" {
		t.Errorf("portrait = %q, want iVBOR", img)
	}
}

func TestOpenAIBackendError(t *testing.T) {
	srv := newFakeOpenAI(t, "", "", http.StatusInternalServerError)
	b := NewOpenAIBackend(OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/v1",
		Model:   "test-model",
	})

	if _, err := b.Advise(context.Background(), "hello"); err == nil {
		t.Error("expected error from failing server")
	}
	if _, err := b.Portrait(context.Background(), "x"); err == nil {
		t.Error("expected error from failing image endpoint")
	}
}

func TestNewBackendWithoutKey(t *testing.T) {
	b := NewBackend(OpenAIConfig{})
	if _, err := b.Advise(context.Background(), "x"); err != ErrUnavailable {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
	if _, ok := NewBackend(OpenAIConfig{APIKey: "k"}).(*OpenAIBackend); !ok {
		t.Error("expected OpenAI backend when a key is set")
	}
}
