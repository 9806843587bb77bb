package ai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/p-n-ai/pai-study/internal/ai"
)

type chatBody struct {
	Model    string       `json:"model"`
	Messages []ai.Message `json:"messages"`
}

func TestOllamaProvider_Complete(t *testing.T) {
	var got chatBody
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("Authorization header sent to Ollama")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "llama3:8b",
			"choices": [{"message": {"role": "assistant", "content": "Q: 2+2?\nA: 4"}}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 10}
		}`))
	}))
	defer server.Close()

	provider := ai.NewOllamaProvider(server.URL + "/")
	resp, err := provider.Complete(context.Background(), userRequest("notes"))
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "Q: 2+2?\nA: 4" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.TotalTokens() != 15 {
		t.Errorf("TotalTokens() = %d, want 15", resp.TotalTokens())
	}
	if got.Model != ai.DefaultOllamaModel {
		t.Errorf("model = %q, want %q", got.Model, ai.DefaultOllamaModel)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "notes" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestOllamaProvider_ModelPrecedence(t *testing.T) {
	tests := []struct {
		name      string
		option    string
		requested string
		want      string
	}{
		{"default", "", "", ai.DefaultOllamaModel},
		{"configured", "qwen2.5:7b", "", "qwen2.5:7b"},
		{"per request", "qwen2.5:7b", "mistral", "mistral"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got chatBody
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewDecoder(r.Body).Decode(&got)
				_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
			}))
			defer server.Close()

			provider := ai.NewOllamaProvider(server.URL, ai.WithOllamaModel(tt.option))
			req := userRequest("x")
			req.Model = tt.requested
			if _, err := provider.Complete(context.Background(), req); err != nil {
				t.Fatalf("Complete() error = %v", err)
			}
			if got.Model != tt.want {
				t.Errorf("model = %q, want %q", got.Model, tt.want)
			}
		})
	}
}

func TestOllamaProvider_CompleteErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"api error", http.StatusInternalServerError, "model not found"},
		{"no choices", http.StatusOK, `{"choices":[]}`},
		{"bad json", http.StatusOK, `{"choices":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := ai.NewOllamaProvider(server.URL).Complete(context.Background(), userRequest("x"))
			if err == nil {
				t.Fatal("Complete() error = nil")
			}
		})
	}
}

func TestOllamaProvider_HealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    bool
	}{
		{"healthy", http.StatusOK, false},
		{"unhealthy", http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/tags" {
					t.Errorf("unexpected path: %s", r.URL.Path)
				}
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			err := ai.NewOllamaProvider(server.URL).HealthCheck(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("HealthCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
