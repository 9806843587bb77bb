package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/p-n-ai/pai-study/internal/courses"
	"github.com/p-n-ai/pai-study/internal/platform/config"
	"github.com/p-n-ai/pai-study/internal/store"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LogConfig
		wantJSON  bool
		wantDebug bool
	}{
		{"json info", config.LogConfig{Level: "info", Format: "json"}, true, false},
		{"text debug", config.LogConfig{Level: "debug", Format: "text"}, false, true},
		{"unknown level falls back to info", config.LogConfig{Level: "loud", Format: "json"}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(tt.cfg, &buf)

			if got := logger.Enabled(context.Background(), slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}

			logger.Info("hello", "course_id", "c1")
			line := strings.TrimSpace(buf.String())
			isJSON := json.Valid([]byte(line))
			if isJSON != tt.wantJSON {
				t.Errorf("output %q JSON = %v, want %v", line, isJSON, tt.wantJSON)
			}
			if !strings.Contains(line, "c1") {
				t.Errorf("output %q missing attribute", line)
			}
		})
	}
}

func TestNewBackend(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{config.DriverMemory, "*store.MemoryBackend"},
		{config.DriverSQLite, "*store.SQLiteBackend"},
		{config.DriverPostgres, "*store.PostgresBackend"},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			cfg := &config.Config{Store: config.StoreConfig{Driver: tt.driver, Path: ":memory:"}}
			if got := fmt.Sprintf("%T", newBackend(cfg)); got != tt.want {
				t.Errorf("newBackend(%q) = %s, want %s", tt.driver, got, tt.want)
			}
		})
	}
}

func TestSeedLibrary(t *testing.T) {
	catalog := courses.New(courses.Config{Store: store.New(store.NewMemoryBackend())})
	ctx := context.Background()
	if err := catalog.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	// A missing directory is logged, not fatal.
	seedLibrary(ctx, catalog, filepath.Join(t.TempDir(), "absent"))
	if got := len(catalog.Courses()); got != 0 {
		t.Errorf("Courses() = %d, want 0", got)
	}
}

func TestNewGenerator(t *testing.T) {
	ctx := context.Background()

	if gen := newGenerator(ctx, config.AIConfig{}); gen != nil {
		t.Error("newGenerator() without backends = non-nil")
	}

	var model string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.WriteHeader(http.StatusOK)
			return
		}
		var req struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		model = req.Model
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Q: 2+2?\nA: 4"}}]}`))
	}))
	defer server.Close()

	gen := newGenerator(ctx, config.AIConfig{
		Model:  "qwen2.5:7b",
		Ollama: config.OllamaConfig{Enabled: true, URL: server.URL},
	})
	if gen == nil {
		t.Fatal("newGenerator() with ollama enabled = nil")
	}
	raw, err := gen.Generate(ctx, "notes")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if raw != "Q: 2+2?\nA: 4" {
		t.Errorf("Generate() = %q", raw)
	}
	if model != "qwen2.5:7b" {
		t.Errorf("model = %q, want qwen2.5:7b", model)
	}
}
