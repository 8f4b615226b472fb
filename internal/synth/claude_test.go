// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pdiddy/drizzle/pkg/types"
)

func testAIConfig() types.AIConfig {
	return types.AIConfig{
		Model:       "claude-sonnet-4-5",
		APIKey:      "test-key",
		Temperature: 0.2,
		MaxTokens:   256,
	}
}

func claudeTestServer(t *testing.T, handler http.HandlerFunc) func() {
	t.Helper()
	srv := httptest.NewServer(handler)
	orig := claudeAPIURL
	claudeAPIURL = srv.URL
	return func() {
		claudeAPIURL = orig
		srv.Close()
	}
}

func TestClaudeGenerate(t *testing.T) {
	var gotReq claudeRequest
	cleanup := claudeTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("missing anthropic-version header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(claudeResponse{
			Content: []claudeContent{{Type: "text", Text: "return a + b"}},
		})
	})
	defer cleanup()

	backend := NewClaudeBackend(testAIConfig())
	out, err := backend.Generate(context.Background(), Request{
		System: "synthesize",
		Prompt: "Implement add",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "return a + b" {
		t.Errorf("out = %q", out)
	}
	if gotReq.System != "synthesize" {
		t.Errorf("request system = %q", gotReq.System)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Content != "Implement add" {
		t.Errorf("request messages = %+v", gotReq.Messages)
	}
	if gotReq.Temperature != 0.2 {
		t.Errorf("request temperature = %v", gotReq.Temperature)
	}
}

func TestClaudeGenerateConcatenatesTextBlocks(t *testing.T) {
	cleanup := claudeTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(claudeResponse{
			Content: []claudeContent{
				{Type: "text", Text: "sum := a + b\n"},
				{Type: "tool_use", Text: "ignored"},
				{Type: "text", Text: "return sum"},
			},
		})
	})
	defer cleanup()

	backend := NewClaudeBackend(testAIConfig())
	out, err := backend.Generate(context.Background(), Request{Prompt: "p"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "sum := a + b\nreturn sum" {
		t.Errorf("out = %q", out)
	}
}

func TestClaudeGenerateRetriesOn429(t *testing.T) {
	calls := 0
	cleanup := claudeTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(claudeResponse{
			Content: []claudeContent{{Type: "text", Text: "return 0"}},
		})
	})
	defer cleanup()

	backend := NewClaudeBackend(testAIConfig())
	out, err := backend.Generate(context.Background(), Request{Prompt: "p"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "return 0" {
		t.Errorf("out = %q", out)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestClaudeGenerateSurfacesAPIError(t *testing.T) {
	cleanup := claudeTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	})
	defer cleanup()

	backend := NewClaudeBackend(testAIConfig())
	_, err := backend.Generate(context.Background(), Request{Prompt: "p"})
	if err == nil {
		t.Fatal("expected error for 503")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error = %v, want status in message", err)
	}
}

func TestNewBackendSelection(t *testing.T) {
	ctx := context.Background()

	b, err := NewBackend(ctx, types.AIConfig{Model: "claude-sonnet-4-5", APIKey: "k"})
	if err != nil {
		t.Fatalf("claude: %v", err)
	}
	if _, ok := b.(*ClaudeBackend); !ok {
		t.Errorf("backend = %T, want *ClaudeBackend", b)
	}

	if _, err := NewBackend(ctx, types.AIConfig{Model: "gpt-5", APIKey: "k"}); err == nil {
		t.Error("expected ConfigurationFault for unsupported model")
	}

	_, err = NewBackend(ctx, types.AIConfig{Model: "gemini-3-flash-preview"})
	var cf *types.ConfigurationFault
	if !errors.As(err, &cf) {
		t.Errorf("missing key error = %T (%v), want *types.ConfigurationFault", err, err)
	}
}
