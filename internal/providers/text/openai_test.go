package text

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"server/internal/domain"
)

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		var req openAIChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[1].Content != "write an ad" {
			t.Errorf("messages = %+v", req.Messages)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "  Fresh summer deals!  "}},
			},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
		})
	}))
	defer srv.Close()

	gen, err := NewOpenAIGenerator(OpenAIOptions{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewOpenAIGenerator: %v", err)
	}

	res, err := gen.Generate(context.Background(), Request{Prompt: "write an ad", Model: "gpt-3.5-turbo"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Text != "Fresh summer deals!" {
		t.Fatalf("text = %q", res.Text)
	}
	if res.Usage.PromptTokens != 10 || res.Usage.CompletionTokens != 20 {
		t.Fatalf("usage = %+v", res.Usage)
	}
}

func TestOpenAIGenerateUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	gen, err := NewOpenAIGenerator(OpenAIOptions{APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewOpenAIGenerator: %v", err)
	}

	_, err = gen.Generate(context.Background(), Request{Prompt: "x"})
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("got %v, want provider failure", err)
	}
	var pe *domain.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("error %T is not a ProviderError", err)
	}
}

func TestOpenAIGenerateEmptyCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []map[string]any{}})
	}))
	defer srv.Close()

	gen, _ := NewOpenAIGenerator(OpenAIOptions{APIKey: "k", BaseURL: srv.URL})
	if _, err := gen.Generate(context.Background(), Request{Prompt: "x"}); !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("got %v, want provider failure", err)
	}
}

func TestNewOpenAIGeneratorRequiresKey(t *testing.T) {
	if _, err := NewOpenAIGenerator(OpenAIOptions{}); err == nil {
		t.Fatal("missing key accepted")
	}
}
