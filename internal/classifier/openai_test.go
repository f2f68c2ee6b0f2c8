package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newOpenAITestServer(t *testing.T, handler http.HandlerFunc) *OpenAICompleter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAICompleter(OpenAIConfig{
		APIKey:    "test-key",
		BaseURL:   srv.URL + "/v1/",
		Model:     "gpt-4o-mini",
		MaxTokens: 200,
		Timeout:   5 * time.Second,
	}, zap.NewNop())
}

func TestOpenAICompleter_Complete(t *testing.T) {
	var gotRequest struct {
		Model          string `json:"model"`
		ResponseFormat *struct {
			Type string `json:"type"`
		} `json:"response_format"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	c := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "  {\"category\":\"general\"}  "}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	})

	got, err := c.Complete(context.Background(), "classify this", true)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != `{"category":"general"}` {
		t.Errorf("Complete = %q", got)
	}
	if gotRequest.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", gotRequest.Model)
	}
	if gotRequest.ResponseFormat == nil || gotRequest.ResponseFormat.Type != "json_object" {
		t.Errorf("response_format = %+v, want json_object", gotRequest.ResponseFormat)
	}
	if len(gotRequest.Messages) != 1 || gotRequest.Messages[0].Content != "classify this" {
		t.Errorf("messages = %+v", gotRequest.Messages)
	}
}

func TestOpenAICompleter_PlainText(t *testing.T) {
	var sawFormat bool
	c := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, sawFormat = body["response_format"]
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"notes"}}]}`))
	})

	got, err := c.Complete(context.Background(), "extract", false)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "notes" {
		t.Errorf("Complete = %q", got)
	}
	if sawFormat {
		t.Error("plain text completion should not set response_format")
	}
}

func TestOpenAICompleter_Errors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		c := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
		})
		if _, err := c.Complete(context.Background(), "x", true); err == nil {
			t.Fatal("expected error for 500 response")
		}
	})

	t.Run("no choices", func(t *testing.T) {
		c := newOpenAITestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"choices":[]}`))
		})
		if _, err := c.Complete(context.Background(), "x", true); err == nil {
			t.Fatal("expected error for empty choices")
		}
	})
}
