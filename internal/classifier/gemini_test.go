package classifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newGeminiTestServer(t *testing.T, handler http.HandlerFunc) *GeminiCompleter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewGeminiCompleter(context.Background(), GeminiConfig{
		APIKey:      "test-key",
		BaseURL:     srv.URL + "/",
		Model:       "gemini-1.5-flash",
		Temperature: 0.3,
		Timeout:     5 * time.Second,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewGeminiCompleter: %v", err)
	}
	return c
}

func TestGeminiCompleter_Complete(t *testing.T) {
	var gotRequest struct {
		Contents []struct {
			Role  string `json:"role"`
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
		GenerationConfig struct {
			ResponseMIMEType string `json:"responseMimeType"`
		} `json:"generationConfig"`
	}

	c := newGeminiTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-1.5-flash:generateContent") {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("x-goog-api-key = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotRequest); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"candidates": [{
				"content": {"role": "model", "parts": [{"text": " {\"category\":"}, {"text": "\"general\"} "}]},
				"finishReason": "STOP"
			}]
		}`))
	})

	got, err := c.Complete(context.Background(), "classify this", true)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != `{"category":"general"}` {
		t.Errorf("Complete = %q, want the joined parts trimmed", got)
	}
	if len(gotRequest.Contents) != 1 || len(gotRequest.Contents[0].Parts) != 1 ||
		gotRequest.Contents[0].Parts[0].Text != "classify this" {
		t.Errorf("request contents = %+v, want the prompt as a single user part", gotRequest.Contents)
	}
	if gotRequest.GenerationConfig.ResponseMIMEType != "application/json" {
		t.Errorf("responseMimeType = %q, want application/json", gotRequest.GenerationConfig.ResponseMIMEType)
	}
}

func TestGeminiCompleter_NoCandidates(t *testing.T) {
	c := newGeminiTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates": []}`))
	})

	if _, err := c.Complete(context.Background(), "prompt", false); err == nil {
		t.Fatal("expected an error when the response has no candidates")
	}
}

func TestGeminiCompleter_ServerError(t *testing.T) {
	c := newGeminiTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"code": 500, "message": "boom", "status": "INTERNAL"}}`))
	})

	if _, err := c.Complete(context.Background(), "prompt", false); err == nil {
		t.Fatal("expected an error for a 500 response")
	}
}
