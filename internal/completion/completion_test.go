package completion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
)

func TestOpenAIComplete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("Unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Bad request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Overall Band Score (Band 6.5)"}}]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAI(OpenAIOptions{BaseURL: srv.URL + "/v1/", APIKey: "secret", Model: "qwen3-8b", Temperature: 0.2})
	if err != nil {
		t.Fatal("Failed to create client:", err)
	}
	text, err := c.Complete(context.Background(), "grade this")
	if err != nil {
		t.Fatal("Failed to complete:", err)
	}
	if text != "Overall Band Score (Band 6.5)" {
		t.Fatalf("Unexpected completion %q", text)
	}
	if got.Model != "qwen3-8b" || len(got.Messages) != 1 || got.Messages[0].Content != "grade this" {
		t.Fatalf("Unexpected request %+v", got)
	}
}

func TestOpenAIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
	}))
	defer srv.Close()

	c, _ := NewOpenAI(OpenAIOptions{BaseURL: srv.URL, Model: "m"})
	_, err := c.Complete(context.Background(), "p")
	if err == nil {
		t.Fatal("Expected error on 429")
	}
}

func TestOpenAIEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c, _ := NewOpenAI(OpenAIOptions{BaseURL: srv.URL, Model: "m"})
	_, err := c.Complete(context.Background(), "p")
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("Expected ErrEmptyResponse, got %v", err)
	}
}

type blockingCompleter struct{}

func (blockingCompleter) Name() string  { return "blocking" }
func (blockingCompleter) Model() string { return "none" }
func (blockingCompleter) Close() error  { return nil }
func (blockingCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestWithTimeout(t *testing.T) {
	c := WithTimeout(blockingCompleter{}, 20*time.Millisecond)

	start := time.Now()
	_, err := c.Complete(context.Background(), "p")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("Timeout was not applied")
	}

	if _, ok := WithTimeout(blockingCompleter{}, 0).(blockingCompleter); !ok {
		t.Fatal("Zero timeout must return the completer unchanged")
	}
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: nil},
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("Overall "), genai.Text("Band Score (Band 7.0)")}}},
		},
	}
	if got := responseText(resp); got != "Overall Band Score (Band 7.0)" {
		t.Fatalf("Unexpected text %q", got)
	}
	if got := responseText(nil); got != "" {
		t.Fatalf("Expected empty text, got %q", got)
	}
}
