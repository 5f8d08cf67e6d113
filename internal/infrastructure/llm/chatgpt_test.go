package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"ResearchPosts/internal/config"
)

func newTestClient(url string) *ChatGPTClient {
	return NewChatGPTClient(config.ChatGPTConfig{
		Endpoint: url,
		Model:    "gpt-test",
		APIKey:   "sk-test",
	})
}

func TestSummarizeAndTag(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		requests []chatRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		requests = append(requests, req)
		mu.Unlock()

		reply := "A concise summary."
		if req.MaxTokens == tagMaxTokens {
			reply = `RAG, "Evaluation", LLMOps, Extra`
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": "  " + reply + "\n"}}},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	ctx := context.Background()

	summary, err := client.Summarize(ctx, "We propose a new RAG method")
	if err != nil {
		t.Fatalf("Summarize error: %v", err)
	}
	if summary != "A concise summary." {
		t.Fatalf("unexpected summary: %q", summary)
	}

	tags, err := client.Tag(ctx, summary)
	if err != nil {
		t.Fatalf("Tag error: %v", err)
	}
	if !slices.Equal(tags, []string{"RAG", "Evaluation", "LLMOps"}) {
		t.Fatalf("unexpected tags: %v", tags)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(requests))
	}
	if requests[0].Temperature != summaryTemperature || !strings.Contains(requests[0].Messages[1].Content, "We propose a new RAG method") {
		t.Fatalf("unexpected summary request: %+v", requests[0])
	}
	if requests[1].Temperature != tagTemperature || requests[1].Model != "gpt-test" {
		t.Fatalf("unexpected tag request: %+v", requests[1])
	}
}

func TestSummarizeErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Summarize(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestSummarizeNoChoices(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).Summarize(context.Background(), "x"); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}

func TestMisconfiguredClient(t *testing.T) {
	t.Parallel()

	client := NewChatGPTClient(config.ChatGPTConfig{Endpoint: "http://localhost"})
	if _, err := client.Summarize(context.Background(), "x"); err == nil {
		t.Fatalf("expected misconfiguration error")
	}
}

func TestParseTags(t *testing.T) {
	t.Parallel()

	if got := parseTags(" , RAG ,'Agents'. "); !slices.Equal(got, []string{"RAG", "Agents"}) {
		t.Fatalf("unexpected tags: %v", got)
	}
}
