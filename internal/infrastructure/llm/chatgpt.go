package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ResearchPosts/internal/config"
	"ResearchPosts/internal/ports"
)

const (
	summaryTemperature = 0.3
	summaryMaxTokens   = 400
	tagTemperature     = 0
	tagMaxTokens       = 30
	maxTags            = 3
)

// ChatGPTClient implements ports.Summarizer and ports.Tagger backed by OpenAI-compatible APIs.
type ChatGPTClient struct {
	endpoint      string
	model         string
	apiKey        string
	summaryPrompt string
	tagPrompt     string
	httpClient    *http.Client
}

var _ ports.Summarizer = (*ChatGPTClient)(nil)
var _ ports.Tagger = (*ChatGPTClient)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(cfg config.ChatGPTConfig) *ChatGPTClient {
	return &ChatGPTClient{
		endpoint:      cfg.Endpoint,
		model:         cfg.Model,
		apiKey:        cfg.APIKey,
		summaryPrompt: cfg.SummaryPrompt,
		tagPrompt:     cfg.TagPrompt,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Summarize asks for a single-paragraph summary of a post.
func (c *ChatGPTClient) Summarize(ctx context.Context, text string) (string, error) {
	user := fmt.Sprintf("Here is the LinkedIn post:\n\n%s\n\nPlease summarize it in a single paragraph of 4-6 well-written sentences.", text)
	return c.complete(ctx, safePrompt(c.summaryPrompt, "You summarize research-related social posts."), user, summaryTemperature, summaryMaxTokens)
}

// Tag asks for 1-3 short tags describing a summary.
func (c *ChatGPTClient) Tag(ctx context.Context, summary string) ([]string, error) {
	user := fmt.Sprintf("Please tag this summary:\n\n%q", summary)
	reply, err := c.complete(ctx, safePrompt(c.tagPrompt, "Return 1-3 short comma-separated tags."), user, tagTemperature, tagMaxTokens)
	if err != nil {
		return nil, err
	}
	return parseTags(reply), nil
}

func (c *ChatGPTClient) complete(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	if c == nil {
		return "", fmt.Errorf("chatgpt client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("chatgpt client misconfigured")
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("chatgpt error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("chatgpt returned no choices")
	}

	return strings.TrimSpace(decoded.Choices[0].Message.Content), nil
}

func parseTags(reply string) []string {
	var tags []string
	for _, part := range strings.Split(reply, ",") {
		tag := strings.Trim(strings.TrimSpace(part), `"'.`)
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}

func safePrompt(prompt, fallback string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return fallback
	}
	return prompt
}
