package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"ResearchPosts/internal/domain"
	"ResearchPosts/internal/scanner"
)

// rawPost mirrors the scraper export. Fields are decoded lazily so a malformed value
// degrades to its zero value instead of failing the whole batch.
type rawPost struct {
	Content       json.RawMessage `json:"content"`
	Text          json.RawMessage `json:"text"`
	Links         json.RawMessage `json:"links"`
	ResearchLinks json.RawMessage `json:"researchLinks"`
	URL           json.RawMessage `json:"url"`
	Permalink     json.RawMessage `json:"permalink"`
	Timestamp     json.RawMessage `json:"timestamp"`
}

// JSONScanner reads the JSON array written by the browser scraper.
type JSONScanner struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewJSONScanner wires a logger; a nil logger disables debug output.
func NewJSONScanner(log *slog.Logger) *JSONScanner {
	return &JSONScanner{logger: log, now: time.Now}
}

// Name identifies the strategy inside the registry.
func (j *JSONScanner) Name() string {
	return "json"
}

// Scan decodes the file at req.Path.
func (j *JSONScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.PostRecord, error) {
	if req.Path == "" {
		return nil, fmt.Errorf("no path provided for source %s", req.SourceName)
	}

	raw, err := os.ReadFile(req.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", req.Path, err)
	}

	return j.Decode(raw)
}

// Decode parses a scraper export held in memory.
func (j *JSONScanner) Decode(raw []byte) ([]domain.PostRecord, error) {
	var items []rawPost
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}

	scannedAt := j.now().UTC()
	posts := make([]domain.PostRecord, 0, len(items))
	for i, item := range items {
		text, ok := stringField(item.Content)
		if !ok {
			text, ok = stringField(item.Text)
		}
		if !ok && j.logger != nil {
			j.logger.Debug("post has no text, treating as empty", "index", i)
		}

		permalink, _ := stringField(item.Permalink)
		if permalink == "" {
			permalink, _ = stringField(item.URL)
		}

		posts = append(posts, domain.PostRecord{
			Text:      text,
			Links:     uniqueLinks(stringList(item.Links), stringList(item.ResearchLinks)),
			Permalink: strings.TrimSpace(permalink),
			Timestamp: timestampField(item.Timestamp, scannedAt),
		})
	}

	return posts, nil
}

// stringField decodes a JSON string. Missing fields, null and non-string values report false.
func stringField(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := stringField(item); ok {
			out = append(out, s)
		}
	}
	return out
}

func timestampField(raw json.RawMessage, fallback time.Time) time.Time {
	s, ok := stringField(raw)
	if !ok || s == "" {
		return fallback
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fallback
	}
	return parsed.UTC()
}

// uniqueLinks concatenates the lists, dropping blanks and repeats while keeping discovery order.
func uniqueLinks(lists ...[]string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, list := range lists {
		for _, link := range list {
			link = strings.TrimSpace(link)
			if link == "" {
				continue
			}
			if _, ok := seen[link]; ok {
				continue
			}
			seen[link] = struct{}{}
			out = append(out, link)
		}
	}
	return out
}
