package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"ResearchPosts/internal/dedup"
	"ResearchPosts/internal/domain"
	"ResearchPosts/internal/ports"
	"ResearchPosts/internal/resolver"
)

// postDocument is the persisted shape of one retained post.
type postDocument struct {
	Key             string   `json:"key"`
	Content         string   `json:"content"`
	URL             string   `json:"url,omitempty"`
	Links           []string `json:"links"`
	ResearchLinks   []string `json:"researchLinks"`
	SourceType      string   `json:"sourceType,omitempty"`
	PaperSource     string   `json:"paperSource"`
	MatchedKeywords []string `json:"matchedKeywords,omitempty"`
	MatchedPatterns []string `json:"matchedPatterns,omitempty"`
	Timestamp       string   `json:"timestamp"`
}

// summaryDocument extends postDocument with the summarizer output.
type summaryDocument struct {
	postDocument
	Summary      string   `json:"summary"`
	Tags         []string `json:"tags"`
	SummarizedAt string   `json:"summarizedAt,omitempty"`
}

// JSONFileStore persists the merged result set as one JSON array.
type JSONFileStore struct {
	path string
}

var _ ports.ResultStore = (*JSONFileStore)(nil)

// NewJSONFileStore targets the file at path.
func NewJSONFileStore(path string) *JSONFileStore {
	return &JSONFileStore{path: path}
}

// Load reads a prior result file into a fresh store. A missing file yields an empty store.
func (s *JSONFileStore) Load(ctx context.Context) (*dedup.Store, error) {
	store := dedup.NewStore()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read results %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return store, nil
	}

	var docs []postDocument
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("decode results %s: %w", s.path, err)
	}

	for _, doc := range docs {
		store.AddEntry(doc.entry())
	}

	return store, nil
}

// Save overwrites the result file with the store content in insertion order.
func (s *JSONFileStore) Save(ctx context.Context, store *dedup.Store) error {
	docs := make([]postDocument, 0, store.Len())
	for entry := range store.Results() {
		docs = append(docs, newPostDocument(entry))
	}
	return writeJSON(s.path, docs)
}

// SummaryFile writes summarized posts, keeping summaries from earlier runs.
type SummaryFile struct {
	path string
}

var _ ports.SummaryWriter = (*SummaryFile)(nil)

// NewSummaryFile targets the file at path.
func NewSummaryFile(path string) *SummaryFile {
	return &SummaryFile{path: path}
}

// WriteSummaries merges posts into the file; a newer summary replaces an older one with the same key.
func (f *SummaryFile) WriteSummaries(ctx context.Context, posts []domain.SummarizedPost) error {
	var existing []summaryDocument
	raw, err := os.ReadFile(f.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read summaries %s: %w", f.path, err)
	case len(bytes.TrimSpace(raw)) > 0:
		if err := json.Unmarshal(raw, &existing); err != nil {
			return fmt.Errorf("decode summaries %s: %w", f.path, err)
		}
	}

	fresh := make(map[string]struct{}, len(posts))
	incoming := make([]summaryDocument, 0, len(posts))
	for _, post := range posts {
		doc := summaryDocument{
			postDocument: newPostDocument(post.Entry),
			Summary:      post.Summary,
			Tags:         post.Tags,
		}
		if !post.SummarizedAt.IsZero() {
			doc.SummarizedAt = post.SummarizedAt.UTC().Format(time.RFC3339)
		}
		fresh[doc.Key] = struct{}{}
		incoming = append(incoming, doc)
	}

	merged := make([]summaryDocument, 0, len(existing)+len(incoming))
	for _, doc := range existing {
		if _, ok := fresh[doc.Key]; !ok {
			merged = append(merged, doc)
		}
	}
	merged = append(merged, incoming...)

	return writeJSON(f.path, merged)
}

func newPostDocument(entry domain.ResultEntry) postDocument {
	doc := postDocument{
		Key:             entry.Key,
		Content:         entry.Record.Text,
		URL:             entry.Record.Permalink,
		Links:           nonNil(entry.Record.Links),
		ResearchLinks:   nonNil(entry.ResearchLinks()),
		PaperSource:     string(entry.PaperSource()),
		MatchedKeywords: entry.Classification.MatchedKeywords,
		MatchedPatterns: entry.Classification.MatchedPatterns,
	}
	if entry.Classification.IsRelevant {
		doc.SourceType = domain.SourceTypeResearch
	}
	if !entry.Record.Timestamp.IsZero() {
		doc.Timestamp = entry.Record.Timestamp.UTC().Format(time.RFC3339)
	}
	return doc
}

func (d postDocument) entry() domain.ResultEntry {
	record := domain.PostRecord{
		Text:      d.Content,
		Links:     d.Links,
		Permalink: d.URL,
	}
	if ts, err := time.Parse(time.RFC3339, d.Timestamp); err == nil {
		record.Timestamp = ts.UTC()
	}

	research := make(map[string]struct{}, len(d.ResearchLinks))
	for _, link := range d.ResearchLinks {
		research[link] = struct{}{}
	}

	links := make([]domain.LinkClassification, 0, len(d.Links))
	for _, link := range d.Links {
		lc := resolver.ResolveDomain(link)
		_, lc.Research = research[link]
		links = append(links, lc)
	}

	return domain.ResultEntry{
		Record: record,
		Classification: domain.ClassificationResult{
			IsRelevant:      d.SourceType == domain.SourceTypeResearch,
			MatchedKeywords: d.MatchedKeywords,
			MatchedPatterns: d.MatchedPatterns,
		},
		Links: links,
	}
}

func writeJSON(path string, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
