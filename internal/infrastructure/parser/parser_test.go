package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ResearchPosts/internal/config"
	"ResearchPosts/internal/scanner"
)

var fixedNow = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func TestJSONScannerDecode(t *testing.T) {
	t.Parallel()

	raw := `[
	  {"content": "We propose a new RAG method", "links": ["https://arxiv.org/abs/2301.00001", " ", "https://arxiv.org/abs/2301.00001"],
	   "researchLinks": ["https://ssrn.com/x"], "timestamp": "2025-05-30T08:15:00Z"},
	  {"text": "fallback text field", "url": "https://www.linkedin.com/feed/update/urn:li:activity:7/"},
	  {"content": 42, "links": [1, "https://example.com"], "timestamp": "yesterday"}
	]`

	sc := NewJSONScanner(nil)
	sc.now = func() time.Time { return fixedNow }

	posts, err := sc.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(posts))
	}

	if !slices.Equal(posts[0].Links, []string{"https://arxiv.org/abs/2301.00001", "https://ssrn.com/x"}) {
		t.Fatalf("unexpected links: %v", posts[0].Links)
	}
	if !posts[0].Timestamp.Equal(time.Date(2025, time.May, 30, 8, 15, 0, 0, time.UTC)) {
		t.Fatalf("unexpected timestamp: %v", posts[0].Timestamp)
	}

	if posts[1].Text != "fallback text field" || posts[1].Permalink != "https://www.linkedin.com/feed/update/urn:li:activity:7/" {
		t.Fatalf("unexpected second post: %+v", posts[1])
	}

	if posts[2].Text != "" {
		t.Fatalf("non-string content should become empty, got %q", posts[2].Text)
	}
	if !slices.Equal(posts[2].Links, []string{"https://example.com"}) {
		t.Fatalf("unexpected links: %v", posts[2].Links)
	}
	if !posts[2].Timestamp.Equal(fixedNow) {
		t.Fatalf("expected fallback timestamp, got %v", posts[2].Timestamp)
	}
}

func TestJSONScannerNullContentFallsBackToText(t *testing.T) {
	t.Parallel()

	posts, err := NewJSONScanner(nil).Decode([]byte(`[
	  {"content": null, "text": "We propose a retrieval benchmark", "url": null, "permalink": "https://x/1"},
	  {"content": null}
	]`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}
	if posts[0].Text != "We propose a retrieval benchmark" || posts[0].Permalink != "https://x/1" {
		t.Fatalf("null content should fall back to text, got %+v", posts[0])
	}
	if posts[1].Text != "" {
		t.Fatalf("expected empty text, got %q", posts[1].Text)
	}
}

func TestJSONScannerRejectsNonArray(t *testing.T) {
	t.Parallel()

	if _, err := NewJSONScanner(nil).Decode([]byte(`{"content": "x"}`)); err == nil {
		t.Fatalf("expected error for non-array input")
	}
}

const profileHTML = `
<main><section><ul>
  <li>
    <div data-urn="urn:li:activity:111" class="feed-shared-update-v2">
      <div class="feed-shared-update-v2__description">
        <span class="update-components-text">New preprint on RAG evaluation</span>
      </div>
      <a href="/in/someone/">Someone</a>
      <a href="https://lnkd.in/abc">lnkd.in/abc</a>
      <a href="https://arxiv.org/abs/2401.00002">paper</a>
      <a href="https://arxiv.org/abs/2401.00002">paper again</a>
      <a href="mailto:x@example.com">mail</a>
      <a href="/feed/update/urn:li:activity:111/">3d</a>
    </div>
  </li>
  <li>
    <div data-urn="urn:li:activity:222" class="feed-shared-update-v2">
      <p>Plain post without text container</p>
    </div>
  </li>
</ul></section></main>`

func TestHTMLScannerExtractPosts(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(profileHTML))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	sc := NewHTMLScanner(nil, nil)
	sc.now = func() time.Time { return fixedNow }

	posts := sc.extractPosts(doc, nil)
	if len(posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(posts))
	}

	first := posts[0]
	if first.Text != "New preprint on RAG evaluation" {
		t.Fatalf("unexpected text: %q", first.Text)
	}
	if !slices.Equal(first.Links, []string{"https://lnkd.in/abc", "https://arxiv.org/abs/2401.00002"}) {
		t.Fatalf("unexpected links: %v", first.Links)
	}
	if first.Permalink != "https://www.linkedin.com/feed/update/urn:li:activity:111/" {
		t.Fatalf("unexpected permalink: %s", first.Permalink)
	}
	if !first.Timestamp.Equal(fixedNow) {
		t.Fatalf("unexpected timestamp: %v", first.Timestamp)
	}

	second := posts[1]
	if second.Text != "Plain post without text container" {
		t.Fatalf("unexpected text: %q", second.Text)
	}
	if second.Permalink != "https://www.linkedin.com/feed/update/urn:li:activity:222/" {
		t.Fatalf("expected permalink from data-urn, got %s", second.Permalink)
	}
	if len(second.Links) != 0 {
		t.Fatalf("expected no links, got %v", second.Links)
	}
}

func TestHTMLScannerFetchesURL(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<div class="post"><p>We propose X</p><a href="https://ssrn.com/1">s</a></div>`))
	}))
	defer server.Close()

	sc := NewHTMLScanner(server.Client(), nil)
	posts, err := sc.Scan(context.Background(), scanner.Request{
		SourceName: "live",
		Path:       server.URL,
		Options:    map[string]string{"postSelector": "div.post"},
	})
	if err != nil {
		t.Fatalf("Scan error: %v", err)
	}
	if len(posts) != 1 || !slices.Equal(posts[0].Links, []string{"https://ssrn.com/1"}) {
		t.Fatalf("unexpected posts: %+v", posts)
	}
}

func TestStrategySourceFetchBatches(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "posts.json")
	if err := os.WriteFile(jsonPath, []byte(`[{"content": "a preprint"}]`), 0o600); err != nil {
		t.Fatalf("write json: %v", err)
	}
	htmlPath := filepath.Join(dir, "profile.html")
	if err := os.WriteFile(htmlPath, []byte(profileHTML), 0o600); err != nil {
		t.Fatalf("write html: %v", err)
	}

	reg := scanner.NewRegistry()
	reg.Register(NewJSONScanner(nil))
	reg.Register(NewHTMLScanner(nil, nil))

	src := NewStrategySource(reg, []config.SourceConfig{
		{Name: "export", Kind: config.SourceKindJSON, Path: jsonPath},
		{Name: "missing", Kind: config.SourceKindJSON, Path: filepath.Join(dir, "nope.json")},
		{Name: "profile", Kind: config.SourceKindHTML, Path: htmlPath},
	}, nil)

	batches, err := src.FetchBatches(context.Background())
	if err != nil {
		t.Fatalf("FetchBatches error: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if batches[0].Source != "export" || len(batches[0].Posts) != 1 {
		t.Fatalf("unexpected first batch: %+v", batches[0])
	}
	if batches[1].Source != "profile" || len(batches[1].Posts) != 2 {
		t.Fatalf("unexpected second batch: %+v", batches[1])
	}
}

func TestStrategySourceUnknownKind(t *testing.T) {
	t.Parallel()

	src := NewStrategySource(scanner.NewRegistry(), []config.SourceConfig{{Name: "x", Kind: "rss"}}, nil)
	if _, err := src.FetchBatches(context.Background()); err == nil {
		t.Fatalf("expected error for unregistered kind")
	}
}
