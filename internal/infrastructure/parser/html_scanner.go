package parser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ResearchPosts/internal/domain"
	"ResearchPosts/internal/scanner"
)

const (
	linkedInBaseURL = "https://www.linkedin.com"
	activityURN     = "urn:li:activity:"

	defaultPostSelector      = `div[data-urn^="urn:li:activity:"], div[data-urn^="urn:li:share:"], div.feed-shared-update-v2`
	defaultTextSelector      = `.feed-shared-update-v2__description .update-components-text, .update-components-text.break-words`
	defaultPermalinkSelector = `a[href*="urn:li:activity:"]`
)

// HTMLScanner extracts posts from a saved profile activity page or a live page URL.
type HTMLScanner struct {
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewHTMLScanner wires an HTTP client used when the source path is a URL.
func NewHTMLScanner(client *http.Client, log *slog.Logger) *HTMLScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTMLScanner{client: client, logger: log, now: time.Now}
}

// Name identifies the strategy inside the registry.
func (h *HTMLScanner) Name() string {
	return "html"
}

// Scan loads the document and returns one record per post container.
// Options: postSelector, textSelector, permalinkSelector, baseURL.
func (h *HTMLScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.PostRecord, error) {
	if req.Path == "" {
		return nil, fmt.Errorf("no path provided for source %s", req.SourceName)
	}

	doc, err := h.loadDocument(ctx, req.Path)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", req.SourceName, err)
	}

	return h.extractPosts(doc, req.Options), nil
}

func (h *HTMLScanner) loadDocument(ctx context.Context, location string) (*goquery.Document, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return h.fetchDocument(ctx, location)
	}

	f, err := os.Open(location)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	return parseDocument(f)
}

func (h *HTMLScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "ResearchPosts/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned %s", resp.Status)
	}

	return parseDocument(resp.Body)
}

func parseDocument(r io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func (h *HTMLScanner) extractPosts(doc *goquery.Document, options map[string]string) []domain.PostRecord {
	postSel := option(options, "postSelector", defaultPostSelector)
	textSel := option(options, "textSelector", defaultTextSelector)
	permalinkSel := option(options, "permalinkSelector", defaultPermalinkSelector)
	base, err := url.Parse(option(options, "baseURL", linkedInBaseURL))
	if err != nil {
		base, _ = url.Parse(linkedInBaseURL)
	}

	scannedAt := h.now().UTC()
	var posts []domain.PostRecord

	doc.Find(postSel).Each(func(_ int, post *goquery.Selection) {
		// Nested containers match the same selector; keep only the outermost one.
		if post.ParentsFiltered(postSel).Length() > 0 {
			return
		}

		posts = append(posts, domain.PostRecord{
			Text:      postText(post, textSel),
			Links:     postLinks(post, base),
			Permalink: postPermalink(post, permalinkSel, base),
			Timestamp: scannedAt,
		})
	})

	if h.logger != nil {
		h.logger.Debug("html posts extracted", "count", len(posts), "selector", postSel)
	}

	return posts
}

func postText(post *goquery.Selection, textSel string) string {
	text := strings.TrimSpace(post.Find(textSel).First().Text())
	if text == "" {
		text = strings.TrimSpace(post.Text())
	}
	return text
}

// postLinks returns external links in document order. Links back into the base site
// (profiles, hashtags, the post itself) are navigation, not content.
func postLinks(post *goquery.Selection, base *url.URL) []string {
	var links []string
	post.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs := absolute(base, href)
		if abs == nil || (abs.Scheme != "http" && abs.Scheme != "https") {
			return
		}
		if sameSite(abs, base) {
			return
		}
		links = append(links, abs.String())
	})
	return uniqueLinks(links)
}

func postPermalink(post *goquery.Selection, permalinkSel string, base *url.URL) string {
	var permalink string
	post.Find(permalinkSel).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !strings.Contains(href, activityURN) {
			return true
		}
		if abs := absolute(base, href); abs != nil {
			permalink = abs.String()
			return false
		}
		return true
	})
	if permalink != "" {
		return permalink
	}

	if urn, ok := post.Attr("data-urn"); ok && strings.HasPrefix(urn, activityURN) {
		return strings.TrimSuffix(base.String(), "/") + "/feed/update/" + urn + "/"
	}
	return ""
}

func absolute(base *url.URL, href string) *url.URL {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return nil
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil
	}
	return base.ResolveReference(ref)
}

func sameSite(u, base *url.URL) bool {
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	baseHost := strings.TrimPrefix(strings.ToLower(base.Hostname()), "www.")
	return host == baseHost
}

func option(options map[string]string, key, fallback string) string {
	if v := strings.TrimSpace(options[key]); v != "" {
		return v
	}
	return fallback
}
