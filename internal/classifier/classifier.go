// Package classifier decides whether a scraped post discusses research content.
package classifier

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"

	"ResearchPosts/internal/domain"
)

// ErrInvalidPattern is returned when a configured indicator pattern does not compile.
var ErrInvalidPattern = errors.New("invalid research pattern")

// DefaultKeywords is the keyword list used when configuration provides none.
var DefaultKeywords = []string{
	"research paper", "preprint", "whitepaper", "case study", "technical report",
	"arxiv", "ssrn", "ieee", "springer", "acm", "pubmed", "researchgate", "doi.org",
	"abstract", "introduction", "methodology", "experimental results",
	"systematic review", "empirical study", "we propose", "this paper", "findings",
}

// indicatorPatterns are always checked, regardless of configuration.
var indicatorPatterns = []string{
	`research\s*paper`,
	`preprint`,
	`peer-reviewed`,
	`methodology`,
	`empirical\s*study`,
	`systematic\s*review`,
	`we\s+propose`,
	`this\s+paper`,
	`experimental\s+results`,
	`findings`,
	`abstract:`,
	`doi:`,
}

var defaultIndicators = mustCompile(indicatorPatterns)

type indicator struct {
	name string
	expr *regexp.Regexp
}

// Classifier matches post text against a keyword dictionary and research indicator patterns.
// It holds no mutable state after construction and is safe for concurrent use.
type Classifier struct {
	keywords []string
	matcher  *ahocorasick.Matcher
	patterns []indicator
}

// New builds a classifier. Keywords are matched as case-insensitive substrings;
// extraPatterns are appended to the built-in indicators as case-insensitive regexes.
func New(keywords, extraPatterns []string) (*Classifier, error) {
	c := withKeywords(keywords)

	for _, raw := range extraPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		expr, err := regexp.Compile("(?i)" + raw)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, raw, err)
		}
		c.patterns = append(c.patterns, indicator{name: raw, expr: expr})
	}

	return c, nil
}

// withKeywords builds a classifier with the built-in indicators only. It cannot fail.
func withKeywords(keywords []string) *Classifier {
	c := &Classifier{
		keywords: normalizeKeywords(keywords),
		patterns: append([]indicator(nil), defaultIndicators...),
	}
	if len(c.keywords) > 0 {
		c.matcher = ahocorasick.NewStringMatcher(c.keywords)
	}
	return c
}

// Classify runs the default indicators plus the given keywords over text.
func Classify(text string, keywords []string) domain.ClassificationResult {
	return withKeywords(keywords).Classify(text)
}

// Patterns returns the names of every indicator pattern, built-in first.
func (c *Classifier) Patterns() []string {
	names := make([]string, 0, len(c.patterns))
	for _, p := range c.patterns {
		names = append(names, p.name)
	}
	return names
}

// Classify reports the keywords and patterns found in text. Relevance is their logical OR.
func (c *Classifier) Classify(text string) domain.ClassificationResult {
	if strings.TrimSpace(text) == "" {
		return domain.ClassificationResult{}
	}

	lowered := strings.ToLower(text)

	var keywords []string
	if c.matcher != nil {
		hit := make(map[int]bool)
		for _, idx := range c.matcher.MatchThreadSafe([]byte(lowered)) {
			if idx < len(c.keywords) && !hit[idx] {
				hit[idx] = true
				keywords = append(keywords, c.keywords[idx])
			}
		}
		sort.Strings(keywords)
	}

	var patterns []string
	for _, p := range c.patterns {
		if p.expr.MatchString(lowered) {
			patterns = append(patterns, p.name)
		}
	}

	return domain.ClassificationResult{
		IsRelevant:      len(keywords) > 0 || len(patterns) > 0,
		MatchedKeywords: keywords,
		MatchedPatterns: patterns,
	}
}

// Keywords returns the normalized keyword dictionary.
func (c *Classifier) Keywords() []string {
	return append([]string(nil), c.keywords...)
}

func normalizeKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

func mustCompile(sources []string) []indicator {
	out := make([]indicator, 0, len(sources))
	for _, src := range sources {
		out = append(out, indicator{name: src, expr: regexp.MustCompile("(?i)" + src)})
	}
	return out
}
