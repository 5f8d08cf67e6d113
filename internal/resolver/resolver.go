// Package resolver classifies links found in posts into publisher categories.
package resolver

import (
	"net/url"
	"path"
	"strings"

	"ResearchPosts/internal/domain"
)

// domainTable is checked in order; the first matching substring wins.
var domainTable = []struct {
	substr string
	source domain.SourceDomain
}{
	{substr: "arxiv.org", source: domain.SourceArXiv},
	{substr: "ssrn.com", source: domain.SourceSSRN},
	{substr: "ieeexplore", source: domain.SourceIEEE},
	{substr: "springer", source: domain.SourceSpringer},
}

// DefaultResearchDomains are hosts that carry research material but have no category of their own.
var DefaultResearchDomains = []string{
	"researchgate.net", "sciencedirect.com", "pubmed.ncbi.nlm.nih.gov", "acm.org",
	"doi.org", "nature.com", "science.org", "jstor.org", "tandfonline.com",
}

// DefaultResearchFileExts mark direct links to papers, slides and manuscripts.
var DefaultResearchFileExts = []string{".pdf", ".docx", ".pptx", ".tex", ".epub"}

// ResolveDomain maps a final (already expanded) URL to its source domain.
func ResolveDomain(link string) domain.LinkClassification {
	link = strings.TrimSpace(link)
	if link == "" {
		return domain.LinkClassification{URL: link, SourceDomain: domain.SourceUnknown}
	}

	lowered := strings.ToLower(link)
	for _, entry := range domainTable {
		if strings.Contains(lowered, entry.substr) {
			return domain.LinkClassification{URL: link, SourceDomain: entry.source, Research: true}
		}
	}

	return domain.LinkClassification{URL: link, SourceDomain: domain.SourceOther}
}

// Resolver extends ResolveDomain with research hosts and file extensions
// that count a link as research material without naming a publisher.
type Resolver struct {
	researchDomains []string
	fileExts        []string
}

// New builds a resolver; nil slices fall back to the defaults.
func New(researchDomains, fileExts []string) *Resolver {
	if researchDomains == nil {
		researchDomains = DefaultResearchDomains
	}
	if fileExts == nil {
		fileExts = DefaultResearchFileExts
	}
	return &Resolver{
		researchDomains: lowerAll(researchDomains),
		fileExts:        lowerAll(fileExts),
	}
}

// Resolve classifies a single link.
func (r *Resolver) Resolve(link string) domain.LinkClassification {
	lc := ResolveDomain(link)
	if lc.SourceDomain != domain.SourceOther {
		return lc
	}

	parsed, err := url.Parse(lc.URL)
	if err != nil {
		return lc
	}

	host := strings.ToLower(parsed.Hostname())
	for _, d := range r.researchDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			lc.Research = true
			return lc
		}
	}

	ext := strings.ToLower(path.Ext(parsed.Path))
	for _, e := range r.fileExts {
		if ext == e {
			lc.Research = true
			return lc
		}
	}

	return lc
}

// ResolveAll classifies links preserving their order.
func (r *Resolver) ResolveAll(links []string) []domain.LinkClassification {
	out := make([]domain.LinkClassification, 0, len(links))
	for _, link := range links {
		out = append(out, r.Resolve(link))
	}
	return out
}

// PaperSource returns the source domain of the first research link, or Unknown when there is none.
func PaperSource(links []domain.LinkClassification) domain.SourceDomain {
	return domain.ResultEntry{Links: links}.PaperSource()
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
