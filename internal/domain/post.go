package domain

import "time"

// PostRecord is a single scraped post handed over by a scraper collaborator.
type PostRecord struct {
	Text      string
	Links     []string
	Permalink string
	Timestamp time.Time
}

// ClassificationResult describes why a post was (or was not) considered research content.
type ClassificationResult struct {
	IsRelevant      bool
	MatchedKeywords []string
	MatchedPatterns []string
}

// SourceDomain enumerates the publisher categories a link can resolve to.
type SourceDomain string

const (
	SourceArXiv    SourceDomain = "arXiv"
	SourceSSRN     SourceDomain = "SSRN"
	SourceIEEE     SourceDomain = "IEEE"
	SourceSpringer SourceDomain = "Springer"
	SourceOther    SourceDomain = "Other"
	SourceUnknown  SourceDomain = "Unknown"
)

// Known reports whether the domain is one of the named publishers.
func (s SourceDomain) Known() bool {
	switch s {
	case SourceArXiv, SourceSSRN, SourceIEEE, SourceSpringer:
		return true
	default:
		return false
	}
}

// ParseSourceDomain maps a persisted label back to a SourceDomain.
func ParseSourceDomain(value string) SourceDomain {
	switch SourceDomain(value) {
	case SourceArXiv, SourceSSRN, SourceIEEE, SourceSpringer, SourceOther:
		return SourceDomain(value)
	default:
		return SourceUnknown
	}
}

// LinkClassification pairs a link with its resolved source domain.
type LinkClassification struct {
	URL          string
	SourceDomain SourceDomain
	Research     bool
}

// SourceTypeResearch is the persisted marker for relevant posts.
const SourceTypeResearch = "research"

// ResultEntry is one retained post together with its enrichment.
type ResultEntry struct {
	Key            string
	Record         PostRecord
	Classification ClassificationResult
	Links          []LinkClassification
}

// ResearchLinks returns the links that were classified as research sources, in post order.
func (e ResultEntry) ResearchLinks() []string {
	links := make([]string, 0, len(e.Links))
	for _, link := range e.Links {
		if link.Research {
			links = append(links, link.URL)
		}
	}
	return links
}

// PaperSource is the aggregate label: the domain of the first research link, or Unknown.
func (e ResultEntry) PaperSource() SourceDomain {
	for _, link := range e.Links {
		if link.Research {
			return link.SourceDomain
		}
	}
	return SourceUnknown
}

// SummarizedPost captures the summarizer output attached to a retained post.
type SummarizedPost struct {
	Entry        ResultEntry
	Summary      string
	Tags         []string
	SummarizedAt time.Time
}

// PostBatch groups the posts produced by one scraper pass (profile, search, export file).
type PostBatch struct {
	Source string
	Posts  []PostRecord
}
