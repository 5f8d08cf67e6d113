package ports

import (
	"context"
	"time"

	"ResearchPosts/internal/dedup"
	"ResearchPosts/internal/domain"
)

// PostSource pulls scraped posts from scraper collaborators, one batch per pass.
type PostSource interface {
	FetchBatches(ctx context.Context) ([]domain.PostBatch, error)
}

// PostClassifier decides whether a post's text is research content.
type PostClassifier interface {
	Classify(text string) domain.ClassificationResult
}

// LinkResolver maps a post's links to source domains, in post order.
type LinkResolver interface {
	ResolveAll(links []string) []domain.LinkClassification
}

// ResultStore loads and saves the merged result set between runs.
type ResultStore interface {
	Load(ctx context.Context) (*dedup.Store, error)
	Save(ctx context.Context, store *dedup.Store) error
}

// ProcessedRepository remembers posts already summarized in earlier runs.
type ProcessedRepository interface {
	AlreadyProcessed(ctx context.Context, keys []string) (map[string]bool, error)
	SaveProcessed(ctx context.Context, post domain.ProcessedPost) error
}

// RedirectResolver expands shortened links to their final target.
type RedirectResolver interface {
	Expand(ctx context.Context, link string) (string, error)
}

// Summarizer condenses a post into a short paragraph.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Tagger labels a summary with a few topic tags.
type Tagger interface {
	Tag(ctx context.Context, summary string) ([]string, error)
}

// SummaryWriter stores summarizer output for downstream consumers.
type SummaryWriter interface {
	WriteSummaries(ctx context.Context, posts []domain.SummarizedPost) error
}

// Notifier streams digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
