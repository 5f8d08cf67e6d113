package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"ResearchPosts/internal/dedup"
	"ResearchPosts/internal/domain"
	"ResearchPosts/internal/ports"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.PostSource
	Store      ports.ResultStore
	Classifier ports.PostClassifier
	Resolver   ports.LinkResolver
	Redirects  ports.RedirectResolver
	Repository ports.ProcessedRepository
	Summarizer ports.Summarizer
	Tagger     ports.Tagger
	Summaries  ports.SummaryWriter
	Notifier   ports.Notifier
	Logger     *slog.Logger
	// RelevantOnly drops posts the classifier rejects instead of retaining them unmarked.
	RelevantOnly bool
}

// Pipeline implements the post ingestion workflow: classify, resolve, dedup, summarize, notify.
type Pipeline struct {
	source       ports.PostSource
	store        ports.ResultStore
	classifier   ports.PostClassifier
	resolver     ports.LinkResolver
	redirects    ports.RedirectResolver
	repository   ports.ProcessedRepository
	summarizer   ports.Summarizer
	tagger       ports.Tagger
	summaries    ports.SummaryWriter
	notifier     ports.Notifier
	logger       *slog.Logger
	relevantOnly bool
	now          func() time.Time
}

// Report counts what one run did.
type Report struct {
	Batches    int
	Seen       int
	Retained   int
	Added      int
	Summarized int
	Delivered  bool
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		source:       deps.Source,
		store:        deps.Store,
		classifier:   deps.Classifier,
		resolver:     deps.Resolver,
		redirects:    deps.Redirects,
		repository:   deps.Repository,
		summarizer:   deps.Summarizer,
		tagger:       deps.Tagger,
		summaries:    deps.Summaries,
		notifier:     deps.Notifier,
		logger:       deps.Logger,
		relevantOnly: deps.RelevantOnly,
		now:          time.Now,
	}
}

// Process runs one full pass over every configured source.
func (p *Pipeline) Process(ctx context.Context, trigger time.Time) (Report, error) {
	var report Report
	if p.source == nil || p.classifier == nil || p.resolver == nil {
		return report, nil
	}

	results := dedup.NewStore()
	if p.store != nil {
		loaded, err := p.store.Load(ctx)
		if err != nil {
			return report, fmt.Errorf("load results: %w", err)
		}
		results = loaded
	}

	batches, err := p.source.FetchBatches(ctx)
	if err != nil {
		return report, fmt.Errorf("fetch batches: %w", err)
	}
	report.Batches = len(batches)

	var fresh []domain.ResultEntry
	for _, batch := range batches {
		pass := dedup.NewStore()
		for _, record := range batch.Posts {
			report.Seen++
			entry, keep := p.enrich(ctx, record)
			if !keep {
				continue
			}
			pass.AddEntry(entry)
		}

		for entry := range pass.Results() {
			if !results.Contains(entry.Key) {
				fresh = append(fresh, entry)
			}
		}
		added := results.Merge(pass)
		report.Added += added

		if p.store != nil {
			if err := p.store.Save(ctx, results); err != nil {
				return report, fmt.Errorf("save results after %s: %w", batch.Source, err)
			}
		}
		p.info("pass merged", "source", batch.Source, "posts", len(batch.Posts), "added", added, "total", results.Len())
	}
	report.Retained = results.Len()

	// With a history repository every retained post is a candidate, so a post whose summary
	// failed in an earlier run is retried. Without one only posts new to this run are offered.
	candidates := fresh
	if p.repository != nil {
		candidates = slices.Collect(results.Results())
	}

	summarized, err := p.summarize(ctx, candidates)
	if err != nil {
		return report, err
	}
	report.Summarized = len(summarized)
	if len(summarized) == 0 {
		return report, nil
	}

	if p.summaries != nil {
		if err := p.summaries.WriteSummaries(ctx, summarized); err != nil {
			return report, fmt.Errorf("write summaries: %w", err)
		}
	}

	status := domain.StatusSummarized
	if p.notifier != nil {
		if err := p.notifier.PublishDigest(ctx, buildDigestMessage(trigger, summarized)); err != nil {
			p.warn("digest not delivered", "error", err)
		} else {
			status = domain.StatusDelivered
			report.Delivered = true
		}
	}

	if p.repository != nil {
		for _, post := range summarized {
			err := p.repository.SaveProcessed(ctx, domain.ProcessedPost{
				Key:         post.Entry.Key,
				Permalink:   post.Entry.Record.Permalink,
				PaperSource: post.Entry.PaperSource(),
				Summary:     post.Summary,
				Tags:        post.Tags,
				Status:      status,
			})
			if err != nil {
				return report, fmt.Errorf("persist post %s: %w", post.Entry.Key, err)
			}
		}
	}

	return report, nil
}

// enrich expands, classifies and resolves one post. keep is false when the post is dropped.
func (p *Pipeline) enrich(ctx context.Context, record domain.PostRecord) (domain.ResultEntry, bool) {
	classification := p.classifier.Classify(record.Text)
	if p.relevantOnly && !classification.IsRelevant {
		return domain.ResultEntry{}, false
	}

	record.Links = p.expandLinks(ctx, record.Links)
	return domain.ResultEntry{
		Key:            dedup.ComputeKey(record),
		Record:         record,
		Classification: classification,
		Links:          p.resolver.ResolveAll(record.Links),
	}, true
}

func (p *Pipeline) expandLinks(ctx context.Context, links []string) []string {
	if p.redirects == nil || len(links) == 0 {
		return links
	}

	out := make([]string, 0, len(links))
	seen := make(map[string]struct{}, len(links))
	for _, link := range links {
		expanded, err := p.redirects.Expand(ctx, link)
		if err != nil {
			p.warn("redirect expansion failed", "link", link, "error", err)
			expanded = link
		}
		if _, dup := seen[expanded]; dup {
			continue
		}
		seen[expanded] = struct{}{}
		out = append(out, expanded)
	}
	return out
}

func (p *Pipeline) summarize(ctx context.Context, entries []domain.ResultEntry) ([]domain.SummarizedPost, error) {
	if p.summarizer == nil {
		return nil, nil
	}

	var candidates []domain.ResultEntry
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Classification.IsRelevant || strings.TrimSpace(entry.Record.Text) == "" {
			continue
		}
		candidates = append(candidates, entry)
		keys = append(keys, entry.Key)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	skip := map[string]bool{}
	if p.repository != nil {
		var err error
		skip, err = p.repository.AlreadyProcessed(ctx, keys)
		if err != nil {
			return nil, fmt.Errorf("load processed: %w", err)
		}
	}

	var out []domain.SummarizedPost
	for _, entry := range candidates {
		if skip[entry.Key] {
			continue
		}

		summary, err := p.summarizer.Summarize(ctx, entry.Record.Text)
		if err != nil {
			p.warn("summarize failed", "key", entry.Key, "error", err)
			continue
		}

		var tags []string
		if p.tagger != nil {
			if tags, err = p.tagger.Tag(ctx, summary); err != nil {
				p.warn("tagging failed", "key", entry.Key, "error", err)
				tags = nil
			}
		}

		out = append(out, domain.SummarizedPost{
			Entry:        entry,
			Summary:      summary,
			Tags:         tags,
			SummarizedAt: p.now().UTC(),
		})
	}

	return out, nil
}

func buildDigestMessage(trigger time.Time, posts []domain.SummarizedPost) string {
	if len(posts) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Research posts digest %s\n\n", trigger.Format("2006-01-02"))
	for _, post := range posts {
		fmt.Fprintf(&b, "- [%s] %s\n", post.Entry.PaperSource(), strings.Join(post.Tags, ", "))
		b.WriteString(post.Summary)
		b.WriteString("\n")
		if link := digestLink(post.Entry); link != "" {
			b.WriteString(link)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

// digestLink prefers the paper itself over the post permalink.
func digestLink(entry domain.ResultEntry) string {
	if links := entry.ResearchLinks(); len(links) > 0 {
		return links[0]
	}
	return entry.Record.Permalink
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
