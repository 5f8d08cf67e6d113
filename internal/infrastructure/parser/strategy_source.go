package parser

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"ResearchPosts/internal/config"
	"ResearchPosts/internal/domain"
	"ResearchPosts/internal/ports"
	"ResearchPosts/internal/scanner"
)

// StrategySource implements PostSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sources  []config.SourceConfig
	logger   *slog.Logger
}

var _ ports.PostSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sources.
func NewStrategySource(reg *scanner.Registry, sources []config.SourceConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sources:  sources,
		logger:   log,
	}
}

// FetchBatches runs every configured source and returns one batch per source.
// A source whose file does not exist yet is skipped.
func (s *StrategySource) FetchBatches(ctx context.Context) ([]domain.PostBatch, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("fetch batches", "sources", len(s.sources))

	batches := make([]domain.PostBatch, 0, len(s.sources))
	for _, src := range s.sources {
		s.debug("process source", "source", src.Name, "kind", src.Kind, "path", src.Path)
		strategy, err := s.registry.Resolve(src.Kind)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}

		posts, err := strategy.Scan(ctx, scanner.Request{
			SourceName: src.Name,
			Path:       src.Path,
			Options:    src.Options,
		})
		if errors.Is(err, fs.ErrNotExist) {
			s.warn("source file missing, skipping", "source", src.Name, "path", src.Path)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("scan source %s: %w", src.Name, err)
		}

		s.debug("source produced posts", "source", src.Name, "count", len(posts))
		batches = append(batches, domain.PostBatch{Source: src.Name, Posts: posts})
	}

	return batches, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
