package scanner

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"ResearchPosts/internal/domain"
)

// Request carries all parameters required to read one scraper output.
type Request struct {
	SourceName string
	Path       string
	Options    map[string]string
}

// Scanner captures a single input format (JSON batch, HTML snapshot, etc.).
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) ([]domain.PostRecord, error)
}

// Registry maps source kinds to the scanner that reads them.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds or replaces the scanner for its kind.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns the scanner for a source kind or an error naming the registered kinds.
func (r *Registry) Resolve(kind string) (Scanner, error) {
	if scanner, ok := r.scanners[kind]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("no scanner for source kind %q (registered: %s)", kind, strings.Join(r.Kinds(), ", "))
}

// Kinds lists the registered source kinds in sorted order.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.scanners))
	for kind := range r.scanners {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	return kinds
}
