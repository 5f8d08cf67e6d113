package scanner

import (
	"context"
	"slices"
	"strings"
	"testing"

	"ResearchPosts/internal/domain"
)

type stubScanner struct {
	name  string
	posts []domain.PostRecord
}

func (s stubScanner) Name() string { return s.name }

func (s stubScanner) Scan(ctx context.Context, req Request) ([]domain.PostRecord, error) {
	return s.posts, nil
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(stubScanner{name: "json"})
	reg.Register(stubScanner{name: "json", posts: []domain.PostRecord{{Text: "replaced"}}})

	sc, err := reg.Resolve("json")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	posts, _ := sc.Scan(context.Background(), Request{})
	if len(posts) != 1 || posts[0].Text != "replaced" {
		t.Fatalf("expected the later registration to win, got %+v", posts)
	}

	reg.Register(stubScanner{name: "html"})
	if !slices.Equal(reg.Kinds(), []string{"html", "json"}) {
		t.Fatalf("unexpected kinds: %v", reg.Kinds())
	}

	_, err = reg.Resolve("rss")
	if err == nil || !strings.Contains(err.Error(), "html, json") {
		t.Fatalf("expected error naming registered kinds, got %v", err)
	}
}

func TestZeroRegistryRegister(t *testing.T) {
	t.Parallel()

	var reg Registry
	reg.Register(stubScanner{name: "html"})
	if _, err := reg.Resolve("html"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
}
