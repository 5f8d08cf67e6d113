package dedup

import (
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"ResearchPosts/internal/domain"
)

func keysOf(s *Store) []string {
	var keys []string
	for entry := range s.Results() {
		keys = append(keys, entry.Key)
	}
	return keys
}

func TestComputeKeyPrefersPermalink(t *testing.T) {
	t.Parallel()

	rec := domain.PostRecord{
		Text:      "some text",
		Permalink: " https://www.linkedin.com/feed/update/urn:li:activity:1/ ",
	}
	if got := ComputeKey(rec); got != "https://www.linkedin.com/feed/update/urn:li:activity:1/" {
		t.Fatalf("unexpected key: %s", got)
	}
}

func TestComputeKeyContentHashIgnoresWhitespace(t *testing.T) {
	t.Parallel()

	a := ComputeKey(domain.PostRecord{Text: "We propose\n  a new   method "})
	b := ComputeKey(domain.PostRecord{Text: "We propose a new method"})
	c := ComputeKey(domain.PostRecord{Text: "We propose an old method"})

	if a != b {
		t.Fatalf("expected whitespace-insensitive keys, got %s and %s", a, b)
	}
	if a == c {
		t.Fatalf("expected different keys for different text")
	}
	if !strings.HasPrefix(a, contentKeyPrefix) {
		t.Fatalf("expected content key prefix, got %s", a)
	}
}

func TestComputeKeyEmptyText(t *testing.T) {
	t.Parallel()

	if ComputeKey(domain.PostRecord{}) != ComputeKey(domain.PostRecord{Text: "   "}) {
		t.Fatalf("empty and blank text should share a key")
	}
}

func TestAddIsIdempotent(t *testing.T) {
	t.Parallel()

	s := NewStore()
	rec := domain.PostRecord{Text: "a preprint", Timestamp: time.Now()}

	if !s.Add(rec, domain.ClassificationResult{IsRelevant: true}, nil) {
		t.Fatalf("first add should insert")
	}
	if s.Add(rec, domain.ClassificationResult{}, nil) {
		t.Fatalf("second add should be a no-op")
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", s.Len())
	}

	for entry := range s.Results() {
		if !entry.Classification.IsRelevant {
			t.Fatalf("first-seen copy should be retained")
		}
	}
}

func TestResultsAreRestartable(t *testing.T) {
	t.Parallel()

	s := NewStore()
	for _, text := range []string{"one", "two", "three"} {
		s.Add(domain.PostRecord{Text: text}, domain.ClassificationResult{}, nil)
	}

	first := keysOf(s)
	second := keysOf(s)
	if len(first) != 3 || !slices.Equal(first, second) {
		t.Fatalf("expected identical sequences, got %v and %v", first, second)
	}

	var texts []string
	for entry := range s.Results() {
		texts = append(texts, entry.Record.Text)
	}
	if !slices.Equal(texts, []string{"one", "two", "three"}) {
		t.Fatalf("unexpected order: %v", texts)
	}
}

func TestResultsStopEarly(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Add(domain.PostRecord{Text: "one"}, domain.ClassificationResult{}, nil)
	s.Add(domain.PostRecord{Text: "two"}, domain.ClassificationResult{}, nil)

	count := 0
	for range s.Results() {
		count++
		break
	}
	if count != 1 || s.Len() != 2 {
		t.Fatalf("early break must not consume the store")
	}
}

func TestMergeDisjointIsCommutative(t *testing.T) {
	t.Parallel()

	build := func(texts ...string) *Store {
		s := NewStore()
		for _, text := range texts {
			s.Add(domain.PostRecord{Text: text}, domain.ClassificationResult{}, nil)
		}
		return s
	}

	ab := build("a", "b")
	if n := ab.Merge(build("c", "d")); n != 2 {
		t.Fatalf("expected 2 added, got %d", n)
	}
	ba := build("c", "d")
	if n := ba.Merge(build("a", "b")); n != 2 {
		t.Fatalf("expected 2 added, got %d", n)
	}

	left, right := keysOf(ab), keysOf(ba)
	slices.Sort(left)
	slices.Sort(right)
	if !slices.Equal(left, right) {
		t.Fatalf("membership differs: %v vs %v", left, right)
	}
}

func TestMergeOverlapFirstWins(t *testing.T) {
	t.Parallel()

	const permalink = "https://www.linkedin.com/feed/update/urn:li:activity:42"

	run1 := NewStore()
	run1.Add(domain.PostRecord{Text: "first run", Permalink: permalink}, domain.ClassificationResult{IsRelevant: true}, nil)

	run2 := NewStore()
	run2.Add(domain.PostRecord{Text: "second run edit", Permalink: permalink}, domain.ClassificationResult{}, nil)
	run2.Add(domain.PostRecord{Text: "other"}, domain.ClassificationResult{}, nil)

	if n := run1.Merge(run2); n != 1 {
		t.Fatalf("expected 1 added, got %d", n)
	}
	if run1.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", run1.Len())
	}

	for entry := range run1.Results() {
		if entry.Key == permalink && entry.Record.Text != "first run" {
			t.Fatalf("expected first-inserted copy, got %q", entry.Record.Text)
		}
	}
}

func TestMergeSelfAndNil(t *testing.T) {
	t.Parallel()

	s := NewStore()
	s.Add(domain.PostRecord{Text: "x"}, domain.ClassificationResult{}, nil)

	if s.Merge(s) != 0 || s.Merge(nil) != 0 || s.Len() != 1 {
		t.Fatalf("self and nil merges must be no-ops")
	}
}

func TestConcurrentAdd(t *testing.T) {
	t.Parallel()

	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, text := range []string{"a", "b", "c", "d"} {
				s.Add(domain.PostRecord{Text: text}, domain.ClassificationResult{}, nil)
			}
		}()
	}
	wg.Wait()

	if s.Len() != 4 {
		t.Fatalf("expected 4 entries, got %d", s.Len())
	}
}

func TestZeroValueStore(t *testing.T) {
	t.Parallel()

	var s Store
	if !s.Add(domain.PostRecord{Text: "x"}, domain.ClassificationResult{}, nil) {
		t.Fatalf("zero-value store should accept entries")
	}
	if !s.Contains(ComputeKey(domain.PostRecord{Text: "x"})) {
		t.Fatalf("expected key to be present")
	}
}
