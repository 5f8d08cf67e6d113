// Package dedup keeps the insertion-ordered set of retained posts across passes and runs.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"iter"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"ResearchPosts/internal/domain"
)

const contentKeyPrefix = "sha256:"

// ComputeKey returns the post permalink when present, otherwise a content hash of the
// whitespace-normalized text. Posts differing only in spacing or line breaks share a key.
func ComputeKey(record domain.PostRecord) string {
	if permalink := strings.TrimSpace(record.Permalink); permalink != "" {
		return permalink
	}

	sum := sha256.Sum256([]byte(NormalizeText(record.Text)))
	return contentKeyPrefix + hex.EncodeToString(sum[:])
}

// NormalizeText applies NFC and collapses every whitespace run to a single space.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(norm.NFC.String(text)), " ")
}

// Store retains the first-seen entry for every key. Add and Merge are serialized
// by the store, so a single instance can be shared by concurrent producers.
type Store struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	entries []domain.ResultEntry
}

// NewStore builds an empty store.
func NewStore() *Store {
	return &Store{seen: map[string]struct{}{}}
}

// Add inserts the post unless its key is already present. It reports whether the post was added.
func (s *Store) Add(record domain.PostRecord, classification domain.ClassificationResult, links []domain.LinkClassification) bool {
	return s.AddEntry(domain.ResultEntry{
		Record:         record,
		Classification: classification,
		Links:          links,
	})
}

// AddEntry inserts a prepared entry; its key is always recomputed from the record.
func (s *Store) AddEntry(entry domain.ResultEntry) bool {
	entry.Key = ComputeKey(entry.Record)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seen == nil {
		s.seen = map[string]struct{}{}
	}
	if _, ok := s.seen[entry.Key]; ok {
		return false
	}
	s.seen[entry.Key] = struct{}{}
	s.entries = append(s.entries, entry)
	return true
}

// Merge copies the entries of other that are not yet present and returns how many were added.
// Entries already in s win over those in other.
func (s *Store) Merge(other *Store) int {
	if other == nil || other == s {
		return 0
	}

	added := 0
	for entry := range other.Results() {
		if s.AddEntry(entry) {
			added++
		}
	}
	return added
}

// Contains reports whether key has been retained.
func (s *Store) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[key]
	return ok
}

// Len returns the number of retained entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Results yields entries in insertion order. The sequence reads the store lazily and
// can be ranged over any number of times.
func (s *Store) Results() iter.Seq[domain.ResultEntry] {
	return func(yield func(domain.ResultEntry) bool) {
		for i := 0; ; i++ {
			s.mu.Lock()
			if i >= len(s.entries) {
				s.mu.Unlock()
				return
			}
			entry := s.entries[i]
			s.mu.Unlock()

			if !yield(entry) {
				return
			}
		}
	}
}
