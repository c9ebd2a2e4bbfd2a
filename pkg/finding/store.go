package finding

import (
	"slices"
	"sync"
)

// Store holds the latest findings per document. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	findings map[string][]Finding
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{findings: make(map[string][]Finding)}
}

// Set replaces every finding recorded for doc.
func (s *Store) Set(doc string, findings []Finding) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.findings[doc] = slices.Clone(findings)
}

// Get returns a copy of the findings recorded for doc.
func (s *Store) Get(doc string) ([]Finding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	findings, ok := s.findings[doc]

	return slices.Clone(findings), ok
}

// Delete forgets doc.
func (s *Store) Delete(doc string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.findings, doc)
}

// Documents returns the known documents in sorted order.
func (s *Store) Documents() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]string, 0, len(s.findings))
	for doc := range s.findings {
		docs = append(docs, doc)
	}

	slices.Sort(docs)

	return docs
}

// Total returns the number of findings across all documents.
func (s *Store) Total() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, findings := range s.findings {
		total += len(findings)
	}

	return total
}
