// Package pillstore is the reference-store implementation behind the search
// stage's query contract: partial text containment for imprint/shape/color
// and a numeric tolerance window for size. The store is read-only from the
// pipeline's perspective within one run.
package pillstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pillscan/backend/internal/domain"
)

// SizeToleranceMm is the +/- window applied to size matching.
const SizeToleranceMm = 2.0

// Store is a thread-safe in-memory reference store. Query results preserve
// insertion order, which is the tie-break order for ranked matches.
type Store struct {
	records []domain.PillRecord
	mutex   sync.RWMutex
}

// NewStore creates an empty reference store.
func NewStore() *Store {
	return &Store{}
}

// LoadFromFile seeds the store from a JSON array of pill records.
func (s *Store) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var records []domain.PillRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}

	s.Seed(records)
	return nil
}

// Seed replaces the store contents.
func (s *Store) Seed(records []domain.PillRecord) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.records = make([]domain.PillRecord, len(records))
	copy(s.records, records)
}

// Len returns the number of records in the store.
func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.records)
}

// Query returns the records matching every set field of the query. Unset
// fields are omitted from matching, not treated as "match nothing".
func (s *Store) Query(ctx context.Context, query *domain.SearchQuery) ([]domain.PillRecord, error) {
	if query == nil {
		return nil, domain.ErrValidation
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var matches []domain.PillRecord
	for _, record := range s.records {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if matchesQuery(&record, query) {
			matches = append(matches, record)
		}
	}

	return matches, nil
}

func matchesQuery(record *domain.PillRecord, query *domain.SearchQuery) bool {
	if query.Shape != "" && !containsFold(record.Shape, query.Shape) {
		return false
	}
	if query.Color != "" && !containsFold(record.Color, query.Color) {
		return false
	}
	if query.FrontImprint != "" && !containsFold(record.FrontImprint, query.FrontImprint) {
		return false
	}
	if query.BackImprint != "" && !containsFold(record.BackImprint, query.BackImprint) {
		return false
	}
	if query.Scoring != "" && record.Scoring != "" && !strings.EqualFold(record.Scoring, query.Scoring) {
		return false
	}
	if query.SizeMm > 0 && record.SizeMm > 0 {
		diff := record.SizeMm - query.SizeMm
		if diff < -SizeToleranceMm || diff > SizeToleranceMm {
			return false
		}
	}
	return true
}

// containsFold reports whether needle appears in haystack case-insensitively.
func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
