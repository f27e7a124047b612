package storage

import (
	"cmp"
	"context"
	"sort"
	"sync"

	"ajala-hq/ajala/pkg/journal"
)

// MemoryStorage keeps records in a map. Records are lost on exit.
type MemoryStorage struct {
	records map[string]*journal.Record
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*journal.Record),
	}
}

// Store persists a copy of record.
func (s *MemoryStorage) Store(ctx context.Context, record *journal.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *record
	s.records[record.ID] = &cp
	return nil
}

// Query returns copies of the matching records, sorted and paginated.
func (s *MemoryStorage) Query(ctx context.Context, q *journal.Query) ([]*journal.Record, error) {
	s.mu.RLock()
	results := make([]*journal.Record, 0, len(s.records))
	for _, record := range s.records {
		if q.Matches(record) {
			cp := *record
			results = append(results, &cp)
		}
	}
	s.mu.RUnlock()

	sortRecords(results, q.SortBy, q.SortOrder)

	start := q.Offset
	if start > len(results) {
		return []*journal.Record{}, nil
	}
	end := len(results)
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}
	return results[start:end], nil
}

// Count returns the number of matching records.
func (s *MemoryStorage) Count(ctx context.Context, q *journal.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if q.Matches(record) {
			count++
		}
	}
	return count, nil
}

// Delete removes the matching records.
func (s *MemoryStorage) Delete(ctx context.Context, q *journal.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, record := range s.records {
		if q.Matches(record) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Ping always succeeds.
func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

// Close drops all records.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*journal.Record)
	return nil
}

// Size returns the number of stored records.
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// sortRecords orders records by field, then by ID in the same direction.
// The default is newest first.
func sortRecords(records []*journal.Record, field, order string) {
	desc := order != "asc"
	less := func(a, b *journal.Record) int {
		switch field {
		case journal.SortLatency:
			return cmp.Compare(int64(a.Latency), int64(b.Latency))
		case journal.SortAttempts:
			return cmp.Compare(int64(a.Attempts), int64(b.Attempts))
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		c := less(records[i], records[j])
		if c == 0 {
			c = cmp.Compare(records[i].ID, records[j].ID)
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}
