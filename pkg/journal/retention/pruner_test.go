package retention

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ajala-hq/ajala/pkg/config"
	"ajala-hq/ajala/pkg/journal"
	"ajala-hq/ajala/pkg/journal/storage"
)

func seed(t *testing.T, s journal.Storage, now time.Time, ages ...time.Duration) {
	t.Helper()
	for i, age := range ages {
		err := s.Store(context.Background(), &journal.Record{
			ID:        fmt.Sprintf("rec-%02d", i),
			Provider:  "mock",
			Status:    journal.StatusSuccess,
			CreatedAt: now.Add(-age),
		})
		if err != nil {
			t.Fatalf("Store() failed: %v", err)
		}
	}
}

func TestPruner_Prune(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	tests := []struct {
		name        string
		config      *Config
		ages        []time.Duration
		wantDeleted int64
		wantLeft    []string
	}{
		{
			name:        "age only",
			config:      &Config{RetentionDays: 7},
			ages:        []time.Duration{time.Hour, 3 * day, 8 * day, 30 * day},
			wantDeleted: 2,
			wantLeft:    []string{"rec-00", "rec-01"},
		},
		{
			name:        "count only",
			config:      &Config{MaxRecords: 2},
			ages:        []time.Duration{time.Hour, 2 * time.Hour, 3 * time.Hour, 4 * time.Hour},
			wantDeleted: 2,
			wantLeft:    []string{"rec-00", "rec-01"},
		},
		{
			name:        "count with identical timestamps",
			config:      &Config{MaxRecords: 3},
			ages:        []time.Duration{day, day, day, day},
			wantDeleted: 1,
		},
		{
			name:        "age then count",
			config:      &Config{RetentionDays: 7, MaxRecords: 1},
			ages:        []time.Duration{time.Hour, 2 * time.Hour, 10 * day},
			wantDeleted: 2,
			wantLeft:    []string{"rec-00"},
		},
		{
			name:        "nothing configured",
			config:      &Config{},
			ages:        []time.Duration{100 * day},
			wantDeleted: 0,
			wantLeft:    []string{"rec-00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStorage()
			seed(t, store, now, tt.ages...)

			p := NewPruner(store, tt.config)
			p.now = func() time.Time { return now }

			deleted, err := p.Prune(context.Background())
			if err != nil {
				t.Fatalf("Prune() failed: %v", err)
			}
			if deleted != tt.wantDeleted {
				t.Errorf("deleted = %d, want %d", deleted, tt.wantDeleted)
			}

			left := int64(store.Size())
			if left != int64(len(tt.ages))-tt.wantDeleted {
				t.Errorf("left %d records, want %d", left, int64(len(tt.ages))-tt.wantDeleted)
			}

			for _, id := range tt.wantLeft {
				n, _ := store.Count(context.Background(), &journal.Query{IDs: []string{id}})
				if n != 1 {
					t.Errorf("expected %s to survive", id)
				}
			}
		})
	}
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(config.RetentionConfig{Days: 7, MaxRecords: 100, Schedule: "@daily"})
	if cfg.RetentionDays != 7 || cfg.MaxRecords != 100 || cfg.PruneSchedule != "@daily" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}
