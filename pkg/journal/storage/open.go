package storage

import (
	"fmt"

	"ajala-hq/ajala/pkg/config"
	"ajala-hq/ajala/pkg/journal"
)

// Open creates the backend selected by cfg.Backend.
func Open(cfg config.JournalConfig) (journal.Storage, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStorage(), nil
	case "sqlite", "":
		sc := DefaultSQLiteConfig()
		if cfg.Path != "" {
			sc.Path = cfg.Path
		}
		return NewSQLiteStorage(sc)
	default:
		return nil, fmt.Errorf("unknown journal backend %q", cfg.Backend)
	}
}
