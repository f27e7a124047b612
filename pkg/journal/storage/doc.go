// Package storage provides journal.Storage backends: an in-memory map and
// a SQLite database built on the pure-Go modernc.org/sqlite driver.
//
//	store, err := storage.Open(cfg.Journal)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
package storage
