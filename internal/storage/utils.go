package storage

import "github.com/pkg/errors"

// InitStore opens the postgres store and verifies the Brevia schema is
// present, so a database that has not been migrated fails at startup
// with a clear message instead of surfacing later as query errors.
func InitStore(dbConnStr string) (*PostgresStore, error) {
	store, err := NewPostgresStore(dbConnStr)
	if err != nil {
		return nil, err
	}
	if err := store.checkSchema(); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) checkSchema() error {
	var n int
	err := s.db.Get(&n, `
		SELECT COUNT(*) FROM information_schema.tables
		WHERE table_name IN ('sessions', 'messages', 'workflows', 'sources')`)
	if err != nil {
		return errors.Wrap(err, "failed to inspect schema")
	}
	if n < 4 {
		return errors.New("database schema missing or incomplete: run brevia-migrate first")
	}
	return nil
}
