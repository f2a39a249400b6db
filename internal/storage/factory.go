package storage

import "fmt"

// NewStore selects a Store by kind. An empty kind means the in-memory
// store; "sqlite" needs a build with the sqlite tag and a database path.
func NewStore(kind, dbPath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return newSQLiteStore(dbPath)
	default:
		return nil, fmt.Errorf("unknown store kind %q (want memory or sqlite)", kind)
	}
}

// CloseIfSupported closes stores holding external resources; the
// in-memory store has nothing to release.
func CloseIfSupported(s Store) error {
	if closer, ok := s.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
