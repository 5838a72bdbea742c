package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/whereabouts/internal/location"
	"github.com/roach88/whereabouts/internal/model"
)

var t0 = time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// visitAt creates a city-level visit.
func visitAt(city string, at time.Time) location.Visit {
	return location.Visit{Location: model.Place{City: city}, Timestamp: at}
}
