package storage

import (
	"path/filepath"
	"testing"
)

// NewTestDB creates a file-backed database under t.TempDir and closes it
// when the test ends. A file is used instead of :memory: because the pool
// would open a separate in-memory database per connection.
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}
