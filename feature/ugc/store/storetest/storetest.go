// Package storetest builds migrated in-memory stores for tests.
package storetest

import (
	"context"
	"testing"

	"waypoint-sync/core/database"
	"waypoint-sync/feature/ugc/store"
)

// New returns a store backed by a fresh, migrated in-memory SQLite database.
func New(t testing.TB) *store.Store {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	s := store.New(db)
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return s
}
