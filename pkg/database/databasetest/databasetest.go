// Package databasetest opens throwaway in-memory SQLite databases for tests.
package databasetest

import (
	"context"
	"testing"

	"pilotopos/pkg/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Open returns a migrated private in-memory database closed at test end.
func Open(t testing.TB, models ...interface{}) *database.DB {
	t.Helper()
	db, err := database.Connect(database.Config{
		Driver:   database.DriverSQLite,
		DSN:      "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		LogLevel: "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background(), database.DefaultTenant, models...))
	return db
}
