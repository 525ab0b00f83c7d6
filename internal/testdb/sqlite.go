// Package testdb opens throwaway SQLite databases for tests.
package testdb

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"schedule-service/internal/db"
)

var counter atomic.Int64

// Setup opens a fresh in-memory SQLite database for one test. Each call gets
// its own database; the handle closes when the test finishes.
//
// Usage:
//
//	func TestMyService(t *testing.T) {
//	    database := testdb.Setup(t)
//	    testdb.RunMigrations(t, database, (*MyModel)(nil))
//
//	    t.Run("Test1", func(t *testing.T) {
//	        testdb.CleanupTables(t, database, "my_table")
//	        // ... test
//	    })
//	}
func Setup(t *testing.T) *bun.DB {
	t.Helper()

	// A named shared-cache database lives for as long as one connection
	// stays open, so the pool is pinned to a single connection.
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", counter.Add(1))
	database := db.NewSQLiteWithDSN(dsn)
	database.DB.SetMaxOpenConns(1)
	database.DB.SetMaxIdleConns(1)

	require.NoError(t, database.Ping())

	t.Cleanup(func() {
		database.Close()
	})

	return database
}

func RunMigrations(t *testing.T, database *bun.DB, models ...interface{}) {
	t.Helper()
	ctx := context.Background()

	for _, model := range models {
		_, err := database.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		require.NoError(t, err, "failed to create table")
	}
}

// CleanupTables empties the given tables between subtests.
func CleanupTables(t *testing.T, database *bun.DB, tables ...string) {
	t.Helper()
	ctx := context.Background()

	for _, table := range tables {
		_, err := database.ExecContext(ctx, "DELETE FROM "+table)
		require.NoError(t, err, "failed to clear table: %s", table)

		// sqlite_sequence only exists once an AUTOINCREMENT table has been
		// written to, so a failure here just means nothing to reset.
		_, _ = database.ExecContext(ctx, "DELETE FROM sqlite_sequence WHERE name = ?", table)
	}
}
