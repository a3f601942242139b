package database

import (
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestMigrator(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping migrator tests in short mode.")
	}
	t.Parallel()

	t.Run("migrate up is idempotent", func(t *testing.T) {
		t.Parallel()

		ctx := t.Context()
		schemaName := "easel_migrate_up"

		db, err := NewPostgresDatabase(LOCAL_CONNECTION_STRING)
		require.NoError(t, err)

		db.MustExec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", pq.QuoteIdentifier(schemaName)))

		logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
		migrator := NewDatabaseMigrator(db, logger)

		err = migrator.migrate(ctx, schemaName)
		require.NoError(t, err, "error migrating up")

		// Running the same migrations again is a no-op
		err = migrator.migrate(ctx, schemaName)
		require.NoError(t, err)

		var count int
		err = db.QueryRowx(
			"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = $1 AND table_name = 'archived_jobs'",
			schemaName,
		).Scan(&count)
		require.NoError(t, err)
		require.Equal(t, 1, count)
	})
}
