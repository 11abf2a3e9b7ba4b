// Package testutil provides shared test helpers for config files and migrated databases.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/studyprep/internal/config"
	"github.com/at-ishikawa/studyprep/internal/database"
	"github.com/at-ishikawa/studyprep/schemas"
)

// NewSQLiteDB opens an in-memory SQLite database with every migration applied.
// It is closed when the test finishes.
func NewSQLiteDB(t *testing.T) *sqlx.DB {
	t.Helper()
	return openMigrated(t, config.DatabaseConfig{Driver: database.DriverSQLite})
}

// NewSQLiteFileDB is NewSQLiteDB backed by a file, for tests that reopen the database by path.
func NewSQLiteFileDB(t *testing.T, path string) *sqlx.DB {
	t.Helper()
	return openMigrated(t, config.DatabaseConfig{Driver: database.DriverSQLite, Path: path})
}

func openMigrated(t *testing.T, cfg config.DatabaseConfig) *sqlx.DB {
	t.Helper()
	db, err := database.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = database.Migrate(context.Background(), db, schemas.Migrations, "migrations")
	require.NoError(t, err)
	return db
}

// SetupTestConfig creates a config file using a SQLite database and a reports directory under tmpDir.
// Extra YAML lines are appended verbatim. It returns the paths of the config file and the database.
func SetupTestConfig(t *testing.T, tmpDir string, extra ...string) (cfgPath, dbPath string) {
	t.Helper()

	dbPath = filepath.Join(tmpDir, "studyprep.db")
	lines := []string{
		"database:",
		"  driver: sqlite",
		"  path: " + dbPath,
		"reports:",
		"  output_directory: " + filepath.Join(tmpDir, "reports"),
	}
	lines = append(lines, extra...)

	cfgPath = filepath.Join(tmpDir, "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(strings.Join(lines, "\n")+"\n"), 0644))
	return cfgPath, dbPath
}
