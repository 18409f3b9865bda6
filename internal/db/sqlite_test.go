package db

import (
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrationsEmbedded(t *testing.T) {
	database, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "focus.db"))
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, RunMigrations(database, MigrationSource("")))
	require.NoError(t, RunMigrations(database, MigrationSource("")))

	var applied int
	require.NoError(t, database.QueryRow(`SELECT COUNT(1) FROM schema_migrations`).Scan(&applied))
	assert.Equal(t, 1, applied)

	var tables int
	require.NoError(t, database.QueryRow(
		`SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name IN ('tasks', 'settings')`,
	).Scan(&tables))
	assert.Equal(t, 2, tables)
}

func TestRunMigrationsRollsBackBrokenFile(t *testing.T) {
	database, err := OpenSQLite(filepath.Join(t.TempDir(), "focus.db"))
	require.NoError(t, err)
	defer database.Close()

	source := fstest.MapFS{
		"001_ok.sql":     {Data: []byte(`CREATE TABLE a (id TEXT);`)},
		"002_broken.sql": {Data: []byte(`CREATE TABLE;`)},
		"README.md":      {Data: []byte(`ignored`)},
	}

	err = RunMigrations(database, source)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "002_broken.sql")

	var applied int
	require.NoError(t, database.QueryRow(`SELECT COUNT(1) FROM schema_migrations`).Scan(&applied))
	assert.Equal(t, 1, applied)
}
