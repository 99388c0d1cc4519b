package report

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.sqlite3")
	table := &Table{
		Header: []string{"filename", "status", "access_time"},
		Rows: [][]string{
			{"cacti_2048_32_4.out", "valid", "0.5"},
			{"cacti_2048_128_8.out", "invalid", "N/A"},
		},
	}
	require.NoError(t, WriteSQLite(context.Background(), path, table))

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM results").Scan(&count))
	assert.Equal(t, 2, count)

	var access string
	require.NoError(t, db.QueryRow(
		`SELECT access_time FROM results WHERE status = 'valid'`).Scan(&access))
	assert.Equal(t, "0.5", access)
}

func TestWriteSQLite_RefusesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.sqlite3")
	require.NoError(t, os.WriteFile(path, []byte("keep me"), 0644))

	err := WriteSQLite(context.Background(), path, &Table{Header: []string{"a"}})
	assert.ErrorContains(t, err, "already exists")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))
}
