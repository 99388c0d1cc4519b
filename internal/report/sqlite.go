package report

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	// Registers the "sqlite3" driver.
	_ "github.com/mattn/go-sqlite3"

	"github.com/shinji-kodama/cacti-sweep/internal/model"
)

// SQLiteTable is the table WriteSQLite creates.
const SQLiteTable = "results"

// WriteSQLite stores t in a new SQLite database at path, one TEXT column per
// header entry, inside a single transaction. An existing file is never
// overwritten.
func WriteSQLite(ctx context.Context, path string, t *Table) error {
	if _, err := os.Stat(path); err == nil {
		return model.NewCLIError(model.ExitIOError, fmt.Sprintf("file %s already exists", path))
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return model.WrapCLIError(model.ExitIOError, fmt.Sprintf("failed to open %s", path), err)
	}
	defer func() { _ = db.Close() }()

	if err := writeTable(ctx, db, t); err != nil {
		_ = db.Close()
		_ = os.Remove(path)
		return model.WrapCLIError(model.ExitIOError, fmt.Sprintf("failed to write %s", path), err)
	}
	return nil
}

func writeTable(ctx context.Context, db *sql.DB, t *Table) error {
	columns := make([]string, len(t.Header))
	marks := make([]string, len(t.Header))
	for i, h := range t.Header {
		columns[i] = quoteIdent(h) + " TEXT"
		marks[i] = "?"
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	createSQL := "CREATE TABLE " + SQLiteTable + " (\n\t" + strings.Join(columns, ",\n\t") + "\n);"
	if _, err := tx.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO "+SQLiteTable+" VALUES ("+strings.Join(marks, ", ")+")")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	args := make([]any, len(t.Header))
	for _, row := range t.Rows {
		for i := range args {
			args[i] = ""
			if i < len(row) {
				args[i] = row[i]
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %q: %w", row[0], err)
		}
	}
	return tx.Commit()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
