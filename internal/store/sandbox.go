package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/spellbook/internal/schema"
)

// Row is one result row keyed by column name.
type Row map[string]any

// CreateTableSQL returns the SQLite DDL for a model. Columns take the
// affinity of their data type; an INTEGER primary key becomes the rowid.
func CreateTableSQL(m *schema.Model) string {
	cols := make([]string, len(m.Attributes))
	for i, attr := range m.Attributes {
		var b strings.Builder
		b.WriteString(quoteID(attr.Column))
		b.WriteString(" ")
		b.WriteString(string(attr.Type.Affinity()))
		switch {
		case attr.PrimaryKey:
			b.WriteString(" PRIMARY KEY")
		case !attr.AllowNull:
			b.WriteString(" NOT NULL")
		}
		if attr.Unique && !attr.PrimaryKey {
			b.WriteString(" UNIQUE")
		}
		cols[i] = b.String()
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteID(m.Table), strings.Join(cols, ", "))
}

// CreateTables creates a table per model in one transaction.
func (s *Store) CreateTables(ctx context.Context, models ...*schema.Model) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	defer tx.Rollback()

	for _, m := range models {
		if _, err := tx.ExecContext(ctx, CreateTableSQL(m)); err != nil {
			return fmt.Errorf("create table %s: %w", m.Table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Check prepares query without running it. SQLite resolves every table and
// column at prepare time, so this catches both syntax errors and references
// to columns the models do not have.
func (s *Store) Check(ctx context.Context, query string) error {
	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("check statement: %w", err)
	}
	return stmt.Close()
}

// Exec runs a statement and returns the number of affected rows.
func (s *Store) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("exec statement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("exec statement: %w", err)
	}
	return n, nil
}

// Query runs a statement and returns every row.
//
// Returns an empty slice (not nil) if no rows match.
func (s *Store) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query statement: %w", err)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	result := []Row{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return result, nil
}

func quoteID(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
