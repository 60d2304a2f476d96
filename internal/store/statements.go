package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Statement is a compiled statement recorded in the log.
type Statement struct {
	Fingerprint string
	// Seq orders statements by first recording. Assigned by the store.
	Seq     int64
	Dialect string
	Command string
	Model   string
	SQL     string
	Values  []any
}

// WriteStatement appends a statement to the log and returns its sequence
// number. Statements are content addressed by Fingerprint: recording the
// same statement again is a no-op that returns the original sequence.
func (s *Store) WriteStatement(ctx context.Context, st Statement) (int64, error) {
	valuesJSON, err := marshalValues(st.Values)
	if err != nil {
		return 0, fmt.Errorf("write statement: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write statement: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO statements
		(fingerprint, seq, dialect, command, model, sql, bind_values)
		SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?, ?, ?
		FROM statements
		WHERE true
		ON CONFLICT(fingerprint) DO NOTHING
	`,
		st.Fingerprint,
		st.Dialect,
		st.Command,
		st.Model,
		st.SQL,
		valuesJSON,
	)
	if err != nil {
		return 0, fmt.Errorf("write statement: %w", err)
	}

	var seq int64
	err = tx.QueryRowContext(ctx, `SELECT seq FROM statements WHERE fingerprint = ?`, st.Fingerprint).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("write statement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write statement: %w", err)
	}
	return seq, nil
}

// ReadStatements returns logged statements, all of them or those of one
// model, ordered by seq ASC.
//
// Returns an empty slice (not nil) if nothing was logged.
func (s *Store) ReadStatements(ctx context.Context, model string) ([]Statement, error) {
	query := `
		SELECT fingerprint, seq, dialect, command, model, sql, bind_values
		FROM statements
		ORDER BY seq ASC, fingerprint COLLATE BINARY ASC
	`
	args := []any{}
	if model != "" {
		query = `
		SELECT fingerprint, seq, dialect, command, model, sql, bind_values
		FROM statements
		WHERE model = ?
		ORDER BY seq ASC, fingerprint COLLATE BINARY ASC
	`
		args = append(args, model)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query statements: %w", err)
	}
	defer rows.Close()

	statements := []Statement{}
	for rows.Next() {
		st, err := scanStatement(rows)
		if err != nil {
			return nil, err
		}
		statements = append(statements, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statements: %w", err)
	}
	return statements, nil
}

// ReadStatement returns the statement with the given fingerprint.
// Returns sql.ErrNoRows (wrapped) when it was never logged.
func (s *Store) ReadStatement(ctx context.Context, fingerprint string) (Statement, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT fingerprint, seq, dialect, command, model, sql, bind_values
		FROM statements
		WHERE fingerprint = ?
	`, fingerprint)

	st, err := scanStatement(row)
	if err != nil {
		return Statement{}, fmt.Errorf("read statement %s: %w", fingerprint, err)
	}
	return st, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStatement(row scanner) (Statement, error) {
	var st Statement
	var valuesJSON string
	if err := row.Scan(&st.Fingerprint, &st.Seq, &st.Dialect, &st.Command, &st.Model, &st.SQL, &valuesJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Statement{}, err
		}
		return Statement{}, fmt.Errorf("scan statement: %w", err)
	}

	values, err := unmarshalValues(valuesJSON)
	if err != nil {
		return Statement{}, err
	}
	st.Values = values
	return st, nil
}
