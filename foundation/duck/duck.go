// Package duck provides the embedded analytical table store backed by duckdb.
package duck

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ardanlabs/ai-agents/foundation/logger"
	"github.com/duckdb/duckdb-go/v2"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Config represents the settings for opening a store. An empty Path opens an
// in-memory database.
type Config struct {
	Log  logger.Logger
	Path string
}

// Store owns the duckdb database and every relation loaded into it.
type Store struct {
	log       logger.Logger
	connector *duckdb.Connector
	db        *sqlx.DB

	// Load takes the write lock so a query never observes a relation that
	// is in the middle of being replaced.
	mu sync.RWMutex
}

// Open constructs a store for the configured database.
func Open(cfg Config) (*Store, error) {
	log := cfg.Log
	if log == nil {
		log = logger.Noop
	}

	connector, err := duckdb.NewConnector(cfg.Path, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating connector: %w", err)
	}

	db := sqlx.NewDb(sql.OpenDB(connector), "duckdb")

	if err := db.Ping(); err != nil {
		db.Close()
		connector.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	s := Store{
		log:       log,
		connector: connector,
		db:        db,
	}

	return &s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	if err := s.connector.Close(); err != nil {
		return fmt.Errorf("close connector: %w", err)
	}

	return nil
}

// Load replaces the named relation with the dataset. The new relation is
// built under a staging name and swapped in with the old one dropped inside
// a single transaction.
func (s *Store) Load(ctx context.Context, name string, ds Dataset) error {
	if err := ds.Validate(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	staging := fmt.Sprintf("%s_%s", name, strings.ReplaceAll(uuid.NewString(), "-", ""))

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	defer func() {
		if errTx := tx.Rollback(); errTx != nil && !errors.Is(errTx, sql.ErrTxDone) {
			s.log(ctx, "duck: load", "status", "rollback failed", "table", name, "ERROR", errTx)
		}
	}()

	if _, err := tx.ExecContext(ctx, createTable(staging, ds.Columns)); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	if len(ds.Rows) > 0 {
		stmt, err := tx.PreparexContext(ctx, insertRow(staging, len(ds.Columns)))
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for i, row := range ds.Rows {
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				return fmt.Errorf("insert row %d: %w", i+1, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quote(name))); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quote(staging), quote(name))); err != nil {
		return fmt.Errorf("rename table: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.log(ctx, "duck: load", "table", name, "columns", len(ds.Columns), "rows", len(ds.Rows))

	return nil
}

// Query executes the sql text and returns every row. Values are converted
// to display ready forms. Any failure reported by the engine is returned as
// a *QueryError carrying the engine's message.
func (s *Store) Query(ctx context.Context, query string) (Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return Result{}, newQueryError(query, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return Result{}, newQueryError(query, err)
	}

	types, err := rows.ColumnTypes()
	if err != nil {
		return Result{}, newQueryError(query, err)
	}

	res := Result{
		Columns: columns,
		Rows:    [][]any{},
	}

	for rows.Next() {
		row, err := rows.SliceScan()
		if err != nil {
			return Result{}, newQueryError(query, err)
		}

		for i, v := range row {
			row[i] = display(v, types[i].DatabaseTypeName())
		}

		res.Rows = append(res.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return Result{}, newQueryError(query, err)
	}

	return res, nil
}

// Tables returns the names of the relations in the main schema.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	const q = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'main'
		ORDER BY table_name;
	`

	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	if err := s.db.SelectContext(ctx, &names, q); err != nil {
		return nil, fmt.Errorf("select tables: %w", err)
	}

	return names, nil
}

// Describe returns the columns of the named relation in ordinal order.
func (s *Store) Describe(ctx context.Context, name string) ([]Column, error) {
	const q = `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_name = ?
		ORDER BY ordinal_position;
	`

	s.mu.RLock()
	defer s.mu.RUnlock()

	var cols []struct {
		Name string `db:"column_name"`
		Type string `db:"data_type"`
	}

	if err := s.db.SelectContext(ctx, &cols, q, name); err != nil {
		return nil, fmt.Errorf("select columns: %w", err)
	}

	if len(cols) == 0 {
		return nil, fmt.Errorf("table %q: %w", name, ErrNotFound)
	}

	columns := make([]Column, len(cols))
	for i, c := range cols {
		columns[i] = Column{Name: c.Name, Type: Type(c.Type)}
	}

	return columns, nil
}

// =============================================================================

func createTable(name string, columns []Column) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(quote(name))
	b.WriteString(" (")

	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quote(c.Name))
		b.WriteString(" ")
		b.WriteString(string(c.Type))
	}

	b.WriteString(")")

	return b.String()
}

func insertRow(name string, n int) string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
	return fmt.Sprintf("INSERT INTO %s VALUES (%s)", quote(name), marks)
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
