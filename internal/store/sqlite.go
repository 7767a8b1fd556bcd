// Package store provides read-only access to the structured SQLite
// snapshot. All query failures surface through Result.Success/Error so
// callers never have to recover from a raised fault mid-item.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Result is the outcome of a single query execution. Rows preserve the
// store's natural ordering; Columns preserves the statement's column
// order so callers can locate "the first column" reliably.
type Result struct {
	Success bool
	Error   string
	Columns []string
	Rows    []Row
}

// Row maps column name to scalar value.
type Row map[string]any

// Column describes one field of a table, as reported by the store.
type Column struct {
	CID        int
	Name       string
	Type       string
	NotNull    bool
	Default    any
	PrimaryKey bool
}

// Accessor wraps a lazily-opened SQLite connection. The connection is
// a single mutable resource; the accessor serializes access and is
// reused for the lifetime of the agent.
type Accessor struct {
	path   string
	logger *zap.Logger

	mu sync.Mutex
	db *sql.DB
}

// New creates an accessor for the database at path. The connection is
// not opened until first use.
func New(path string, logger *zap.Logger) *Accessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Accessor{path: path, logger: logger}
}

// connect opens the underlying database on first use.
// Callers must hold a.mu.
func (a *Accessor) connect() error {
	if a.db != nil {
		return nil
	}
	db, err := sql.Open("sqlite3", a.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		a.logger.Debug("failed to set sqlite busy_timeout", zap.Error(err))
	}
	a.db = db
	a.logger.Debug("opened sqlite connection", zap.String("path", a.path))
	return nil
}

// Close releases the connection if one was opened.
func (a *Accessor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// ListTables returns the names of all tables in the store.
func (a *Accessor) ListTables() ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.connect(); err != nil {
		return nil, err
	}
	rows, err := a.db.Query("SELECT name FROM sqlite_master WHERE type='table'")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// TableSchema returns the ordered field descriptors for a table.
func (a *Accessor) TableSchema(table string) ([]Column, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.connect(); err != nil {
		return nil, err
	}
	rows, err := a.db.Query(fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to describe table %q: %w", table, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			c       Column
			notNull int
			pk      int
			dflt    sql.NullString
		)
		if err := rows.Scan(&c.CID, &c.Name, &c.Type, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		c.NotNull = notNull != 0
		c.PrimaryKey = pk != 0
		if dflt.Valid {
			c.Default = dflt.String
		}
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// Execute runs a query and returns its outcome. It never returns a Go
// error: failures are carried in the result so the repair loop can
// classify them.
func (a *Accessor) Execute(query string) Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.connect(); err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	rows, err := a.db.Query(query)
	if err != nil {
		a.logger.Debug("query failed", zap.String("sql", query), zap.Error(err))
		return Result{Success: false, Error: err.Error()}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}

	out := Result{Success: true, Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Result{Success: false, Error: err.Error()}
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(values[i])
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return out
}

// normalizeValue converts driver-specific scalar representations into
// the small set the synthesizer understands.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	default:
		return v
	}
}

// FilterUserTables drops the store's internal bookkeeping tables from
// a table listing.
func FilterUserTables(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if strings.HasPrefix(strings.ToLower(n), "sqlite_") {
			continue
		}
		out = append(out, n)
	}
	return out
}
