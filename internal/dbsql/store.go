package dbsql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tabletalk/tabletalk/internal/query"
	"github.com/tabletalk/tabletalk/internal/schema"
)

// systemSchemas are excluded from table listings; nothing in them is a
// report target.
var systemSchemas = []string{"information_schema", "pg_catalog"}

type Options struct {
	DefaultRowLimit int
	QueryTimeout    time.Duration
}

// Store implements schema.Provider and query.Executor over one database
// handle. The same information_schema queries serve both supported drivers.
type Store struct {
	db           *sql.DB
	rowLimit     int
	queryTimeout time.Duration
}

func NewStore(db *sql.DB, opts Options) *Store {
	rowLimit := opts.DefaultRowLimit
	if rowLimit <= 0 {
		rowLimit = 500
	}
	return &Store{db: db, rowLimit: rowLimit, queryTimeout: opts.QueryTimeout}
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping report db: %w", err)
	}
	return nil
}

func (s *Store) ListTables(ctx context.Context) ([]schema.QualifiedTable, error) {
	listQuery := `
SELECT table_schema, table_name
FROM information_schema.tables
WHERE table_type = 'BASE TABLE'
  AND table_schema NOT IN ('` + strings.Join(systemSchemas, `', '`) + `')
ORDER BY table_schema, table_name`

	rows, err := s.db.QueryContext(ctx, listQuery)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tables := make([]schema.QualifiedTable, 0)
	for rows.Next() {
		var table schema.QualifiedTable
		if err := rows.Scan(&table.Schema, &table.Table); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		tables = append(tables, table)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table rows: %w", err)
	}
	return tables, nil
}

func (s *Store) ListColumns(ctx context.Context, table schema.QualifiedTable) ([]string, error) {
	columnQuery := `
SELECT column_name
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`

	rows, err := s.db.QueryContext(ctx, columnQuery, table.Schema, table.Table)
	if err != nil {
		return nil, fmt.Errorf("list columns for %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	columns := make([]string, 0)
	for rows.Next() {
		var column string
		if err := rows.Scan(&column); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		columns = append(columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column rows: %w", err)
	}
	if len(columns) == 0 {
		return nil, schema.ErrTableNotFound
	}
	return columns, nil
}

// Execute runs one validated read-only statement. The SELECT prefix check
// here is defense in depth behind the validator, not a replacement for it.
func (s *Store) Execute(ctx context.Context, request query.Request) (query.Result, error) {
	sqlText := stripTrailingSemicolons(request.SQL)
	if sqlText == "" {
		return query.Result{}, fmt.Errorf("sql is required")
	}
	if !strings.HasPrefix(strings.ToLower(sqlText), "select") {
		return query.Result{}, fmt.Errorf("refusing to execute non-SELECT statement")
	}

	rowLimit := request.RowLimit
	if rowLimit <= 0 {
		rowLimit = s.rowLimit
	}
	sqlText = fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d", sqlText, rowLimit)

	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, sqlText)
	if err != nil {
		return query.Result{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return query.Result{}, fmt.Errorf("query columns: %w", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return query.Result{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return query.Result{}, fmt.Errorf("iterate rows: %w", err)
	}

	return query.Result{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
		Duration: time.Since(start),
	}, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
