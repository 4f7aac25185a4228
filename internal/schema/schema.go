package schema

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrTableNotFound = errors.New("schema: table not found")

// identifierPattern matches a bare SQL identifier after normalization.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// QualifiedTable is a schema-qualified table name. Both parts are stored
// normalized: delimiters stripped, surrounding whitespace removed. Equality
// semantics (case folding) belong to the underlying database collation.
type QualifiedTable struct {
	Schema string
	Table  string
}

func (q QualifiedTable) String() string {
	return q.Schema + "." + q.Table
}

func (q QualifiedTable) IsZero() bool {
	return q.Schema == "" && q.Table == ""
}

// ParseQualified normalizes a user- or catalog-supplied table reference such
// as `[sales].[customers]`, `"sales"."customers"` or `sales.customers` into a
// QualifiedTable. Both parts must be non-empty identifiers once the
// delimiters are gone.
func ParseQualified(raw string) (QualifiedTable, error) {
	cleaned := strings.TrimSpace(raw)
	for _, delim := range []string{"[", "]", `"`, "`"} {
		cleaned = strings.ReplaceAll(cleaned, delim, "")
	}
	parts := strings.Split(cleaned, ".")
	if len(parts) != 2 {
		return QualifiedTable{}, fmt.Errorf("invalid table reference %q: expected schema.table", raw)
	}
	schemaName := strings.TrimSpace(parts[0])
	tableName := strings.TrimSpace(parts[1])
	if !identifierPattern.MatchString(schemaName) {
		return QualifiedTable{}, fmt.Errorf("invalid schema identifier %q", schemaName)
	}
	if !identifierPattern.MatchString(tableName) {
		return QualifiedTable{}, fmt.Errorf("invalid table identifier %q", tableName)
	}
	return QualifiedTable{Schema: schemaName, Table: tableName}, nil
}

// Provider supplies table metadata for prompt construction. ListColumns
// returns column names in ordinal position order and ErrTableNotFound for an
// unknown or inaccessible table.
type Provider interface {
	ListTables(ctx context.Context) ([]QualifiedTable, error)
	ListColumns(ctx context.Context, table QualifiedTable) ([]string, error)
}
