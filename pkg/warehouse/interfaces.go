// Package warehouse provides read access to the time-management reporting
// database: table discovery, DDL rendering for prompt construction, dry-run
// validation, and query execution with JSON-safe results.
package warehouse

import "context"

// TableInfo describes a discovered warehouse table.
type TableInfo struct {
	Schema   string `json:"schema"`
	Name     string `json:"name"`
	RowCount int64  `json:"row_count"`
}

// ColumnInfo describes a result column with its database type name.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ResultSet holds the outcome of a query execution. Row values are
// JSON-safe: timestamps are RFC 3339 strings, byte slices are strings,
// and types without a native JSON representation are stringified.
type ResultSet struct {
	Columns  []ColumnInfo     `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}

// ColumnNames returns just the column names, in result order.
func (r *ResultSet) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// Warehouse is the read-only contract the pipeline depends on. Statements
// reaching Execute have already passed the safety guards; implementations
// do not re-validate.
type Warehouse interface {
	// ListTables returns the base tables visible in the configured schema.
	ListTables(ctx context.Context) ([]TableInfo, error)

	// SchemaDDL renders CREATE TABLE statements for every table in the
	// configured schema, annotated with the provided per-table
	// descriptions as leading comments.
	SchemaDDL(ctx context.Context, descriptions map[string]string) (string, error)

	// DryRun validates a query without executing it.
	DryRun(ctx context.Context, sqlQuery string) error

	// Execute runs a query and returns its rows.
	Execute(ctx context.Context, sqlQuery string) (*ResultSet, error)
}
