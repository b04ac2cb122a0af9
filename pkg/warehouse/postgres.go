package warehouse

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresWarehouse implements Warehouse over a pgx connection pool.
// The pool is owned by the caller; closing it is not this type's job.
type PostgresWarehouse struct {
	pool   *pgxpool.Pool
	schema string
	logger *zap.Logger
}

// NewPostgresWarehouse creates a warehouse adapter scoped to one schema.
// If logger is nil, a no-op logger is used.
func NewPostgresWarehouse(pool *pgxpool.Pool, schema string, logger *zap.Logger) *PostgresWarehouse {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schema == "" {
		schema = "public"
	}
	return &PostgresWarehouse{
		pool:   pool,
		schema: schema,
		logger: logger.Named("warehouse"),
	}
}

// ListTables returns the base tables in the configured schema.
func (w *PostgresWarehouse) ListTables(ctx context.Context) ([]TableInfo, error) {
	const query = `
		SELECT
			t.table_schema,
			t.table_name,
			COALESCE(c.reltuples::bigint, 0) as row_count
		FROM information_schema.tables t
		LEFT JOIN pg_class c ON c.relname = t.table_name
		LEFT JOIN pg_namespace n ON n.oid = c.relnamespace AND n.nspname = t.table_schema
		WHERE t.table_type = 'BASE TABLE'
		  AND t.table_schema = $1
		ORDER BY t.table_name
	`

	rows, err := w.pool.Query(ctx, query, w.schema)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []TableInfo
	for rows.Next() {
		var t TableInfo
		if err := rows.Scan(&t.Schema, &t.Name, &t.RowCount); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}

	return tables, nil
}

// columnDef is one column as rendered into DDL text.
type columnDef struct {
	Name     string
	DataType string
	NotNull  bool
}

// tableColumns returns the column definitions for a table, in ordinal order.
func (w *PostgresWarehouse) tableColumns(ctx context.Context, tableName string) ([]columnDef, error) {
	const query = `
		SELECT
			c.column_name,
			c.data_type,
			c.character_maximum_length,
			c.is_nullable = 'NO' as not_null
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`

	rows, err := w.pool.Query(ctx, query, w.schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []columnDef
	for rows.Next() {
		var c columnDef
		var dataType string
		var charMaxLen *int
		if err := rows.Scan(&c.Name, &dataType, &charMaxLen, &c.NotNull); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		c.DataType = formatColumnType(dataType, charMaxLen)
		columns = append(columns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}

	return columns, nil
}

// formatColumnType renders an information_schema data type for DDL text,
// attaching the length for bounded character types.
func formatColumnType(dataType string, charMaxLen *int) string {
	t := strings.ToUpper(dataType)
	if charMaxLen != nil && *charMaxLen > 0 {
		return fmt.Sprintf("%s(%d)", t, *charMaxLen)
	}
	return t
}

// SchemaDDL renders CREATE TABLE statements for every table in the schema,
// with per-table descriptions as leading comments. A table whose columns
// cannot be read is skipped with a warning so one bad table does not hide
// the rest of the schema from the model.
func (w *PostgresWarehouse) SchemaDDL(ctx context.Context, descriptions map[string]string) (string, error) {
	tables, err := w.ListTables(ctx)
	if err != nil {
		return "", fmt.Errorf("list tables for DDL: %w", err)
	}

	var parts []string
	for _, t := range tables {
		columns, err := w.tableColumns(ctx, t.Name)
		if err != nil {
			w.logger.Warn("Skipping table in schema DDL",
				zap.String("table", t.Name),
				zap.Error(err))
			continue
		}
		parts = append(parts, renderCreateTable(qualifiedName(t.Schema, t.Name), descriptions[t.Name], columns))
	}

	return strings.Join(parts, "\n"), nil
}

// qualifiedName renders a table reference for DDL text. Tables in the
// default schema stay bare so generated SQL matches the worked examples.
func qualifiedName(schema, table string) string {
	if schema == "" || schema == "public" {
		return table
	}
	return schema + "." + table
}

// renderCreateTable renders one CREATE TABLE block with an optional
// leading description comment.
func renderCreateTable(qualified, description string, columns []columnDef) string {
	var b strings.Builder
	if description != "" {
		fmt.Fprintf(&b, "-- %s\n", description)
	}
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", qualified)
	for i, c := range columns {
		b.WriteString("  " + c.Name + " " + c.DataType)
		if c.NotNull {
			b.WriteString(" NOT NULL")
		}
		if i < len(columns)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(");\n")
	return b.String()
}

// DryRun validates a query without executing it.
func (w *PostgresWarehouse) DryRun(ctx context.Context, sqlQuery string) error {
	// EXPLAIN plans the query without running it.
	_, err := w.pool.Exec(ctx, "EXPLAIN "+sqlQuery)
	if err != nil {
		return fmt.Errorf("invalid SQL: %w", err)
	}
	return nil
}

// Execute runs a query and returns its rows with JSON-safe values.
func (w *PostgresWarehouse) Execute(ctx context.Context, sqlQuery string) (*ResultSet, error) {
	rows, err := w.pool.Query(ctx, sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]ColumnInfo, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = ColumnInfo{
			Name: string(fd.Name),
			Type: pgTypeNameFromOID(fd.DataTypeOID),
		}
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}

		rowMap := make(map[string]any)
		for i, col := range columns {
			rowMap[col.Name] = normalizeValue(values[i])
		}
		resultRows = append(resultRows, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &ResultSet{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}

// normalizeValue converts a pgx row value into a JSON-safe form:
// timestamps become RFC 3339 strings, byte slices and UUIDs become
// strings, native JSON scalars pass through, and anything else is
// stringified via its driver value or %v.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val.Format(time.RFC3339)
	case []byte:
		return string(val)
	case [16]byte:
		return uuid.UUID(val).String()
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return val
	}

	// pgtype wrappers (NUMERIC, INTERVAL, ...) expose a driver value that
	// reduces to a primitive.
	if valuer, ok := v.(driver.Valuer); ok {
		if dv, err := valuer.Value(); err == nil {
			switch d := dv.(type) {
			case nil:
				return nil
			case time.Time:
				return d.Format(time.RFC3339)
			case []byte:
				return string(d)
			case string, bool, int64, float64:
				return d
			}
		}
	}

	return fmt.Sprintf("%v", v)
}

// pgTypeNameFromOID maps PostgreSQL type OIDs to human-readable type names.
// Unknown types return "UNKNOWN".
func pgTypeNameFromOID(oid uint32) string {
	switch oid {
	case 16:
		return "BOOL"
	case 17:
		return "BYTEA"
	case 20:
		return "INT8"
	case 21:
		return "INT2"
	case 23:
		return "INT4"
	case 25:
		return "TEXT"
	case 114:
		return "JSON"
	case 700:
		return "FLOAT4"
	case 701:
		return "FLOAT8"
	case 1042:
		return "BPCHAR"
	case 1043:
		return "VARCHAR"
	case 1082:
		return "DATE"
	case 1083:
		return "TIME"
	case 1114:
		return "TIMESTAMP"
	case 1184:
		return "TIMESTAMPTZ"
	case 1186:
		return "INTERVAL"
	case 1700:
		return "NUMERIC"
	case 2950:
		return "UUID"
	case 3802:
		return "JSONB"
	case 1000:
		return "BOOL[]"
	case 1007:
		return "INT4[]"
	case 1016:
		return "INT8[]"
	case 1009:
		return "TEXT[]"
	case 1015:
		return "VARCHAR[]"
	default:
		return "UNKNOWN"
	}
}

// Ensure PostgresWarehouse implements Warehouse at compile time.
var _ Warehouse = (*PostgresWarehouse)(nil)
