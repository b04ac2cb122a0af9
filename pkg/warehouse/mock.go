package warehouse

import "context"

// MockWarehouse is a configurable mock for testing pipeline components.
// Set the function fields to control behavior in tests.
type MockWarehouse struct {
	// ListTablesFunc is called when ListTables is invoked.
	// If nil, returns an empty slice and nil error.
	ListTablesFunc func(ctx context.Context) ([]TableInfo, error)

	// SchemaDDLFunc is called when SchemaDDL is invoked.
	// If nil, returns an empty string and nil error.
	SchemaDDLFunc func(ctx context.Context, descriptions map[string]string) (string, error)

	// DryRunFunc is called when DryRun is invoked. If nil, returns nil.
	DryRunFunc func(ctx context.Context, sqlQuery string) error

	// ExecuteFunc is called when Execute is invoked.
	// If nil, returns an empty ResultSet and nil error.
	ExecuteFunc func(ctx context.Context, sqlQuery string) (*ResultSet, error)

	// Call tracking for verification
	ListTablesCalls int
	SchemaDDLCalls  int
	DryRunCalls     int
	ExecuteCalls    int

	// Statements received, in call order. Tests use these to assert that
	// rejected SQL never reached the warehouse.
	DryRunStatements  []string
	ExecuteStatements []string
}

// NewMockWarehouse creates a new mock with empty defaults.
func NewMockWarehouse() *MockWarehouse {
	return &MockWarehouse{}
}

// ListTables implements Warehouse.
func (m *MockWarehouse) ListTables(ctx context.Context) ([]TableInfo, error) {
	m.ListTablesCalls++
	if m.ListTablesFunc != nil {
		return m.ListTablesFunc(ctx)
	}
	return []TableInfo{}, nil
}

// SchemaDDL implements Warehouse.
func (m *MockWarehouse) SchemaDDL(ctx context.Context, descriptions map[string]string) (string, error) {
	m.SchemaDDLCalls++
	if m.SchemaDDLFunc != nil {
		return m.SchemaDDLFunc(ctx, descriptions)
	}
	return "", nil
}

// DryRun implements Warehouse.
func (m *MockWarehouse) DryRun(ctx context.Context, sqlQuery string) error {
	m.DryRunCalls++
	m.DryRunStatements = append(m.DryRunStatements, sqlQuery)
	if m.DryRunFunc != nil {
		return m.DryRunFunc(ctx, sqlQuery)
	}
	return nil
}

// Execute implements Warehouse.
func (m *MockWarehouse) Execute(ctx context.Context, sqlQuery string) (*ResultSet, error) {
	m.ExecuteCalls++
	m.ExecuteStatements = append(m.ExecuteStatements, sqlQuery)
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, sqlQuery)
	}
	return &ResultSet{Rows: []map[string]any{}}, nil
}

// Reset clears call tracking counters.
func (m *MockWarehouse) Reset() {
	m.ListTablesCalls = 0
	m.SchemaDDLCalls = 0
	m.DryRunCalls = 0
	m.ExecuteCalls = 0
	m.DryRunStatements = nil
	m.ExecuteStatements = nil
}

// Ensure MockWarehouse implements Warehouse at compile time.
var _ Warehouse = (*MockWarehouse)(nil)
