package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richipal/tmsagent/pkg/llm"
	"github.com/richipal/tmsagent/pkg/models"
	"github.com/richipal/tmsagent/pkg/vector"
	"github.com/richipal/tmsagent/pkg/warehouse"
)

func newTestPool() *llm.WorkerPool {
	return llm.NewWorkerPool(llm.WorkerPoolConfig{MaxConcurrent: 2}, nil)
}

func employeeRows(rows ...map[string]any) *warehouse.ResultSet {
	return &warehouse.ResultSet{
		Columns: []warehouse.ColumnInfo{
			{Name: "full_name", Type: "text"},
			{Name: "employee_id", Type: "int8"},
			{Name: "location_id", Type: "int8"},
		},
		Rows:     rows,
		RowCount: len(rows),
	}
}

func TestBuildIndexPersons(t *testing.T) {
	wh := warehouse.NewMockWarehouse()
	wh.ExecuteFunc = func(_ context.Context, _ string) (*warehouse.ResultSet, error) {
		return employeeRows(
			map[string]any{"full_name": "Rosalinda Rodriguez", "employee_id": int64(1042), "location_id": int64(61)},
			map[string]any{"full_name": "Maria Santos", "employee_id": int64(1043), "location_id": nil},
			map[string]any{"full_name": "MARIA SANTOS", "employee_id": int64(1044), "location_id": int64(61)},
			map[string]any{"full_name": "   ", "employee_id": int64(1045), "location_id": int64(61)},
		), nil
	}

	store := vector.NewFakeStore(0.5)
	indexer := NewEntityIndexer(wh, store, newTestPool(), nil)

	report := indexer.BuildIndex(context.Background(), models.CategoryPerson, false)

	assert.Equal(t, models.CategoryPerson, report.Category)
	assert.Equal(t, 4, report.TotalExtracted)
	assert.Equal(t, 2, report.SuccessfullyIndexed)
	assert.Equal(t, 1, report.DuplicatesSkipped) // case-variant duplicate
	assert.Empty(t, report.Errors)

	count, err := store.Count(context.Background(), models.CategoryPerson)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	matches := store.Search(context.Background(), "Rosalinda Rodriguez", models.CategoryPerson, 1)
	require.Len(t, matches, 1)
	assert.Equal(t, "1042", matches[0].Record.Metadata["employee_id"])
	assert.Equal(t, "61", matches[0].Record.Metadata["location_id"])
	assert.Equal(t, "person", matches[0].Record.Metadata["entity_type"])
}

func TestBuildIndexSkipsNilMetadataColumns(t *testing.T) {
	wh := warehouse.NewMockWarehouse()
	wh.ExecuteFunc = func(_ context.Context, _ string) (*warehouse.ResultSet, error) {
		return employeeRows(
			map[string]any{"full_name": "Maria Santos", "employee_id": int64(1043), "location_id": nil},
		), nil
	}

	store := vector.NewFakeStore(0.5)
	indexer := NewEntityIndexer(wh, store, newTestPool(), nil)
	indexer.BuildIndex(context.Background(), models.CategoryPerson, false)

	matches := store.Search(context.Background(), "Maria Santos", models.CategoryPerson, 1)
	require.Len(t, matches, 1)
	_, hasLocation := matches[0].Record.Metadata["location_id"]
	assert.False(t, hasLocation)
}

func TestBuildIndexRerunWithoutResetSkipsIndexedValues(t *testing.T) {
	ctx := context.Background()

	wh := warehouse.NewMockWarehouse()
	wh.ExecuteFunc = func(_ context.Context, _ string) (*warehouse.ResultSet, error) {
		return employeeRows(
			map[string]any{"full_name": "Rosalinda Rodriguez", "employee_id": int64(1), "location_id": int64(1)},
			map[string]any{"full_name": "Maria Santos", "employee_id": int64(2), "location_id": int64(1)},
		), nil
	}

	store := vector.NewFakeStore(0.5)
	indexer := NewEntityIndexer(wh, store, newTestPool(), nil)

	first := indexer.BuildIndex(ctx, models.CategoryPerson, false)
	assert.Equal(t, 2, first.SuccessfullyIndexed)
	assert.Equal(t, 0, first.DuplicatesSkipped)

	second := indexer.BuildIndex(ctx, models.CategoryPerson, false)
	assert.Equal(t, 0, second.SuccessfullyIndexed)
	assert.Equal(t, second.TotalExtracted, second.DuplicatesSkipped)

	count, err := store.Count(ctx, models.CategoryPerson)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestBuildIndexCollectsInsertFailures(t *testing.T) {
	wh := warehouse.NewMockWarehouse()
	wh.ExecuteFunc = func(_ context.Context, _ string) (*warehouse.ResultSet, error) {
		return employeeRows(
			map[string]any{"full_name": "Rosalinda Rodriguez", "employee_id": int64(1), "location_id": int64(1)},
			map[string]any{"full_name": "Maria Santos", "employee_id": int64(2), "location_id": int64(1)},
		), nil
	}

	store := vector.NewFakeStore(0.5)
	store.FailInserts = true
	indexer := NewEntityIndexer(wh, store, newTestPool(), nil)

	report := indexer.BuildIndex(context.Background(), models.CategoryPerson, false)

	assert.Equal(t, 0, report.SuccessfullyIndexed)
	assert.Len(t, report.Errors, 2)
}

func TestBuildIndexExtractionFailure(t *testing.T) {
	wh := warehouse.NewMockWarehouse()
	wh.ExecuteFunc = func(_ context.Context, _ string) (*warehouse.ResultSet, error) {
		return nil, errors.New("relation \"employee\" does not exist")
	}

	indexer := NewEntityIndexer(wh, vector.NewFakeStore(0.5), newTestPool(), nil)
	report := indexer.BuildIndex(context.Background(), models.CategoryPerson, false)

	assert.Equal(t, 0, report.TotalExtracted)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "extraction query failed")
}

func TestBuildIndexUnknownCategory(t *testing.T) {
	indexer := NewEntityIndexer(warehouse.NewMockWarehouse(), vector.NewFakeStore(0.5), newTestPool(), nil)

	report := indexer.BuildIndex(context.Background(), models.EntityCategory("galaxy"), false)

	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "unknown entity category")
}

func TestRefreshIndexReplacesExistingRecords(t *testing.T) {
	ctx := context.Background()

	store := vector.NewFakeStore(0.5)
	store.Insert(ctx, "Stale Person", models.CategoryPerson, nil)

	wh := warehouse.NewMockWarehouse()
	wh.ExecuteFunc = func(_ context.Context, _ string) (*warehouse.ResultSet, error) {
		return employeeRows(
			map[string]any{"full_name": "Maria Santos", "employee_id": int64(1), "location_id": int64(1)},
		), nil
	}

	indexer := NewEntityIndexer(wh, store, newTestPool(), nil)
	report := indexer.RefreshIndex(ctx, models.CategoryPerson)

	assert.Equal(t, 1, report.SuccessfullyIndexed)
	count, err := store.Count(ctx, models.CategoryPerson)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBuildAllIndexesIsolatesFailures(t *testing.T) {
	wh := warehouse.NewMockWarehouse()
	wh.ExecuteFunc = func(_ context.Context, sqlQuery string) (*warehouse.ResultSet, error) {
		// Only the location extraction works; the employee-backed
		// categories fail.
		if !strings.Contains(sqlQuery, "FROM location") {
			return nil, errors.New("permission denied")
		}
		return &warehouse.ResultSet{
			Columns:  []warehouse.ColumnInfo{{Name: "name", Type: "text"}},
			Rows:     []map[string]any{{"name": "Roosevelt High School", "location_id": int64(61), "code": "061"}},
			RowCount: 1,
		}, nil
	}

	indexer := NewEntityIndexer(wh, vector.NewFakeStore(0.5), newTestPool(), nil)
	reports := indexer.BuildAllIndexes(context.Background(), false)

	require.Len(t, reports, len(models.AllCategories()))
	assert.Equal(t, 1, reports[models.CategoryPlace].SuccessfullyIndexed)
	assert.NotEmpty(t, reports[models.CategoryPerson].Errors)
	assert.NotEmpty(t, reports[models.CategoryActivity].Errors)
	assert.NotEmpty(t, reports[models.CategoryDepartment].Errors)
}

func TestValidateExtractionConfig(t *testing.T) {
	tests := []struct {
		name       string
		tables     []warehouse.TableInfo
		listErr    error
		wantValid  bool
		wantErrSub string
	}{
		{
			name: "all required tables present",
			tables: []warehouse.TableInfo{
				{Name: "employee"}, {Name: "location"}, {Name: "activity"}, {Name: "time_entry"},
			},
			wantValid: true,
		},
		{
			name:       "missing table",
			tables:     []warehouse.TableInfo{{Name: "employee"}, {Name: "location"}},
			wantValid:  false,
			wantErrSub: "activity",
		},
		{
			name:       "warehouse unreachable",
			listErr:    errors.New("connection refused"),
			wantValid:  false,
			wantErrSub: "connectivity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wh := warehouse.NewMockWarehouse()
			wh.ListTablesFunc = func(_ context.Context) ([]warehouse.TableInfo, error) {
				return tt.tables, tt.listErr
			}

			indexer := NewEntityIndexer(wh, vector.NewFakeStore(0.5), newTestPool(), nil)
			report := indexer.ValidateExtractionConfig(context.Background())

			assert.Equal(t, tt.wantValid, report.Valid)
			if tt.wantErrSub != "" {
				require.NotEmpty(t, report.Errors)
				found := false
				for _, e := range report.Errors {
					if strings.Contains(e, tt.wantErrSub) {
						found = true
					}
				}
				assert.True(t, found, "expected an error mentioning %q, got %v", tt.wantErrSub, report.Errors)
			}
		})
	}
}
