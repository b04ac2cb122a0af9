package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/richipal/tmsagent/pkg/llm"
	"github.com/richipal/tmsagent/pkg/models"
	"github.com/richipal/tmsagent/pkg/vector"
	"github.com/richipal/tmsagent/pkg/warehouse"
)

// extractionSpec defines how canonical values for one category are pulled
// out of the warehouse: the query, the column holding the entity text, and
// the columns copied into record metadata.
type extractionSpec struct {
	query           string
	textColumn      string
	metadataColumns []string
	requiredTables  []string
}

// extractionSpecs is the per-category extraction configuration. Queries
// return distinct, trimmed, non-empty values only; case-insensitive
// duplicates are handled by the indexer's seen-set, not the SQL.
var extractionSpecs = map[models.EntityCategory]extractionSpec{
	models.CategoryPerson: {
		query: `SELECT DISTINCT
			TRIM(COALESCE(first_name, '') || ' ' || COALESCE(last_name, '')) AS full_name,
			id AS employee_id,
			location_id
		FROM employee
		WHERE first_name IS NOT NULL AND last_name IS NOT NULL
			AND TRIM(first_name) <> '' AND TRIM(last_name) <> ''`,
		textColumn:      "full_name",
		metadataColumns: []string{"employee_id", "location_id"},
		requiredTables:  []string{"employee"},
	},
	models.CategoryPlace: {
		query: `SELECT DISTINCT name, id AS location_id, code
		FROM location
		WHERE name IS NOT NULL AND TRIM(name) <> ''`,
		textColumn:      "name",
		metadataColumns: []string{"location_id", "code"},
		requiredTables:  []string{"location"},
	},
	models.CategoryActivity: {
		query: `SELECT DISTINCT
			description AS name, id AS activity_id, code, type AS activity_type, active
		FROM activity
		WHERE description IS NOT NULL AND TRIM(description) <> ''`,
		textColumn:      "name",
		metadataColumns: []string{"activity_id", "code", "activity_type", "active"},
		requiredTables:  []string{"activity"},
	},
	models.CategoryDepartment: {
		query: `SELECT DISTINCT department AS name
		FROM employee
		WHERE department IS NOT NULL AND TRIM(department) <> ''`,
		textColumn:      "name",
		metadataColumns: nil,
		requiredTables:  []string{"employee"},
	},
}

// EntityIndexer builds and maintains the per-category entity indexes from
// warehouse data.
type EntityIndexer interface {
	// BuildIndex extracts one category's canonical values and indexes
	// them. With reset, the category is cleared first. Per-value failures
	// are collected in the report, never raised.
	BuildIndex(ctx context.Context, category models.EntityCategory, reset bool) models.IndexReport

	// BuildAllIndexes builds every category. One category's failure does
	// not abort the others.
	BuildAllIndexes(ctx context.Context, reset bool) map[models.EntityCategory]models.IndexReport

	// RefreshIndex resets and rebuilds one category.
	RefreshIndex(ctx context.Context, category models.EntityCategory) models.IndexReport

	// ValidateExtractionConfig checks that the warehouse holds the tables
	// the extraction queries need. Structured report, never an error.
	ValidateExtractionConfig(ctx context.Context) models.ValidationReport
}

type entityIndexer struct {
	warehouse warehouse.Warehouse
	store     vector.Store
	pool      *llm.WorkerPool
	logger    *zap.Logger
}

// NewEntityIndexer creates the indexer. Inserts run through the worker
// pool so embedding hundreds of values does not flood the endpoint.
func NewEntityIndexer(wh warehouse.Warehouse, store vector.Store, pool *llm.WorkerPool, logger *zap.Logger) EntityIndexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &entityIndexer{
		warehouse: wh,
		store:     store,
		pool:      pool,
		logger:    logger.Named("entity-indexer"),
	}
}

// BuildIndex implements EntityIndexer.
func (i *entityIndexer) BuildIndex(ctx context.Context, category models.EntityCategory, reset bool) models.IndexReport {
	report := models.IndexReport{Category: category}

	spec, ok := extractionSpecs[category]
	if !ok {
		report.Errors = append(report.Errors, fmt.Sprintf("unknown entity category: %s", category))
		return report
	}

	if reset {
		i.logger.Info("Resetting entity index", zap.String("category", string(category)))
		if !i.store.Reset(ctx, category) {
			report.Errors = append(report.Errors, fmt.Sprintf("failed to reset index for %s", category))
			return report
		}
	}

	result, err := i.warehouse.Execute(ctx, spec.query)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("extraction query failed: %v", err))
		return report
	}
	report.TotalExtracted = result.RowCount

	i.logger.Info("Extracted entities from warehouse",
		zap.String("category", string(category)),
		zap.Int("count", result.RowCount))

	type insertJob struct {
		text     string
		metadata map[string]string
	}

	seen := make(map[string]struct{}, result.RowCount)
	var jobs []insertJob

	for _, row := range result.Rows {
		text := strings.TrimSpace(stringValue(row[spec.textColumn]))
		if text == "" {
			continue
		}

		key := strings.ToLower(text)
		if _, dup := seen[key]; dup {
			report.DuplicatesSkipped++
			continue
		}
		seen[key] = struct{}{}

		// An incremental build skips values already indexed instead of
		// re-embedding them; a rebuild after reset sees an empty index.
		if !reset && i.store.Has(ctx, text, category) {
			report.DuplicatesSkipped++
			continue
		}

		metadata := map[string]string{
			"entity_type": string(category),
			"source":      "warehouse",
		}
		for _, col := range spec.metadataColumns {
			if v, present := row[col]; present && v != nil {
				metadata[col] = stringValue(v)
			}
		}

		jobs = append(jobs, insertJob{text: text, metadata: metadata})
	}

	items := make([]llm.WorkItem[string], len(jobs))
	for idx, job := range jobs {
		job := job
		items[idx] = llm.WorkItem[string]{
			ID: job.text,
			Execute: func(ctx context.Context) (string, error) {
				if !i.store.Insert(ctx, job.text, category, job.metadata) {
					return job.text, fmt.Errorf("failed to index entity: %s", job.text)
				}
				return job.text, nil
			},
		}
	}

	for _, res := range llm.Process(ctx, i.pool, items, nil) {
		if res.Err != nil {
			report.Errors = append(report.Errors, res.Err.Error())
			continue
		}
		report.SuccessfullyIndexed++
	}

	i.logger.Info("Index build complete",
		zap.String("category", string(category)),
		zap.Int("indexed", report.SuccessfullyIndexed),
		zap.Int("duplicates_skipped", report.DuplicatesSkipped),
		zap.Int("errors", len(report.Errors)))

	return report
}

// BuildAllIndexes implements EntityIndexer.
func (i *entityIndexer) BuildAllIndexes(ctx context.Context, reset bool) map[models.EntityCategory]models.IndexReport {
	reports := make(map[models.EntityCategory]models.IndexReport, len(models.AllCategories()))
	for _, category := range models.AllCategories() {
		reports[category] = i.BuildIndex(ctx, category, reset)
	}

	var indexed, failed int
	for _, report := range reports {
		indexed += report.SuccessfullyIndexed
		failed += len(report.Errors)
	}
	i.logger.Info("All index builds complete",
		zap.Int("total_indexed", indexed),
		zap.Int("total_errors", failed))

	return reports
}

// RefreshIndex implements EntityIndexer.
func (i *entityIndexer) RefreshIndex(ctx context.Context, category models.EntityCategory) models.IndexReport {
	return i.BuildIndex(ctx, category, true)
}

// ValidateExtractionConfig implements EntityIndexer.
func (i *entityIndexer) ValidateExtractionConfig(ctx context.Context) models.ValidationReport {
	report := models.ValidationReport{Valid: true}

	tables, err := i.warehouse.ListTables(ctx)
	if err != nil {
		report.AddError(fmt.Sprintf("warehouse connectivity issue: %v", err))
		return report
	}
	if len(tables) == 0 {
		report.AddWarning("no tables found in the warehouse schema")
	}

	available := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		available[strings.ToLower(t.Name)] = struct{}{}
	}

	required := make(map[string]struct{})
	for _, spec := range extractionSpecs {
		for _, table := range spec.requiredTables {
			required[table] = struct{}{}
		}
	}

	var missing []string
	for table := range required {
		if _, ok := available[table]; !ok {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		report.AddError(fmt.Sprintf("missing required tables: %s", strings.Join(missing, ", ")))
	}

	return report
}

// stringValue renders a warehouse cell for metadata storage. Result rows
// are already JSON-safe, so this only needs to flatten scalars.
func stringValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	default:
		return fmt.Sprintf("%v", value)
	}
}

// Ensure entityIndexer implements EntityIndexer at compile time.
var _ EntityIndexer = (*entityIndexer)(nil)
