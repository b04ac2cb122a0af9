package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/richipal/tmsagent/pkg/audit"
	"github.com/richipal/tmsagent/pkg/logging"
	"github.com/richipal/tmsagent/pkg/models"
	sqlutil "github.com/richipal/tmsagent/pkg/sql"
	"github.com/richipal/tmsagent/pkg/warehouse"
)

// ExecutorConfig holds query validation and execution settings.
type ExecutorConfig struct {
	// RowCap marks a result as truncated when it comes back full.
	RowCap int
	// QueryTimeout bounds a single warehouse query.
	QueryTimeout time.Duration
}

// DefaultExecutorConfig returns the standard execution settings.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		RowCap:       80,
		QueryTimeout: 30 * time.Second,
	}
}

// QueryExecutor runs generated SQL through the safety gauntlet and, if it
// survives, against the warehouse.
type QueryExecutor interface {
	// ValidateAndExecute validates a generated statement (destructive
	// keywords, multi-statement, injection in literals, dry-run) and
	// executes it. An empty result set is not an error: the result carries
	// a no-results analysis instead.
	ValidateAndExecute(ctx context.Context, sqlQuery, originalQuestion, sessionID string) (*models.QueryResult, error)
}

type queryExecutor struct {
	warehouse warehouse.Warehouse
	resolver  EntityResolver
	auditor   *audit.SecurityAuditor
	config    ExecutorConfig
	logger    *zap.Logger
}

// NewQueryExecutor creates the executor. The resolver is consulted only
// when a query comes back empty.
func NewQueryExecutor(wh warehouse.Warehouse, resolver EntityResolver, auditor *audit.SecurityAuditor, config ExecutorConfig, logger *zap.Logger) QueryExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.RowCap < 1 {
		config.RowCap = DefaultExecutorConfig().RowCap
	}
	if config.QueryTimeout <= 0 {
		config.QueryTimeout = DefaultExecutorConfig().QueryTimeout
	}
	return &queryExecutor{
		warehouse: wh,
		resolver:  resolver,
		auditor:   auditor,
		config:    config,
		logger:    logger.Named("query-executor"),
	}
}

// ValidateAndExecute implements QueryExecutor. Guards run cheapest-first
// and everything is checked before the warehouse sees a single byte.
func (e *queryExecutor) ValidateAndExecute(ctx context.Context, sqlQuery, originalQuestion, sessionID string) (*models.QueryResult, error) {
	sqlQuery = strings.TrimSpace(sqlutil.StripCodeFences(sqlQuery))

	if err := sqlutil.CheckDestructive(sqlQuery); err != nil {
		var destructive *sqlutil.DestructiveStatementError
		if errors.As(err, &destructive) {
			e.auditor.LogDestructiveRejection(ctx, sessionID, destructive.Keyword, sqlQuery)
		}
		return nil, err
	}

	validation := sqlutil.ValidateAndNormalize(sqlQuery)
	if validation.Error != nil {
		return nil, validation.Error
	}
	sqlQuery = validation.NormalizedSQL

	for _, check := range sqlutil.CheckLiteralsForInjection(sqlQuery) {
		if check.IsSQLi {
			e.auditor.LogInjectionAttempt(ctx, sessionID, check.Literal, check.Fingerprint, sqlQuery)
			return nil, errors.New("query rejected: string literal failed injection screening")
		}
	}

	queryCtx, cancel := context.WithTimeout(ctx, e.config.QueryTimeout)
	defer cancel()

	if err := e.warehouse.DryRun(queryCtx, sqlQuery); err != nil {
		e.logger.Warn("Dry run rejected statement",
			zap.String("sql", logging.SanitizeSQL(sqlQuery)),
			zap.Error(err))
		return nil, err
	}

	resultSet, err := e.warehouse.Execute(queryCtx, sqlQuery)
	if err != nil {
		return nil, err
	}

	e.auditor.LogQueryExecution(ctx, sessionID, sqlQuery, resultSet.RowCount)

	result := &models.QueryResult{
		SQL:       sqlQuery,
		Columns:   resultSet.ColumnNames(),
		Rows:      resultSet.Rows,
		RowCount:  resultSet.RowCount,
		Truncated: resultSet.RowCount >= e.config.RowCap,
	}

	if resultSet.RowCount == 0 {
		analysis := e.resolver.HandleNoResults(ctx, originalQuestion, sqlQuery)
		result.NoResultsAnalysis = &analysis
		result.EntitySuggestions = analysis.Suggestions
		e.logger.Info("Query returned no rows",
			zap.String("question", logging.TruncateString(originalQuestion, 200)),
			zap.Int("suggestions", len(analysis.Suggestions)))
	}

	return result, nil
}

var _ QueryExecutor = (*queryExecutor)(nil)
