package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/richipal/tmsagent/pkg/apperrors"
	"github.com/richipal/tmsagent/pkg/llm"
	"github.com/richipal/tmsagent/pkg/logging"
	"github.com/richipal/tmsagent/pkg/models"
	"github.com/richipal/tmsagent/pkg/prompts"
	"github.com/richipal/tmsagent/pkg/session"
	sqlutil "github.com/richipal/tmsagent/pkg/sql"
	"github.com/richipal/tmsagent/pkg/warehouse"
)

// generationTemperature keeps SQL output deterministic-ish. Anything
// higher produces creative joins nobody asked for.
const generationTemperature = 0.1

// GeneratorConfig holds SQL generation settings.
type GeneratorConfig struct {
	// RowCap is appended as a LIMIT when the model omits one.
	RowCap int
}

// DefaultGeneratorConfig returns the standard generation settings.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{RowCap: 80}
}

// Generation is the outcome of one question-to-SQL conversion.
type Generation struct {
	// SQL is the cleaned, row-capped statement ready for validation.
	SQL string
	// Resolution is the entity resolution outcome that shaped the prompt.
	Resolution models.ResolutionResult
}

// SQLGenerator converts a natural-language question into a single
// PostgreSQL SELECT, with entity resolution applied first.
type SQLGenerator interface {
	// ResolveAndGenerateSQL enhances the question with resolved entities,
	// renders the schema-grounded prompt, and asks the model for SQL.
	// turn may be nil on a first question.
	ResolveAndGenerateSQL(ctx context.Context, question string, turn *session.TurnContext) (*Generation, error)
}

type sqlGenerator struct {
	resolver  EntityResolver
	warehouse warehouse.Warehouse
	client    llm.LLMClient
	config    GeneratorConfig
	logger    *zap.Logger
}

// NewSQLGenerator creates the generator.
func NewSQLGenerator(resolver EntityResolver, wh warehouse.Warehouse, client llm.LLMClient, config GeneratorConfig, logger *zap.Logger) SQLGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.RowCap < 1 {
		config.RowCap = DefaultGeneratorConfig().RowCap
	}
	return &sqlGenerator{
		resolver:  resolver,
		warehouse: wh,
		client:    client,
		config:    config,
		logger:    logger.Named("sql-generator"),
	}
}

// ResolveAndGenerateSQL implements SQLGenerator.
func (g *sqlGenerator) ResolveAndGenerateSQL(ctx context.Context, question string, turn *session.TurnContext) (*Generation, error) {
	resolution := g.resolver.EnhanceQuery(ctx, question, turn)

	schemaDDL, err := g.warehouse.SchemaDDL(ctx, prompts.TableDescriptions())
	if err != nil {
		return nil, err
	}

	prompt := prompts.BuildNL2SQL(prompts.NL2SQLInput{
		Question:   resolution.EnhancedQuery,
		SchemaDDL:  schemaDDL,
		Resolution: &resolution,
		Turn:       turn,
		RowCap:     g.config.RowCap,
	})

	raw, err := g.client.GenerateResponse(ctx, prompt, prompts.SystemMessage(), generationTemperature)
	if err != nil {
		return nil, err
	}

	sqlQuery := strings.TrimSpace(sqlutil.StripCodeFences(raw))
	if sqlQuery == "" {
		g.logger.Warn("Model returned no usable SQL",
			zap.String("question", logging.TruncateString(question, 200)))
		return nil, apperrors.ErrNoUsableSQL
	}
	sqlQuery = sqlutil.EnsureRowLimit(sqlQuery, g.config.RowCap)

	g.logger.Info("Generated SQL",
		zap.String("question", logging.TruncateString(question, 200)),
		zap.String("sql", logging.SanitizeSQL(sqlQuery)),
		zap.Float64("resolution_confidence", resolution.OverallConfidence),
		zap.Bool("used_fallback", resolution.UsedFallback))

	return &Generation{SQL: sqlQuery, Resolution: resolution}, nil
}

var _ SQLGenerator = (*sqlGenerator)(nil)
