package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/richipal/tmsagent/pkg/models"
	"github.com/richipal/tmsagent/pkg/session"
)

// AskResult is the full outcome of one conversational turn: the resolution
// that shaped the prompt, the SQL that ran, and what came back.
type AskResult struct {
	Question   string                  `json:"question"`
	Resolution models.ResolutionResult `json:"resolution"`
	Result     *models.QueryResult     `json:"result"`
}

// Pipeline is the conversational front door: it threads session history
// through generation and execution and records the turn afterwards.
type Pipeline interface {
	// Ask answers one question in the given session. Session history, when
	// present, feeds follow-up phrasing ("what about last month?") into the
	// prompt; the completed turn is saved for the next question.
	Ask(ctx context.Context, question, sessionID string) (*AskResult, error)

	// SuggestCorrections surfaces "did you mean" candidates for the
	// question's mentions without generating or running any SQL.
	SuggestCorrections(ctx context.Context, question string, maxPerEntity int) []models.EntitySuggestion

	// ClearSession drops a session's stored turn context.
	ClearSession(ctx context.Context, sessionID string) error
}

type pipeline struct {
	generator SQLGenerator
	executor  QueryExecutor
	resolver  EntityResolver
	sessions  session.Store
	logger    *zap.Logger
}

// NewPipeline wires the conversational facade.
func NewPipeline(generator SQLGenerator, executor QueryExecutor, resolver EntityResolver, sessions session.Store, logger *zap.Logger) Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &pipeline{
		generator: generator,
		executor:  executor,
		resolver:  resolver,
		sessions:  sessions,
		logger:    logger.Named("pipeline"),
	}
}

// Ask implements Pipeline.
func (p *pipeline) Ask(ctx context.Context, question, sessionID string) (*AskResult, error) {
	turn, err := p.sessions.Get(ctx, sessionID)
	if err != nil {
		// A broken session store degrades to a first-question experience.
		p.logger.Warn("Failed to load session context", zap.String("session_id", sessionID), zap.Error(err))
		turn = nil
	}

	generation, err := p.generator.ResolveAndGenerateSQL(ctx, question, turn)
	if err != nil {
		return nil, err
	}

	result, err := p.executor.ValidateAndExecute(ctx, generation.SQL, question, sessionID)
	if err != nil {
		return nil, err
	}

	next := session.NewTurnContext(sessionID).
		WithQuery(question).
		WithSQL(result.SQL).
		WithResponse(summarizeResult(result)).
		WithResultSample(result.Rows).
		WithResolvedEntities(generation.Resolution.Entities)
	if err := p.sessions.Save(ctx, next); err != nil {
		p.logger.Warn("Failed to save session context", zap.String("session_id", sessionID), zap.Error(err))
	}

	return &AskResult{
		Question:   question,
		Resolution: generation.Resolution,
		Result:     result,
	}, nil
}

// SuggestCorrections implements Pipeline.
func (p *pipeline) SuggestCorrections(ctx context.Context, question string, maxPerEntity int) []models.EntitySuggestion {
	return p.resolver.SuggestCorrections(ctx, question, maxPerEntity)
}

// ClearSession implements Pipeline.
func (p *pipeline) ClearSession(ctx context.Context, sessionID string) error {
	return p.sessions.Delete(ctx, sessionID)
}

// summarizeResult renders a one-line answer summary for session history.
// The next turn's prompt carries this, so it stays short.
func summarizeResult(result *models.QueryResult) string {
	if result.RowCount == 0 {
		return "No matching rows were found."
	}
	if result.RowCount == 1 {
		return "Returned 1 row."
	}
	return fmt.Sprintf("Returned %d rows.", result.RowCount)
}

var _ Pipeline = (*pipeline)(nil)
