// Package session holds per-conversation state between questions: the
// previous question, the SQL it produced, a small sample of its rows, and
// the entities resolution substituted. The pipeline reads a turn before
// generating and writes the new turn after executing; everything else in
// the core is stateless.
package session

import (
	"time"

	"github.com/richipal/tmsagent/pkg/models"
)

// MaxResultSampleRows bounds how many rows of a previous result are kept
// for prompt context. Two rows are enough for the model to see column
// shapes without bloating the prompt.
const MaxResultSampleRows = 2

// TurnContext is the closed set of fields carried between turns. Every
// field is named so a typo in a consumer is a compile error, not a silent
// nil out of a string-keyed bag.
type TurnContext struct {
	SessionID        string                  `json:"session_id"`
	LastQuery        string                  `json:"last_query,omitempty"`
	LastSQL          string                  `json:"last_sql,omitempty"`
	LastResponse     string                  `json:"last_response,omitempty"`
	LastResultSample []map[string]any        `json:"last_result_sample,omitempty"`
	ResolvedEntities []models.ResolvedEntity `json:"resolved_entities,omitempty"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

// NewTurnContext creates an empty context for a session.
func NewTurnContext(sessionID string) *TurnContext {
	return &TurnContext{SessionID: sessionID}
}

// WithQuery returns a copy with the question that opened this turn.
func (c *TurnContext) WithQuery(query string) *TurnContext {
	next := *c
	next.LastQuery = query
	return &next
}

// WithSQL returns a copy with the SQL generated this turn.
func (c *TurnContext) WithSQL(sqlText string) *TurnContext {
	next := *c
	next.LastSQL = sqlText
	return &next
}

// WithResponse returns a copy with the answer text shown to the user.
func (c *TurnContext) WithResponse(response string) *TurnContext {
	next := *c
	next.LastResponse = response
	return &next
}

// WithResultSample returns a copy holding at most MaxResultSampleRows of
// the turn's result rows.
func (c *TurnContext) WithResultSample(rows []map[string]any) *TurnContext {
	next := *c
	if len(rows) > MaxResultSampleRows {
		rows = rows[:MaxResultSampleRows]
	}
	next.LastResultSample = rows
	return &next
}

// WithResolvedEntities returns a copy with the entities resolution
// substituted this turn.
func (c *TurnContext) WithResolvedEntities(entities []models.ResolvedEntity) *TurnContext {
	next := *c
	next.ResolvedEntities = entities
	return &next
}

// HasHistory reports whether this context carries a previous turn worth
// including in a prompt.
func (c *TurnContext) HasHistory() bool {
	return c != nil && c.LastQuery != ""
}
