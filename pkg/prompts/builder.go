package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/richipal/tmsagent/pkg/models"
	"github.com/richipal/tmsagent/pkg/session"
)

// nl2sqlSystemMessage pins the model's role for the generation call.
const nl2sqlSystemMessage = "You are a PostgreSQL expert for a Time Management System. You respond with a single SQL query and nothing else."

// NL2SQLInput carries everything the prompt builder needs for one
// generation call.
type NL2SQLInput struct {
	// Question is the (entity-enhanced) user question.
	Question string
	// SchemaDDL is the rendered warehouse schema.
	SchemaDDL string
	// Resolution is the outcome of entity resolution for this question;
	// nil when resolution was skipped.
	Resolution *models.ResolutionResult
	// Turn is the previous conversation turn; nil on a first question.
	Turn *session.TurnContext
	// RowCap is stated in the guidelines so the model caps its own output;
	// enforcement happens downstream regardless.
	RowCap int
}

// SystemMessage returns the system message for the NL2SQL call.
func SystemMessage() string {
	return nl2sqlSystemMessage
}

// BuildNL2SQL assembles the single-call NL2SQL prompt. Section order
// matters: schema and rules first, the question last, so the model's
// recency bias works for us.
func BuildNL2SQL(in NL2SQLInput) string {
	var b strings.Builder

	b.WriteString("Convert the following natural language question to a valid PostgreSQL query.\n\n")

	b.WriteString("Database Schema:\n")
	b.WriteString(in.SchemaDDL)
	b.WriteString("\n\n")

	b.WriteString("Business Context:\n")
	b.WriteString(BusinessRules)
	b.WriteString("\n\n")

	if docs := RelevantDocs(in.Question); docs != "" {
		b.WriteString("Relevant Table Documentation:\n")
		b.WriteString(docs)
		b.WriteString("\n")
	}

	if block := ResolutionContextBlock(in.Resolution); block != "" {
		b.WriteString(block)
	}

	if block := conversationContextBlock(in.Turn); block != "" {
		b.WriteString(block)
	}

	b.WriteString("Worked Examples:\n")
	b.WriteString(renderExamples())
	b.WriteString("\n\n")

	fmt.Fprintf(&b, `Guidelines:
1. Return only the SQL query, no explanations and no markdown fencing
2. Limit results to at most %d rows using a LIMIT clause
3. Generate a single read-only SELECT statement
4. Use PostgreSQL syntax and functions (EXTRACT, INTERVAL, LOWER)
5. For aggregations, use proper GROUP BY clauses
6. Apply the business rules where relevant (status codes, activity types, the zero-interval time calculation)
7. Use LOWER() with LIKE for case-insensitive text matching

Question: %s

SQL Query:`, in.RowCap, in.Question)

	return b.String()
}

// ResolutionContextBlock renders the entity resolution audit trail for the
// prompt: one line per substituted entity plus the overall confidence or
// the fallback note. Empty when nothing was resolved.
func ResolutionContextBlock(result *models.ResolutionResult) string {
	if result == nil || len(result.Entities) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("ENTITY RESOLUTION CONTEXT:\n")
	for _, e := range result.Entities {
		fmt.Fprintf(&b, "- User input '%s' resolved to '%s' (type: %s, confidence: %.2f)\n",
			e.Original, e.Resolved, e.Category, e.Confidence)
	}
	if result.UsedFallback {
		b.WriteString("Note: Low confidence resolution, using original query\n")
	} else {
		fmt.Fprintf(&b, "Overall confidence: %.2f\n", result.OverallConfidence)
	}
	b.WriteString("\n")
	return b.String()
}

// conversationContextBlock renders the previous turn for follow-up
// questions ("who else works there"). Pronoun back-references are resolved
// by the model from this block; there is no separate coreference step.
func conversationContextBlock(turn *session.TurnContext) string {
	if !turn.HasHistory() {
		return ""
	}

	var b strings.Builder
	b.WriteString("CONVERSATION CONTEXT:\n")
	fmt.Fprintf(&b, "Previous Question: %s\n", turn.LastQuery)
	if turn.LastResponse != "" {
		fmt.Fprintf(&b, "Previous Answer: %s\n", turn.LastResponse)
	}
	if len(turn.LastResultSample) > 0 {
		if sample, err := json.Marshal(turn.LastResultSample); err == nil {
			fmt.Fprintf(&b, "Previous Query Data Sample: %s\n", sample)
		}
	}
	b.WriteString("\n")
	return b.String()
}
