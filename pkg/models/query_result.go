package models

// QueryResult is the executed answer to a question: the SQL that ran, the
// rows it produced (JSON-safe values only), and — when the result set is
// empty — resolution-driven suggestions for what to try instead.
type QueryResult struct {
	SQL               string             `json:"sql"`
	Columns           []string           `json:"columns"`
	Rows              []map[string]any   `json:"rows"`
	RowCount          int                `json:"row_count"`
	Truncated         bool               `json:"truncated"` // row cap applied
	EntitySuggestions []EntitySuggestion `json:"entity_suggestions,omitempty"`
	NoResultsAnalysis *NoResultsAnalysis `json:"no_results_analysis,omitempty"`
}
