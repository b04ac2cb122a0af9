package models

// ResolvedEntity records one mention that matched an indexed entity closely
// enough to substitute into the query.
type ResolvedEntity struct {
	Original   string         `json:"original"`    // text as the user typed it
	Resolved   string         `json:"resolved"`    // canonical text from the index
	Category   EntityCategory `json:"category"`
	Confidence float64        `json:"confidence"` // cosine similarity, 0.0 to 1.0
	RecordID   string         `json:"record_id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ResolutionResult is the outcome of resolving all mentions in a question.
// When UsedFallback is true the enhanced query equals the original: overall
// confidence fell below the trust floor and substitutions were discarded.
type ResolutionResult struct {
	OriginalQuery     string           `json:"original_query"`
	EnhancedQuery     string           `json:"enhanced_query"`
	Entities          []ResolvedEntity `json:"entities,omitempty"`
	OverallConfidence float64          `json:"overall_confidence"`
	UsedFallback      bool             `json:"used_fallback"`
}

// EntitySuggestion is a "did you mean" candidate offered when a query
// returns nothing, or when resolution confidence was too weak to act on.
type EntitySuggestion struct {
	Original   string         `json:"original"`
	Suggestion string         `json:"suggestion"`
	Confidence float64        `json:"confidence"`
	Category   EntityCategory `json:"category"`
	Reason     string         `json:"reason"`
}

// NoResultsAnalysis explains an empty result set in terms the user can act
// on: which mentions look misspelled, close matches from the index, and
// generic remediation steps.
type NoResultsAnalysis struct {
	LikelyIssues       []string           `json:"likely_issues"`
	Suggestions        []EntitySuggestion `json:"suggestions,omitempty"`
	RecommendedActions []string           `json:"recommended_actions"`
}
