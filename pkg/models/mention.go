package models

// MentionCandidate is a span of the user's question suspected to name a
// warehouse entity. CategoryHint carries the extractor's label (PERSON, ORG,
// GPE, LOC, PERSON_CANDIDATE); the resolver maps it to index categories.
type MentionCandidate struct {
	Text                 string  `json:"text"`
	StartOffset          int     `json:"start_offset"` // byte offset into the question
	EndOffset            int     `json:"end_offset"`   // exclusive
	CategoryHint         string  `json:"category_hint"`
	ExtractionConfidence float64 `json:"extraction_confidence"` // 0.0 to 1.0
}
