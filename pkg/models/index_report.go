package models

// IndexReport summarizes one category's index build. Errors holds
// per-entity failures that were skipped; a non-empty Errors with a non-zero
// SuccessfullyIndexed means a partial build, not a failed one.
type IndexReport struct {
	Category            EntityCategory `json:"category"`
	TotalExtracted      int            `json:"total_extracted"`
	SuccessfullyIndexed int            `json:"successfully_indexed"`
	DuplicatesSkipped   int            `json:"duplicates_skipped"`
	Errors              []string       `json:"errors,omitempty"`
}
