package models

// ValidationReport is the outcome of checking extraction configuration
// against the live warehouse. Errors make the config unusable; warnings
// (e.g. an empty source table) do not.
type ValidationReport struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// AddError appends an error and marks the report invalid.
func (r *ValidationReport) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Valid = false
}

// AddWarning appends a warning without affecting validity.
func (r *ValidationReport) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
