// Package logging provides helpers for keeping credentials and bulky SQL
// out of log output.
package logging

import (
	"regexp"
)

const (
	// MaxSQLLogLength is the maximum length of a SQL statement to log.
	MaxSQLLogLength = 120
	// RedactedText is the replacement text for sensitive data.
	RedactedText = "[REDACTED]"
)

var (
	// Matches password=xxx, pwd=xxx, pass=xxx (until next delimiter).
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Matches api_key=xxx / apikey=xxx style values.
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)=[A-Za-z0-9-_]{20,}`)

	// Matches user:pass@host credentials embedded in URLs.
	connStringPattern = regexp.MustCompile(`://[^:]+:[^@]+@[^/\s]+`)
)

// SanitizeConnectionString removes credentials from a connection string
// before it is logged.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizeError scrubs error messages that may carry connection details or
// API keys, e.g. errors bubbled up from pgx or the embeddings client.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(err.Error(), "${1}="+RedactedText)
	sanitized = apiKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizeSQL truncates a SQL statement for logging. Generated statements can
// embed long IN lists and resolved entity values; logs only need the head.
func SanitizeSQL(sqlText string) string {
	if sqlText == "" {
		return ""
	}

	sanitized := sqlText
	if len(sanitized) > MaxSQLLogLength {
		sanitized = sanitized[:MaxSQLLogLength] + "..."
	}

	return passwordPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
