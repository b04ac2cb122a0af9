package sql

import (
	"fmt"
	"strings"
)

// destructiveKeywords are rejected anywhere in a candidate statement. The
// scan is a deliberate blunt instrument: case-insensitive substring match,
// so "SELECT updated_at" is also rejected. The generator is instructed to
// produce read-only SQL; anything that even resembles a write never reaches
// the warehouse.
var destructiveKeywords = []string{
	"DROP", "DELETE", "UPDATE", "INSERT", "CREATE", "ALTER", "TRUNCATE",
}

// DestructiveStatementError names the keyword that caused a rejection.
type DestructiveStatementError struct {
	Keyword string
}

func (e *DestructiveStatementError) Error() string {
	return fmt.Sprintf("query rejected: contains destructive keyword %s; only read-only queries are allowed", e.Keyword)
}

// CheckDestructive scans a statement for destructive keywords and returns a
// *DestructiveStatementError naming the first offender, or nil.
func CheckDestructive(sqlQuery string) error {
	upper := strings.ToUpper(sqlQuery)
	for _, keyword := range destructiveKeywords {
		if strings.Contains(upper, keyword) {
			return &DestructiveStatementError{Keyword: keyword}
		}
	}
	return nil
}

// StripCodeFences removes markdown code fencing that models wrap around
// generated SQL (```sql ... ``` or plain ``` ... ```).
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		// Drop a language tag like "sql" on the opening fence
		if idx := strings.IndexByte(s, '\n'); idx >= 0 {
			firstLine := strings.TrimSpace(s[:idx])
			if firstLine == "sql" || firstLine == "SQL" || firstLine == "" {
				s = s[idx+1:]
			}
		} else {
			s = strings.TrimSpace(strings.TrimPrefix(s, "sql"))
		}
	}

	if strings.HasSuffix(strings.TrimSpace(s), "```") {
		s = strings.TrimSpace(s)
		s = strings.TrimSuffix(s, "```")
	}

	return strings.TrimSpace(s)
}

// EnsureRowLimit appends a LIMIT to SELECT statements that lack one. The
// check is a case-insensitive substring scan: a LIMIT anywhere in the
// statement (including a subquery) counts, matching the conservative
// behavior of capping only obviously uncapped queries.
func EnsureRowLimit(sqlQuery string, cap int) string {
	trimmed := strings.TrimSpace(sqlQuery)
	upper := strings.ToUpper(trimmed)

	if !strings.HasPrefix(upper, "SELECT") {
		return sqlQuery
	}
	if strings.Contains(upper, "LIMIT") {
		return sqlQuery
	}

	return trimmed + fmt.Sprintf(" LIMIT %d", cap)
}
