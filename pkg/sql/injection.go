package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a string literal that matched a SQL
// injection fingerprint.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	Literal     string // The literal content that failed the check
}

// ExtractStringLiterals returns the contents of all single-quoted string
// literals in a statement, with SQL standard doubled quotes ('') collapsed.
// Generated SQL carries user-influenced text only inside literals (entity
// names spliced in by resolution), so literals are where smuggled injection
// text would surface.
func ExtractStringLiterals(sqlQuery string) []string {
	var literals []string
	var current []rune

	inString := false
	runes := []rune(sqlQuery)

	for i := 0; i < len(runes); i++ {
		c := runes[i]

		if !inString {
			if c == '\'' {
				inString = true
				current = current[:0]
			}
			continue
		}

		if c == '\'' {
			// Doubled quote is an escaped quote inside the literal
			if i+1 < len(runes) && runes[i+1] == '\'' {
				current = append(current, '\'')
				i++
				continue
			}
			literals = append(literals, string(current))
			inString = false
			continue
		}

		current = append(current, c)
	}

	return literals
}

// CheckLiteralsForInjection runs libinjection over every string literal in
// a candidate statement. Returns one result per literal that matches an
// injection fingerprint; an empty slice means the statement is clean.
func CheckLiteralsForInjection(sqlQuery string) []*InjectionCheckResult {
	var results []*InjectionCheckResult

	for _, literal := range ExtractStringLiterals(sqlQuery) {
		if literal == "" {
			continue
		}
		isSQLi, fingerprint := libinjection.IsSQLi(literal)
		if isSQLi {
			results = append(results, &InjectionCheckResult{
				IsSQLi:      true,
				Fingerprint: string(fingerprint),
				Literal:     literal,
			})
		}
	}

	return results
}
