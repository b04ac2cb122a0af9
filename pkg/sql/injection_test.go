package sql

import (
	"testing"
)

func TestExtractStringLiterals(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "no literals",
			input:    "SELECT * FROM employee",
			expected: nil,
		},
		{
			name:     "single literal",
			input:    "SELECT * FROM employee WHERE name = 'Rosalinda Rodriguez'",
			expected: []string{"Rosalinda Rodriguez"},
		},
		{
			name:     "multiple literals",
			input:    "SELECT * FROM employee WHERE first = 'John' AND last = 'Smith'",
			expected: []string{"John", "Smith"},
		},
		{
			name:     "doubled quote collapses",
			input:    "SELECT * FROM employee WHERE last = 'O''Brien'",
			expected: []string{"O'Brien"},
		},
		{
			name:     "empty literal",
			input:    "SELECT * FROM employee WHERE note = ''",
			expected: []string{""},
		},
		{
			name:     "literal containing keywords",
			input:    "SELECT * FROM location WHERE name = 'Lincoln High School'",
			expected: []string{"Lincoln High School"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractStringLiterals(tt.input)
			if len(got) != len(tt.expected) {
				t.Fatalf("got %d literals %v, want %d %v", len(got), got, len(tt.expected), tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("literal %d: got %q, want %q", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestCheckLiteralsForInjection_CleanStatements(t *testing.T) {
	queries := []string{
		"SELECT * FROM employee WHERE name = 'Rosalinda Rodriguez'",
		"SELECT * FROM location WHERE name = 'Lincoln High School'",
		"SELECT * FROM employee WHERE last = 'O''Brien'",
		"SELECT * FROM activity",
	}

	for _, q := range queries {
		if results := CheckLiteralsForInjection(q); len(results) != 0 {
			t.Errorf("expected no injection findings for %q, got %v", q, results)
		}
	}
}

func TestCheckLiteralsForInjection_DetectsSmuggledInjection(t *testing.T) {
	q := `SELECT * FROM employee WHERE name = '1'' OR ''1''=''1'`

	results := CheckLiteralsForInjection(q)
	if len(results) == 0 {
		t.Fatal("expected injection finding for tautology literal")
	}
	if !results[0].IsSQLi {
		t.Error("expected IsSQLi true")
	}
	if results[0].Fingerprint == "" {
		t.Error("expected non-empty fingerprint")
	}
}
