package sql

import (
	"errors"
	"testing"
)

func TestValidateAndNormalize_ValidQueries(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple select without semicolon",
			input:    "SELECT 1",
			expected: "SELECT 1",
		},
		{
			name:     "simple select with trailing semicolon",
			input:    "SELECT 1;",
			expected: "SELECT 1",
		},
		{
			name:     "trailing semicolon and whitespace",
			input:    "SELECT * FROM employee;  ",
			expected: "SELECT * FROM employee",
		},
		{
			name:     "leading and trailing whitespace",
			input:    "  SELECT * FROM location  ",
			expected: "SELECT * FROM location",
		},
		{
			name:     "semicolon inside single quoted string",
			input:    "SELECT * FROM employee WHERE name = 'a;b'",
			expected: "SELECT * FROM employee WHERE name = 'a;b'",
		},
		{
			name:     "semicolon inside double quoted identifier",
			input:    `SELECT * FROM "odd;table"`,
			expected: `SELECT * FROM "odd;table"`,
		},
		{
			name:     "SQL standard escaped single quote",
			input:    "SELECT * FROM employee WHERE last_name = 'O''Brien'",
			expected: "SELECT * FROM employee WHERE last_name = 'O''Brien'",
		},
		{
			name:     "query with newlines",
			input:    "SELECT e.first_name\nFROM employee e\nWHERE e.id = 1;",
			expected: "SELECT e.first_name\nFROM employee e\nWHERE e.id = 1",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "whitespace only",
			input:    "   ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateAndNormalize(tt.input)
			if result.Error != nil {
				t.Errorf("unexpected error: %v", result.Error)
			}
			if result.NormalizedSQL != tt.expected {
				t.Errorf("got %q, want %q", result.NormalizedSQL, tt.expected)
			}
		})
	}
}

func TestValidateAndNormalize_MultipleStatements(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "two selects",
			input: "SELECT 1; SELECT 2",
		},
		{
			name:  "two selects with trailing semicolon",
			input: "SELECT 1; SELECT 2;",
		},
		{
			name:  "select stacked with drop",
			input: "SELECT * FROM employee; DROP TABLE employee",
		},
		{
			name:  "semicolon then comment",
			input: "SELECT 1; -- comment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateAndNormalize(tt.input)
			if !errors.Is(result.Error, ErrMultipleStatements) {
				t.Errorf("expected ErrMultipleStatements, got %v", result.Error)
			}
		})
	}
}
