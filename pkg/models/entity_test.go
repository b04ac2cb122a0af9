package models

import (
	"strings"
	"testing"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		input   string
		want    EntityCategory
		wantErr bool
	}{
		{"person", CategoryPerson, false},
		{"place", CategoryPlace, false},
		{"activity", CategoryActivity, false},
		{"department", CategoryDepartment, false},
		{"Person", "", true},
		{"location", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCategory(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseCategory(%q) expected error, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Errorf("ParseCategory(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseCategory(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestAllCategories(t *testing.T) {
	cats := AllCategories()
	if len(cats) != 4 {
		t.Fatalf("expected 4 categories, got %d", len(cats))
	}
	for _, c := range cats {
		if !c.Valid() {
			t.Errorf("AllCategories returned invalid category %q", c)
		}
	}
}

func TestEntityRecordID(t *testing.T) {
	id1 := EntityRecordID(CategoryPerson, "John Smith")
	id2 := EntityRecordID(CategoryPerson, "John Smith")
	if id1 != id2 {
		t.Errorf("same text produced different IDs: %q vs %q", id1, id2)
	}

	if !strings.HasPrefix(id1, "person_10_") {
		t.Errorf("expected ID prefix person_10_, got %q", id1)
	}

	id3 := EntityRecordID(CategoryPlace, "John Smith")
	if id1 == id3 {
		t.Error("different categories should produce different IDs")
	}

	id4 := EntityRecordID(CategoryPerson, "Jane Smith")
	if id1 == id4 {
		t.Error("different text should produce different IDs")
	}
}

func TestValidationReport(t *testing.T) {
	r := &ValidationReport{Valid: true}

	r.AddWarning("table empty")
	if !r.Valid {
		t.Error("warning should not invalidate report")
	}
	if len(r.Warnings) != 1 {
		t.Errorf("expected 1 warning, got %d", len(r.Warnings))
	}

	r.AddError("missing table")
	if r.Valid {
		t.Error("error should invalidate report")
	}
	if len(r.Errors) != 1 {
		t.Errorf("expected 1 error, got %d", len(r.Errors))
	}
}
