package models

import (
	"fmt"
	"hash/fnv"
)

// EntityCategory classifies an indexed warehouse entity. The set is closed:
// every vector index partition corresponds to exactly one category.
type EntityCategory string

const (
	CategoryPerson     EntityCategory = "person"     // employee names
	CategoryPlace      EntityCategory = "place"      // work locations, schools, sites
	CategoryActivity   EntityCategory = "activity"   // activity/assignment names
	CategoryDepartment EntityCategory = "department" // organizational units
)

// AllCategories returns every valid entity category, in stable order.
func AllCategories() []EntityCategory {
	return []EntityCategory{CategoryPerson, CategoryPlace, CategoryActivity, CategoryDepartment}
}

// Valid reports whether the category is one of the known partitions.
func (c EntityCategory) Valid() bool {
	switch c {
	case CategoryPerson, CategoryPlace, CategoryActivity, CategoryDepartment:
		return true
	}
	return false
}

// ParseCategory converts a string to an EntityCategory, rejecting unknowns.
func ParseCategory(s string) (EntityCategory, error) {
	c := EntityCategory(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown entity category %q", s)
	}
	return c, nil
}

// EntityRecord is one canonical entity as stored in the vector index.
type EntityRecord struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Category EntityCategory    `json:"category"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// EntityRecordID derives the stable identifier for an entity record:
// category, text length, and a bounded text hash. Re-indexing the same text
// always produces the same ID, so repeated inserts overwrite rather than
// duplicate.
func EntityRecordID(category EntityCategory, text string) string {
	h := fnv.New32a()
	h.Write([]byte(text))
	return fmt.Sprintf("%s_%d_%d", category, len(text), h.Sum32()%10000)
}
