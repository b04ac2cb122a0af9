// Package vector provides the similarity index used for entity resolution:
// database values (people, places, activities, departments) are embedded
// and matched against free-text mentions by cosine similarity.
package vector

import (
	"context"

	"github.com/richipal/tmsagent/pkg/models"
)

// Match is a candidate resolution for a mention: the indexed record plus
// a confidence score derived from cosine distance (1 - distance).
type Match struct {
	Record     models.EntityRecord
	Confidence float64
}

// Store is the similarity index contract. Lookups never fail loudly: a
// backend or embedding error degrades to an empty result and a log line,
// so resolution can fall back to the user's original wording.
type Store interface {
	// Insert embeds and upserts one entity. Returns false when the
	// embedding or the write fails; the caller decides whether that is
	// worth recording.
	Insert(ctx context.Context, text string, category models.EntityCategory, metadata map[string]string) bool

	// Search returns the closest matches at or above the acceptance
	// threshold, best first.
	Search(ctx context.Context, text string, category models.EntityCategory, topK int) []Match

	// SearchAll is Search without the threshold cutoff. Used for
	// suggestion generation where weak matches are still informative.
	SearchAll(ctx context.Context, text string, category models.EntityCategory, topK int) []Match

	// Has reports whether an entity with this exact text is already
	// indexed in the category. Cheap id lookup, no embedding call.
	Has(ctx context.Context, text string, category models.EntityCategory) bool

	// Reset removes every record in a category. Returns false on failure.
	Reset(ctx context.Context, category models.EntityCategory) bool

	// Count reports how many records a category holds.
	Count(ctx context.Context, category models.EntityCategory) (int, error)
}
