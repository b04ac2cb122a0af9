//go:build integration

package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richipal/tmsagent/pkg/llm"
	"github.com/richipal/tmsagent/pkg/models"
	"github.com/richipal/tmsagent/pkg/testhelpers"
)

// embeddingDims matches the entity_vectors column definition.
const embeddingDims = 1536

func newIntegrationStore(t *testing.T, threshold float64) *PGStore {
	t.Helper()
	testDB := testhelpers.GetTestDB(t)

	mockLLM := llm.NewMockLLMClient()
	mockLLM.CreateEmbeddingFunc = func(_ context.Context, input string, _ string) ([]float32, error) {
		return trigramEmbed(input, embeddingDims), nil
	}

	store := NewPGStore(testDB.Pool, mockLLM, threshold, nil)

	// Start every test from an empty index.
	ctx := context.Background()
	for _, category := range models.AllCategories() {
		require.True(t, store.Reset(ctx, category))
	}
	return store
}

func TestPGStore_InsertAndSearch(t *testing.T) {
	store := newIntegrationStore(t, 0.5)
	ctx := context.Background()

	ok := store.Insert(ctx, "Rosalinda Rodriguez", models.CategoryPerson, map[string]string{"employee_id": "1042"})
	require.True(t, ok)

	matches := store.Search(ctx, "Rosalinda Rodriguez", models.CategoryPerson, 5)
	require.Len(t, matches, 1)
	assert.Equal(t, "Rosalinda Rodriguez", matches[0].Record.Text)
	assert.Equal(t, models.CategoryPerson, matches[0].Record.Category)
	assert.Equal(t, "1042", matches[0].Record.Metadata["employee_id"])
	assert.InDelta(t, 1.0, matches[0].Confidence, 0.01)
}

func TestPGStore_MisspellingStillMatches(t *testing.T) {
	store := newIntegrationStore(t, 0.5)
	ctx := context.Background()

	require.True(t, store.Insert(ctx, "Rosalinda Rodriguez", models.CategoryPerson, nil))

	matches := store.Search(ctx, "Rosalina Rodriguez", models.CategoryPerson, 5)
	require.Len(t, matches, 1)
	assert.Equal(t, "Rosalinda Rodriguez", matches[0].Record.Text)
	assert.Greater(t, matches[0].Confidence, 0.5)
}

func TestPGStore_ThresholdExcludesWeakMatches(t *testing.T) {
	store := newIntegrationStore(t, 0.5)
	ctx := context.Background()

	require.True(t, store.Insert(ctx, "Central High School", models.CategoryPlace, nil))

	matches := store.Search(ctx, "payroll posting dates", models.CategoryPlace, 5)
	assert.Empty(t, matches)

	all := store.SearchAll(ctx, "payroll posting dates", models.CategoryPlace, 5)
	require.Len(t, all, 1)
	assert.Equal(t, "Central High School", all[0].Record.Text)
}

func TestPGStore_ReinsertSameTextUpserts(t *testing.T) {
	store := newIntegrationStore(t, 0.5)
	ctx := context.Background()

	require.True(t, store.Insert(ctx, "Lincoln Elementary", models.CategoryPlace, map[string]string{"location_id": "7"}))
	require.True(t, store.Insert(ctx, "Lincoln Elementary", models.CategoryPlace, map[string]string{"location_id": "8"}))

	count, err := store.Count(ctx, models.CategoryPlace)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	matches := store.Search(ctx, "Lincoln Elementary", models.CategoryPlace, 1)
	require.Len(t, matches, 1)
	assert.Equal(t, "8", matches[0].Record.Metadata["location_id"])
}

func TestPGStore_ResetClearsOnlyOneCategory(t *testing.T) {
	store := newIntegrationStore(t, 0.5)
	ctx := context.Background()

	require.True(t, store.Insert(ctx, "REGULAR", models.CategoryActivity, nil))
	require.True(t, store.Insert(ctx, "Athletics", models.CategoryDepartment, nil))

	require.True(t, store.Reset(ctx, models.CategoryActivity))

	activityCount, err := store.Count(ctx, models.CategoryActivity)
	require.NoError(t, err)
	assert.Equal(t, 0, activityCount)

	departmentCount, err := store.Count(ctx, models.CategoryDepartment)
	require.NoError(t, err)
	assert.Equal(t, 1, departmentCount)
}

func TestPGStore_EmbeddingFailureDegradesQuietly(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)

	mockLLM := llm.NewMockLLMClient()
	mockLLM.CreateEmbeddingFunc = func(context.Context, string, string) ([]float32, error) {
		return nil, assert.AnError
	}
	store := NewPGStore(testDB.Pool, mockLLM, 0.5, nil)

	ctx := context.Background()
	assert.False(t, store.Insert(ctx, "Rosalinda Rodriguez", models.CategoryPerson, nil))
	assert.Empty(t, store.Search(ctx, "Rosalinda Rodriguez", models.CategoryPerson, 5))
}
