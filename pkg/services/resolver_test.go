package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richipal/tmsagent/pkg/extract"
	"github.com/richipal/tmsagent/pkg/models"
	"github.com/richipal/tmsagent/pkg/session"
	"github.com/richipal/tmsagent/pkg/vector"
)

// stubExtractor returns fixed candidates, for driving the resolver without
// regex or LLM behavior in the way.
type stubExtractor struct {
	candidates []models.MentionCandidate
	err        error
}

func (s *stubExtractor) Extract(_ context.Context, _ string) ([]models.MentionCandidate, error) {
	return s.candidates, s.err
}

var _ extract.Extractor = (*stubExtractor)(nil)

// testEmbedder pins known strings to fixed unit vectors so similarity
// scores in tests are exact instead of trigram-approximate.
func testEmbedder(vectors map[string][]float32) func(string) []float32 {
	return func(text string) []float32 {
		if v, ok := vectors[strings.ToLower(text)]; ok {
			return v
		}
		return []float32{0, 0, 1}
	}
}

func mention(text string, start int, hint string) models.MentionCandidate {
	return models.MentionCandidate{
		Text:                 text,
		StartOffset:          start,
		EndOffset:            start + len(text),
		CategoryHint:         hint,
		ExtractionConfidence: 0.9,
	}
}

func TestEnhanceQueryResolvesMisspelledName(t *testing.T) {
	question := "Where does Rosalina Rodrigez work?"

	store := vector.NewFakeStore(0.5)
	store.EmbedFunc = testEmbedder(map[string][]float32{
		"rosalinda rodriguez": {1, 0, 0},
		"rosalina rodrigez":   {0.9, 0.43589, 0},
	})
	store.Insert(context.Background(), "Rosalinda Rodriguez", models.CategoryPerson, map[string]string{"employee_id": "1042"})

	extractor := &stubExtractor{candidates: []models.MentionCandidate{
		mention("Rosalina Rodrigez", 11, extract.HintPerson),
	}}

	resolver := NewEntityResolver(extractor, store, DefaultResolverConfig(), nil)
	result := resolver.EnhanceQuery(context.Background(), question, nil)

	assert.Equal(t, question, result.OriginalQuery)
	assert.Equal(t, "Where does Rosalinda Rodriguez work?", result.EnhancedQuery)
	assert.False(t, result.UsedFallback)
	require.Len(t, result.Entities, 1)

	entity := result.Entities[0]
	assert.Equal(t, "Rosalina Rodrigez", entity.Original)
	assert.Equal(t, "Rosalinda Rodriguez", entity.Resolved)
	assert.Equal(t, models.CategoryPerson, entity.Category)
	assert.InDelta(t, 0.9, entity.Confidence, 0.001)
	assert.Equal(t, "1042", entity.Metadata["employee_id"])
	assert.InDelta(t, 0.9, result.OverallConfidence, 0.001)
}

func TestEnhanceQueryNoCandidatesIsNoop(t *testing.T) {
	resolver := NewEntityResolver(&stubExtractor{}, vector.NewFakeStore(0.5), DefaultResolverConfig(), nil)

	result := resolver.EnhanceQuery(context.Background(), "How many hours were logged last week?", nil)

	assert.Equal(t, "How many hours were logged last week?", result.EnhancedQuery)
	assert.Empty(t, result.Entities)
	assert.Equal(t, 1.0, result.OverallConfidence)
	assert.False(t, result.UsedFallback)
}

func TestEnhanceQueryExtractionFailureDegradesToOriginal(t *testing.T) {
	extractor := &stubExtractor{err: errors.New("model unavailable")}
	resolver := NewEntityResolver(extractor, vector.NewFakeStore(0.5), DefaultResolverConfig(), nil)

	result := resolver.EnhanceQuery(context.Background(), "Show hours for Maria Santos", nil)

	assert.Equal(t, "Show hours for Maria Santos", result.EnhancedQuery)
	assert.Empty(t, result.Entities)
	assert.Equal(t, 1.0, result.OverallConfidence)
}

func TestEnhanceQueryBelowAcceptanceKeepsMention(t *testing.T) {
	question := "Where does Zzyzx Qqq work?"

	store := vector.NewFakeStore(0.5)
	store.EmbedFunc = testEmbedder(map[string][]float32{
		"rosalinda rodriguez": {1, 0, 0},
		"zzyzx qqq":           {0, 1, 0}, // orthogonal: similarity 0
	})
	store.Insert(context.Background(), "Rosalinda Rodriguez", models.CategoryPerson, nil)

	extractor := &stubExtractor{candidates: []models.MentionCandidate{
		mention("Zzyzx Qqq", 11, extract.HintPerson),
	}}

	resolver := NewEntityResolver(extractor, store, DefaultResolverConfig(), nil)
	result := resolver.EnhanceQuery(context.Background(), question, nil)

	assert.Equal(t, question, result.EnhancedQuery)
	assert.Empty(t, result.Entities)
	assert.Equal(t, 1.0, result.OverallConfidence)
}

func TestEnhanceQueryLowConfidenceFallsBack(t *testing.T) {
	question := "Where does Rosalina Rodrigez work?"

	store := vector.NewFakeStore(0.5)
	store.EmbedFunc = testEmbedder(map[string][]float32{
		"rosalinda rodriguez": {1, 0, 0},
		"rosalina rodrigez":   {0.6, 0.8, 0}, // similarity 0.6
	})
	store.Insert(context.Background(), "Rosalinda Rodriguez", models.CategoryPerson, nil)

	extractor := &stubExtractor{candidates: []models.MentionCandidate{
		mention("Rosalina Rodrigez", 11, extract.HintPerson),
	}}

	cfg := DefaultResolverConfig()
	cfg.QueryTrustThreshold = 0.7

	resolver := NewEntityResolver(extractor, store, cfg, nil)
	result := resolver.EnhanceQuery(context.Background(), question, nil)

	// The rewrite happened but is not trusted: original question goes
	// downstream, the audit trail keeps the entities.
	assert.True(t, result.UsedFallback)
	assert.Equal(t, question, result.EnhancedQuery)
	require.Len(t, result.Entities, 1)
	assert.InDelta(t, 0.6, result.OverallConfidence, 0.001)
}

func TestEnhanceQuerySplicesMultipleMentionsRightToLeft(t *testing.T) {
	question := "Did Maria Santos visit Roosevelt HS?"
	//           0123456789012345678901234567890123456
	//                     1111111111222222222233333333

	store := vector.NewFakeStore(0.5)
	store.EmbedFunc = testEmbedder(map[string][]float32{
		"maria santos-rivera":    {1, 0, 0},
		"maria santos":           {0.95, 0.3122, 0},
		"roosevelt high school":  {0, 1, 0},
		"roosevelt hs":           {0.3122, 0.95, 0},
	})
	store.Insert(context.Background(), "Maria Santos-Rivera", models.CategoryPerson, nil)
	store.Insert(context.Background(), "Roosevelt High School", models.CategoryPlace, nil)

	extractor := &stubExtractor{candidates: []models.MentionCandidate{
		mention("Maria Santos", 4, extract.HintPerson),
		mention("Roosevelt HS", 23, extract.HintGPE),
	}}

	resolver := NewEntityResolver(extractor, store, DefaultResolverConfig(), nil)
	result := resolver.EnhanceQuery(context.Background(), question, nil)

	// Both substitutions land even though the replacements change the
	// string's length, because splicing runs rightmost-first.
	assert.Equal(t, "Did Maria Santos-Rivera visit Roosevelt High School?", result.EnhancedQuery)
	require.Len(t, result.Entities, 2)
}

func TestEnhanceQuerySkipsEntitiesResolvedInPreviousTurn(t *testing.T) {
	question := "What about Rosalinda Rodriguez last month?"

	store := vector.NewFakeStore(0.5)
	store.Insert(context.Background(), "Rosalinda Rodriguez", models.CategoryPerson, nil)

	extractor := &stubExtractor{candidates: []models.MentionCandidate{
		mention("Rosalinda Rodriguez", 11, extract.HintPerson),
	}}

	turn := session.NewTurnContext("s1").WithResolvedEntities([]models.ResolvedEntity{
		{Original: "Rosalina Rodrigez", Resolved: "Rosalinda Rodriguez", Category: models.CategoryPerson},
	})

	resolver := NewEntityResolver(extractor, store, DefaultResolverConfig(), nil)
	result := resolver.EnhanceQuery(context.Background(), question, turn)

	assert.Equal(t, question, result.EnhancedQuery)
	assert.Empty(t, result.Entities)
}

func TestEnhanceQueryHonorsCategoryHints(t *testing.T) {
	// A location-hinted mention must not resolve against the person
	// index, even when the person index holds the closest text.
	store := vector.NewFakeStore(0.5)
	store.Insert(context.Background(), "Roosevelt", models.CategoryPerson, nil)

	extractor := &stubExtractor{candidates: []models.MentionCandidate{
		mention("Roosevelt", 11, extract.HintGPE),
	}}

	resolver := NewEntityResolver(extractor, store, DefaultResolverConfig(), nil)
	result := resolver.EnhanceQuery(context.Background(), "Who works at Roosevelt?", nil)

	assert.Empty(t, result.Entities)
}

func TestOverallConfidenceIsLengthWeighted(t *testing.T) {
	entities := []models.ResolvedEntity{
		{Original: "Rosalinda Rodriguez", Confidence: 0.9}, // 19 chars
		{Original: "A", Confidence: 0.1},                   // 1 char
	}

	got := overallConfidence(entities)

	// (0.9*19 + 0.1*1) / 20 = 0.86
	assert.InDelta(t, 0.86, got, 0.001)
}

func TestCategoriesForHints(t *testing.T) {
	tests := []struct {
		hint string
		want []models.EntityCategory
	}{
		{extract.HintPerson, []models.EntityCategory{models.CategoryPerson}},
		{extract.HintPersonCandidate, []models.EntityCategory{models.CategoryPerson}},
		{extract.HintOrg, []models.EntityCategory{models.CategoryDepartment, models.CategoryPlace}},
		{extract.HintGPE, []models.EntityCategory{models.CategoryPlace}},
		{extract.HintLoc, []models.EntityCategory{models.CategoryPlace}},
		{"", models.AllCategories()},
		{"MONEY", models.AllCategories()},
	}

	for _, tt := range tests {
		t.Run("hint_"+tt.hint, func(t *testing.T) {
			assert.Equal(t, tt.want, categoriesFor(tt.hint))
		})
	}
}

func TestSuggestCorrectionsSkipsExactMatchAndSortsByConfidence(t *testing.T) {
	store := vector.NewFakeStore(0.5)
	store.EmbedFunc = testEmbedder(map[string][]float32{
		"rosalinda rodriguez": {1, 0, 0},
		"rosalind rodgers":    {0.8, 0.6, 0},
		"rosalina rodrigez":   {0.95, 0.3122, 0},
	})
	store.Insert(context.Background(), "Rosalinda Rodriguez", models.CategoryPerson, nil)
	store.Insert(context.Background(), "Rosalind Rodgers", models.CategoryPerson, nil)

	extractor := &stubExtractor{candidates: []models.MentionCandidate{
		mention("Rosalina Rodrigez", 0, extract.HintPerson),
	}}

	resolver := NewEntityResolver(extractor, store, DefaultResolverConfig(), nil)
	suggestions := resolver.SuggestCorrections(context.Background(), "Rosalina Rodrigez hours", 3)

	require.Len(t, suggestions, 2)
	assert.Equal(t, "Rosalinda Rodriguez", suggestions[0].Suggestion)
	assert.Equal(t, "Rosalind Rodgers", suggestions[1].Suggestion)
	assert.Greater(t, suggestions[0].Confidence, suggestions[1].Confidence)
	assert.Equal(t, models.CategoryPerson, suggestions[0].Category)
	assert.Contains(t, suggestions[0].Reason, "person")
}

func TestSuggestCorrectionsExcludesCaseIdenticalText(t *testing.T) {
	store := vector.NewFakeStore(0.5)
	store.Insert(context.Background(), "Maria Santos", models.CategoryPerson, nil)

	extractor := &stubExtractor{candidates: []models.MentionCandidate{
		mention("maria santos", 0, extract.HintPerson),
	}}

	resolver := NewEntityResolver(extractor, store, DefaultResolverConfig(), nil)
	suggestions := resolver.SuggestCorrections(context.Background(), "maria santos", 3)

	// Suggesting the text the user already typed helps nobody.
	assert.Empty(t, suggestions)
}

func TestSuggestCorrectionsCapsTotal(t *testing.T) {
	store := vector.NewFakeStore(0.5)
	for _, name := range []string{"Ana Reyes", "Ana Rivas", "Ana Robles", "Ana Rojas", "Ana Romero", "Ana Rosario"} {
		store.Insert(context.Background(), name, models.CategoryPerson, nil)
	}

	extractor := &stubExtractor{candidates: []models.MentionCandidate{
		mention("Ana Reys", 0, extract.HintPerson),
	}}

	resolver := NewEntityResolver(extractor, store, DefaultResolverConfig(), nil)
	suggestions := resolver.SuggestCorrections(context.Background(), "Ana Reys", 2)

	assert.LessOrEqual(t, len(suggestions), 4) // maxPerEntity * 2
}

func TestHandleNoResultsFlagsLikelyMisspellings(t *testing.T) {
	store := vector.NewFakeStore(0.5)
	store.EmbedFunc = testEmbedder(map[string][]float32{
		"rosalinda rodriguez": {1, 0, 0},
		"rosalina rodrigez":   {0.9, 0.43589, 0},
	})
	store.Insert(context.Background(), "Rosalinda Rodriguez", models.CategoryPerson, nil)

	extractor := &stubExtractor{candidates: []models.MentionCandidate{
		mention("Rosalina Rodrigez", 11, extract.HintPerson),
	}}

	resolver := NewEntityResolver(extractor, store, DefaultResolverConfig(), nil)
	analysis := resolver.HandleNoResults(context.Background(), "Where does Rosalina Rodrigez work?", "SELECT 1")

	require.Len(t, analysis.LikelyIssues, 1)
	assert.Contains(t, analysis.LikelyIssues[0], "Rosalina Rodrigez")
	assert.Contains(t, analysis.LikelyIssues[0], "misspelled")
	assert.NotEmpty(t, analysis.Suggestions)
	require.NotEmpty(t, analysis.RecommendedActions)
	assert.Equal(t, "Try the suggested corrections above", analysis.RecommendedActions[0])
}

func TestHandleNoResultsWithoutMatchesStillGivesActions(t *testing.T) {
	resolver := NewEntityResolver(&stubExtractor{}, vector.NewFakeStore(0.5), DefaultResolverConfig(), nil)

	analysis := resolver.HandleNoResults(context.Background(), "Show hours for last week", "SELECT 1")

	assert.Empty(t, analysis.LikelyIssues)
	assert.Empty(t, analysis.Suggestions)
	assert.Contains(t, analysis.RecommendedActions, "Check spelling of names and locations")
	assert.NotContains(t, analysis.RecommendedActions, "Try the suggested corrections above")
}
