// Package services contains the core pipeline: entity resolution, index
// building, SQL generation, and validated execution. Each service is an
// interface over an unexported struct with explicit dependencies; nothing
// in here owns a connection or a client, everything is injected.
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/richipal/tmsagent/pkg/extract"
	"github.com/richipal/tmsagent/pkg/models"
	"github.com/richipal/tmsagent/pkg/session"
	"github.com/richipal/tmsagent/pkg/vector"
)

// ResolverConfig holds the resolution thresholds. These are calibration
// defaults, not constants derived from an evaluation set; operators tune
// them against real query logs.
type ResolverConfig struct {
	// QueryTrustThreshold is the minimum overall confidence required to
	// use the rewritten question downstream.
	QueryTrustThreshold float64
	// ExploratoryThreshold gates "might be misspelled" findings in the
	// no-results analysis.
	ExploratoryThreshold float64
	// TopK bounds similarity lookups per candidate.
	TopK int
	// MaxSuggestions bounds suggestions per entity.
	MaxSuggestions int
}

// DefaultResolverConfig returns the shipped defaults.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		QueryTrustThreshold:  0.3,
		ExploratoryThreshold: 0.5,
		TopK:                 5,
		MaxSuggestions:       3,
	}
}

// EntityResolver maps fuzzy entity references in questions to exact
// warehouse values.
type EntityResolver interface {
	// EnhanceQuery resolves the question's mentions against the entity
	// index and returns the rewritten question with its audit trail. It
	// never fails: any internal error degrades to the original question.
	EnhanceQuery(ctx context.Context, question string, turn *session.TurnContext) models.ResolutionResult

	// SuggestCorrections returns "did you mean" candidates for the
	// question's mentions, including matches below the acceptance
	// threshold.
	SuggestCorrections(ctx context.Context, question string, maxPerEntity int) []models.EntitySuggestion

	// HandleNoResults explains an empty result set: which mentions look
	// misspelled, close index matches, and remediation steps.
	HandleNoResults(ctx context.Context, originalQuery, generatedSQL string) models.NoResultsAnalysis
}

type entityResolver struct {
	extractor extract.Extractor
	store     vector.Store
	cfg       ResolverConfig
	logger    *zap.Logger
}

// NewEntityResolver creates the resolver. If logger is nil, a no-op
// logger is used.
func NewEntityResolver(extractor extract.Extractor, store vector.Store, cfg ResolverConfig, logger *zap.Logger) EntityResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &entityResolver{
		extractor: extractor,
		store:     store,
		cfg:       cfg,
		logger:    logger.Named("entity-resolver"),
	}
}

// categoriesFor maps an extractor's category hint to the index categories
// worth searching. Unknown hints search everything.
func categoriesFor(hint string) []models.EntityCategory {
	switch hint {
	case extract.HintPerson, extract.HintPersonCandidate:
		return []models.EntityCategory{models.CategoryPerson}
	case extract.HintOrg:
		return []models.EntityCategory{models.CategoryDepartment, models.CategoryPlace}
	case extract.HintGPE, extract.HintLoc:
		return []models.EntityCategory{models.CategoryPlace}
	default:
		return models.AllCategories()
	}
}

// EnhanceQuery implements EntityResolver.
func (r *entityResolver) EnhanceQuery(ctx context.Context, question string, turn *session.TurnContext) models.ResolutionResult {
	noop := models.ResolutionResult{
		OriginalQuery:     question,
		EnhancedQuery:     question,
		OverallConfidence: 1.0,
	}

	candidates, err := r.extractor.Extract(ctx, question)
	if err != nil {
		r.logger.Warn("Extraction failed, keeping original question", zap.Error(err))
		return noop
	}
	if len(candidates) == 0 {
		return noop
	}

	// Rightmost candidate first, so splicing one span never invalidates
	// the offsets of spans still waiting to be processed.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].StartOffset > candidates[j].StartOffset
	})

	enhanced := question
	var resolved []models.ResolvedEntity

	for _, candidate := range candidates {
		if candidate.StartOffset < 0 || candidate.EndOffset > len(question) {
			continue
		}
		if turn != nil && alreadyResolved(turn.ResolvedEntities, candidate.Text) {
			// A previous turn already mapped this exact text; repeating
			// the lookup would only re-derive the same substitution.
			continue
		}

		best, ok := r.bestMatch(ctx, candidate.Text, categoriesFor(candidate.CategoryHint))
		if !ok {
			continue
		}

		enhanced = enhanced[:candidate.StartOffset] + best.Record.Text + enhanced[candidate.EndOffset:]
		resolved = append(resolved, models.ResolvedEntity{
			Original:   candidate.Text,
			Resolved:   best.Record.Text,
			Category:   best.Record.Category,
			Confidence: best.Confidence,
			RecordID:   best.Record.ID,
			Metadata:   best.Record.Metadata,
		})

		r.logger.Info("Resolved entity",
			zap.String("original", candidate.Text),
			zap.String("resolved", best.Record.Text),
			zap.String("category", string(best.Record.Category)),
			zap.Float64("confidence", best.Confidence))
	}

	if len(resolved) == 0 {
		return noop
	}

	overall := overallConfidence(resolved)
	result := models.ResolutionResult{
		OriginalQuery:     question,
		EnhancedQuery:     enhanced,
		Entities:          resolved,
		OverallConfidence: overall,
	}

	if overall < r.cfg.QueryTrustThreshold {
		result.EnhancedQuery = question
		result.UsedFallback = true
		r.logger.Info("Resolution confidence below trust floor, using original question",
			zap.Float64("confidence", overall),
			zap.Float64("threshold", r.cfg.QueryTrustThreshold))
	}

	return result
}

// bestMatch searches every plausible category and keeps the single
// highest-confidence match across them.
func (r *entityResolver) bestMatch(ctx context.Context, text string, categories []models.EntityCategory) (vector.Match, bool) {
	var best vector.Match
	found := false

	for _, category := range categories {
		matches := r.store.Search(ctx, text, category, 1)
		if len(matches) == 0 {
			continue
		}
		if !found || matches[0].Confidence > best.Confidence {
			best = matches[0]
			found = true
		}
	}

	return best, found
}

// overallConfidence is the length-weighted average of entity confidences.
// Longer matched spans dominate: a resolved two-word name outweighs a
// one-letter false positive.
func overallConfidence(entities []models.ResolvedEntity) float64 {
	var totalWeight, weighted float64
	for _, e := range entities {
		weight := float64(len(e.Original))
		weighted += e.Confidence * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 0
	}
	return weighted / totalWeight
}

func alreadyResolved(previous []models.ResolvedEntity, text string) bool {
	for _, e := range previous {
		if strings.EqualFold(e.Resolved, text) {
			return true
		}
	}
	return false
}

// SuggestCorrections implements EntityResolver.
func (r *entityResolver) SuggestCorrections(ctx context.Context, question string, maxPerEntity int) []models.EntitySuggestion {
	if maxPerEntity <= 0 {
		maxPerEntity = r.cfg.MaxSuggestions
	}

	candidates, err := r.extractor.Extract(ctx, question)
	if err != nil {
		r.logger.Warn("Extraction failed during suggestion generation", zap.Error(err))
		return nil
	}

	var suggestions []models.EntitySuggestion
	for _, candidate := range candidates {
		for _, category := range categoriesFor(candidate.CategoryHint) {
			// SearchAll skips the acceptance cutoff: near-misses are the
			// whole point of a suggestion.
			for _, match := range r.store.SearchAll(ctx, candidate.Text, category, maxPerEntity) {
				if strings.EqualFold(match.Record.Text, candidate.Text) {
					continue
				}
				suggestions = append(suggestions, models.EntitySuggestion{
					Original:   candidate.Text,
					Suggestion: match.Record.Text,
					Confidence: match.Confidence,
					Category:   category,
					Reason:     fmt.Sprintf("Similar %s found", category),
				})
			}
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})

	if limit := maxPerEntity * 2; len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}

// HandleNoResults implements EntityResolver.
func (r *entityResolver) HandleNoResults(ctx context.Context, originalQuery, generatedSQL string) models.NoResultsAnalysis {
	r.logger.Info("Analyzing empty result set",
		zap.String("question", originalQuery))

	analysis := models.NoResultsAnalysis{
		Suggestions: r.SuggestCorrections(ctx, originalQuery, r.cfg.MaxSuggestions),
	}

	candidates, err := r.extractor.Extract(ctx, originalQuery)
	if err == nil {
		for _, candidate := range candidates {
			if r.hasSimilarAbove(ctx, candidate, r.cfg.ExploratoryThreshold) {
				analysis.LikelyIssues = append(analysis.LikelyIssues,
					fmt.Sprintf("'%s' might be misspelled or abbreviated", candidate.Text))
			}
		}
	}

	if len(analysis.Suggestions) > 0 {
		analysis.RecommendedActions = append(analysis.RecommendedActions, "Try the suggested corrections above")
	}
	analysis.RecommendedActions = append(analysis.RecommendedActions,
		"Check spelling of names and locations",
		"Try using different variations (e.g., 'HS' vs 'High School')",
		"Verify the entity exists in the database",
	)

	return analysis
}

func (r *entityResolver) hasSimilarAbove(ctx context.Context, candidate models.MentionCandidate, threshold float64) bool {
	for _, category := range categoriesFor(candidate.CategoryHint) {
		matches := r.store.SearchAll(ctx, candidate.Text, category, 1)
		if len(matches) > 0 && matches[0].Confidence > threshold {
			return true
		}
	}
	return false
}

// Ensure entityResolver implements EntityResolver at compile time.
var _ EntityResolver = (*entityResolver)(nil)
