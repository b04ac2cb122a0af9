// Package extract pulls candidate entity mentions out of user questions.
// The primary extractor asks a language model for named entities; a
// heuristic extractor recovers probable names with capitalization patterns
// when the model finds nothing or is unavailable. Both sit behind one
// interface so the orchestration never cares which stage produced a span.
package extract

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/richipal/tmsagent/pkg/models"
)

// Category hints carried on extracted mentions. The resolver maps these to
// index categories; anything else falls back to searching every category.
const (
	HintPerson          = "PERSON"
	HintOrg             = "ORG"
	HintGPE             = "GPE"
	HintLoc             = "LOC"
	HintPersonCandidate = "PERSON_CANDIDATE"
)

// Extractor produces mention candidates from a question. Implementations
// return an error only when extraction could not run at all; a question
// with no entities yields an empty slice and nil error.
type Extractor interface {
	Extract(ctx context.Context, question string) ([]models.MentionCandidate, error)
}

// ChainExtractor runs a primary extractor and falls back to a secondary
// when the primary errors or finds nothing. Proper-noun chains the primary
// missed are merged in regardless, then candidates are deduplicated by
// lower-cased text keeping the highest extraction confidence.
type ChainExtractor struct {
	primary  Extractor
	fallback *HeuristicExtractor
	logger   *zap.Logger
}

// NewChainExtractor creates the two-stage extractor used by the resolver.
func NewChainExtractor(primary Extractor, fallback *HeuristicExtractor, logger *zap.Logger) *ChainExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChainExtractor{
		primary:  primary,
		fallback: fallback,
		logger:   logger.Named("extract-chain"),
	}
}

// Extract implements Extractor. It never returns an error: extraction
// failure degrades to the heuristic stage, and a heuristic miss degrades
// to no mentions.
func (c *ChainExtractor) Extract(ctx context.Context, question string) ([]models.MentionCandidate, error) {
	candidates, err := c.primary.Extract(ctx, question)
	if err != nil {
		c.logger.Warn("Primary extraction failed, using heuristic fallback",
			zap.Error(err))
		candidates = nil
	}

	if len(candidates) == 0 {
		candidates = c.fallback.patternCandidates(question)
	}

	// Proper-noun chains catch names the primary extractor missed. Spans
	// already covered by an existing candidate are skipped.
	for _, chain := range c.fallback.properNounCandidates(question) {
		if !overlapsAny(chain, candidates) {
			candidates = append(candidates, chain)
		}
	}

	return dedupeCandidates(candidates), nil
}

func overlapsAny(c models.MentionCandidate, existing []models.MentionCandidate) bool {
	for _, e := range existing {
		if c.StartOffset < e.EndOffset && e.StartOffset < c.EndOffset {
			return true
		}
	}
	return false
}

// dedupeCandidates collapses candidates with the same lower-cased text,
// keeping the instance with the highest extraction confidence.
func dedupeCandidates(candidates []models.MentionCandidate) []models.MentionCandidate {
	byText := make(map[string]int, len(candidates))
	var unique []models.MentionCandidate

	for _, c := range candidates {
		key := strings.ToLower(c.Text)
		if idx, seen := byText[key]; seen {
			if c.ExtractionConfidence > unique[idx].ExtractionConfidence {
				unique[idx] = c
			}
			continue
		}
		byText[key] = len(unique)
		unique = append(unique, c)
	}

	return unique
}

// Ensure ChainExtractor implements Extractor at compile time.
var _ Extractor = (*ChainExtractor)(nil)
