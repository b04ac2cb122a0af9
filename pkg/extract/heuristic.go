package extract

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/richipal/tmsagent/pkg/models"
)

// namePatterns recover probable person names when the model stage yields
// nothing. Ordered: verb-anchored patterns are stronger signals than a bare
// pair of capitalized words, so they carry higher confidence.
var namePatterns = []struct {
	re         *regexp.Regexp
	confidence float64
}{
	{regexp.MustCompile(`(?i:where does|who is|find|locate)\s+([A-Z][a-z]+\s+[A-Z][a-z]+)`), 0.9},
	{regexp.MustCompile(`([A-Z][a-z]+\s+[A-Z][a-z]+)\s+(?i:work|works|working)`), 0.9},
	{regexp.MustCompile(`\b([A-Z][a-z]+\s+[A-Z][a-z]+)\b`), 0.8},
}

// questionWords are capitalized only because they open a sentence; a
// proper-noun scan must not mistake them for names.
var questionWords = map[string]struct{}{
	"who": {}, "what": {}, "where": {}, "when": {}, "which": {}, "how": {},
	"show": {}, "list": {}, "find": {}, "give": {}, "tell": {}, "does": {},
	"did": {}, "the": {}, "all": {}, "many": {}, "total": {},
}

// HeuristicExtractor recovers mentions with capitalization patterns. It is
// the fallback stage of the extraction chain and the source of the
// proper-noun supplement merged in behind the primary stage.
type HeuristicExtractor struct {
	logger *zap.Logger
}

// NewHeuristicExtractor creates the pattern-based extractor.
func NewHeuristicExtractor(logger *zap.Logger) *HeuristicExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HeuristicExtractor{logger: logger.Named("extract-heuristic")}
}

// Extract implements Extractor. It cannot fail; a question with no
// recognizable patterns yields an empty slice.
func (h *HeuristicExtractor) Extract(_ context.Context, question string) ([]models.MentionCandidate, error) {
	candidates := h.patternCandidates(question)
	for _, chain := range h.properNounCandidates(question) {
		if !overlapsAny(chain, candidates) {
			candidates = append(candidates, chain)
		}
	}
	return dedupeCandidates(candidates), nil
}

// patternCandidates applies the ordered name patterns.
func (h *HeuristicExtractor) patternCandidates(question string) []models.MentionCandidate {
	var candidates []models.MentionCandidate

	for _, p := range namePatterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(question, -1) {
			// Group 1 is the name; loc[2:4] are its offsets.
			start, end := loc[2], loc[3]
			if start < 0 {
				continue
			}
			candidates = append(candidates, models.MentionCandidate{
				Text:                 question[start:end],
				StartOffset:          start,
				EndOffset:            end,
				CategoryHint:         HintPersonCandidate,
				ExtractionConfidence: p.confidence,
			})
		}
	}

	return candidates
}

// token is a whitespace-delimited word with its span in the question.
type token struct {
	text  string
	start int
	end   int
}

// properNounCandidates scans for capitalized tokens the patterns did not
// anchor on. Two consecutive proper nouns are treated as one name at
// higher confidence; a lone proper noun is a weaker candidate.
func (h *HeuristicExtractor) properNounCandidates(question string) []models.MentionCandidate {
	tokens := tokenize(question)
	var candidates []models.MentionCandidate

	for i := 0; i < len(tokens); i++ {
		if !isProperNoun(tokens[i].text) {
			continue
		}
		if i+1 < len(tokens) && isProperNoun(tokens[i+1].text) {
			start, end := tokens[i].start, tokens[i+1].end
			candidates = append(candidates, models.MentionCandidate{
				Text:                 question[start:end],
				StartOffset:          start,
				EndOffset:            end,
				CategoryHint:         HintPersonCandidate,
				ExtractionConfidence: 0.9,
			})
			i++ // consumed the pair
			continue
		}
		candidates = append(candidates, models.MentionCandidate{
			Text:                 tokens[i].text,
			StartOffset:          tokens[i].start,
			EndOffset:            tokens[i].end,
			CategoryHint:         HintPersonCandidate,
			ExtractionConfidence: 0.7,
		})
	}

	return candidates
}

func tokenize(s string) []token {
	var tokens []token
	start := -1
	for i, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, token{text: s[start:i], start: start, end: i})
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{text: s[start:], start: start, end: len(s)})
	}
	return tokens
}

// isProperNoun reports whether a token looks like part of a name: longer
// than two letters, leading uppercase, all alphabetic, and not a word that
// is only capitalized because it opens the question.
func isProperNoun(word string) bool {
	if len(word) <= 2 {
		return false
	}
	runes := []rune(word)
	if !unicode.IsUpper(runes[0]) {
		return false
	}
	for _, r := range runes {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	_, common := questionWords[strings.ToLower(word)]
	return !common
}

// Ensure HeuristicExtractor implements Extractor at compile time.
var _ Extractor = (*HeuristicExtractor)(nil)
