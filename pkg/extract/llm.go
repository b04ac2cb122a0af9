package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/richipal/tmsagent/pkg/jsonutil"
	"github.com/richipal/tmsagent/pkg/llm"
	"github.com/richipal/tmsagent/pkg/models"
)

// entityExtractionSystemMessage keeps the model on task across providers.
const entityExtractionSystemMessage = "You are a named entity recognition system. You respond with valid JSON only, never prose."

// entityExtractionPrompt is a strict JSON-only NER prompt. Models drift
// into markdown and commentary without this level of repetition.
const entityExtractionPrompt = `TASK: Extract named entities from the question below.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO explanation.

ENTITY LABELS (ONLY these 4):
- PERSON: a person's name
- ORG: an organization, department, or institution
- GPE: a geopolitical place (city, district, region)
- LOC: any other location, site, or building

REQUIRED JSON STRUCTURE:
Your response MUST start with { and end with }
Your response MUST have an "entities" key with an array value
Each entity MUST have: text, label, confidence

Example structure (EXACT FORMAT REQUIRED):
{
  "entities": [
    {"text":"Rosalinda Rodriguez","label":"PERSON","confidence":0.95},
    {"text":"Lincoln High School","label":"LOC","confidence":0.9}
  ]
}

RULES:
1. "text" must be copied verbatim from the question
2. Labels EXACTLY: PERSON|ORG|GPE|LOC
3. Confidence 0.0-1.0
4. Return {"entities":[]} when the question names no entities
5. Do not extract SQL keywords, table names, or generic words

QUESTION:
%s

RESPOND WITH ONLY THE JSON OBJECT:`

// LLMExtractor extracts named entities with a single chat completion call.
// It is the primary stage of the extraction chain.
type LLMExtractor struct {
	llm    llm.LLMClient
	logger *zap.Logger
}

// NewLLMExtractor creates the model-backed extractor.
func NewLLMExtractor(client llm.LLMClient, logger *zap.Logger) *LLMExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMExtractor{
		llm:    client,
		logger: logger.Named("extract-llm"),
	}
}

// extractedEntity mirrors the model's response shape. Raw messages absorb
// the type sloppiness LLMs produce (quoted confidences, numeric names).
type extractedEntity struct {
	Text       json.RawMessage `json:"text"`
	Label      json.RawMessage `json:"label"`
	Confidence json.RawMessage `json:"confidence"`
}

type extractionResponse struct {
	Entities []extractedEntity `json:"entities"`
}

// Extract implements Extractor.
func (e *LLMExtractor) Extract(ctx context.Context, question string) ([]models.MentionCandidate, error) {
	prompt := fmt.Sprintf(entityExtractionPrompt, question)

	response, err := e.llm.GenerateResponse(ctx, prompt, entityExtractionSystemMessage, 0)
	if err != nil {
		return nil, fmt.Errorf("entity extraction call failed: %w", err)
	}

	jsonStr, err := llm.ExtractJSON(response)
	if err != nil {
		return nil, fmt.Errorf("no JSON in extraction response: %w", err)
	}

	var parsed extractionResponse
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	var candidates []models.MentionCandidate
	for _, ent := range parsed.Entities {
		text := strings.TrimSpace(jsonutil.FlexibleStringValue(ent.Text))
		if text == "" {
			continue
		}

		label := strings.ToUpper(strings.TrimSpace(jsonutil.FlexibleStringValue(ent.Label)))
		switch label {
		case HintPerson, HintOrg, HintGPE, HintLoc:
		default:
			e.logger.Debug("Dropping entity with unknown label",
				zap.String("text", text),
				zap.String("label", label))
			continue
		}

		start, end, ok := locateSpan(question, text)
		if !ok {
			// The model paraphrased instead of copying; without a span
			// there is nothing to splice.
			e.logger.Debug("Dropping entity not present in question",
				zap.String("text", text))
			continue
		}

		confidence := jsonutil.FlexibleFloatValue(ent.Confidence, 1.0)
		if confidence > 1.0 {
			confidence = 1.0
		}
		if confidence < 0 {
			confidence = 0
		}

		candidates = append(candidates, models.MentionCandidate{
			Text:                 question[start:end],
			StartOffset:          start,
			EndOffset:            end,
			CategoryHint:         label,
			ExtractionConfidence: confidence,
		})
	}

	return candidates, nil
}

// locateSpan finds the byte offsets of text within question, matching
// case-insensitively but returning offsets into the original string.
func locateSpan(question, text string) (start, end int, ok bool) {
	idx := strings.Index(strings.ToLower(question), strings.ToLower(text))
	if idx < 0 {
		return 0, 0, false
	}
	return idx, idx + len(text), true
}

// Ensure LLMExtractor implements Extractor at compile time.
var _ Extractor = (*LLMExtractor)(nil)
