package vector

import (
	"context"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/richipal/tmsagent/pkg/models"
)

const fakeEmbedDims = 64

// FakeStore is an in-memory Store for tests. The built-in embedder hashes
// character trigrams into a fixed-size bag, so a misspelling of an indexed
// value lands close to it and an unrelated string lands far away — the
// same shape the real embedding space has for names and codes.
type FakeStore struct {
	mu              sync.RWMutex
	records         map[models.EntityCategory]map[string]fakeRecord
	acceptThreshold float64

	// EmbedFunc overrides the built-in trigram embedder when set.
	EmbedFunc func(text string) []float32

	// FailInserts forces every Insert to report failure, for exercising
	// error-collection paths.
	FailInserts bool
}

type fakeRecord struct {
	record models.EntityRecord
	vec    []float32
}

// NewFakeStore creates an empty in-memory store with the given acceptance
// threshold.
func NewFakeStore(acceptThreshold float64) *FakeStore {
	return &FakeStore{
		records:         make(map[models.EntityCategory]map[string]fakeRecord),
		acceptThreshold: acceptThreshold,
	}
}

func (s *FakeStore) embed(text string) []float32 {
	if s.EmbedFunc != nil {
		return s.EmbedFunc(text)
	}
	return trigramEmbed(text, fakeEmbedDims)
}

// Insert implements Store.
func (s *FakeStore) Insert(_ context.Context, text string, category models.EntityCategory, metadata map[string]string) bool {
	if s.FailInserts {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.records[category] == nil {
		s.records[category] = make(map[string]fakeRecord)
	}

	id := models.EntityRecordID(category, text)
	s.records[category][id] = fakeRecord{
		record: models.EntityRecord{
			ID:       id,
			Text:     text,
			Category: category,
			Metadata: metadata,
		},
		vec: s.embed(text),
	}
	return true
}

// Search implements Store.
func (s *FakeStore) Search(ctx context.Context, text string, category models.EntityCategory, topK int) []Match {
	return s.search(ctx, text, category, topK, s.acceptThreshold)
}

// SearchAll implements Store.
func (s *FakeStore) SearchAll(ctx context.Context, text string, category models.EntityCategory, topK int) []Match {
	return s.search(ctx, text, category, topK, math.Inf(-1))
}

func (s *FakeStore) search(_ context.Context, text string, category models.EntityCategory, topK int, minConfidence float64) []Match {
	if topK <= 0 {
		return nil
	}

	query := s.embed(text)

	s.mu.RLock()
	candidates := make([]Match, 0, len(s.records[category]))
	for _, rec := range s.records[category] {
		candidates = append(candidates, Match{
			Record:     rec.record,
			Confidence: cosineSimilarity(query, rec.vec),
		})
	}
	s.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	var matches []Match
	for _, m := range candidates {
		if m.Confidence >= minConfidence {
			matches = append(matches, m)
		}
	}
	return matches
}

// Has implements Store.
func (s *FakeStore) Has(_ context.Context, text string, category models.EntityCategory) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[category][models.EntityRecordID(category, text)]
	return ok
}

// Reset implements Store.
func (s *FakeStore) Reset(_ context.Context, category models.EntityCategory) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, category)
	return true
}

// Count implements Store.
func (s *FakeStore) Count(_ context.Context, category models.EntityCategory) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records[category]), nil
}

// trigramEmbed hashes the character trigrams of the lower-cased, padded
// text into a counted bag of the given dimension, L2-normalized.
func trigramEmbed(text string, dims int) []float32 {
	vec := make([]float32, dims)
	padded := "  " + strings.ToLower(strings.TrimSpace(text)) + "  "
	for i := 0; i+3 <= len(padded); i++ {
		h := fnv.New32a()
		h.Write([]byte(padded[i : i+3]))
		vec[h.Sum32()%uint32(dims)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Ensure FakeStore implements Store at compile time.
var _ Store = (*FakeStore)(nil)
