package vector

import (
	"context"
	"encoding/json"
	"math"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/richipal/tmsagent/pkg/llm"
	"github.com/richipal/tmsagent/pkg/models"
	"github.com/richipal/tmsagent/pkg/retry"
)

// PGStore implements Store on a pgvector-enabled Postgres table. Records
// are keyed by a deterministic id derived from category and text, so
// re-indexing the same value is an upsert, last write wins.
type PGStore struct {
	pool            *pgxpool.Pool
	llm             llm.LLMClient
	acceptThreshold float64
	logger          *zap.Logger
}

// NewPGStore creates a pgvector-backed similarity index. acceptThreshold
// is the minimum confidence Search will return. If logger is nil, a no-op
// logger is used.
func NewPGStore(pool *pgxpool.Pool, llmClient llm.LLMClient, acceptThreshold float64, logger *zap.Logger) *PGStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PGStore{
		pool:            pool,
		llm:             llmClient,
		acceptThreshold: acceptThreshold,
		logger:          logger.Named("vector"),
	}
}

// Insert implements Store.
func (s *PGStore) Insert(ctx context.Context, text string, category models.EntityCategory, metadata map[string]string) bool {
	// Index builds run hundreds of these; a rate-limited embedding call
	// gets retried instead of failing the entity outright.
	var embedding []float32
	err := retry.DoIfRetryable(ctx, nil, func() error {
		var embedErr error
		embedding, embedErr = s.llm.CreateEmbedding(ctx, text, "")
		return embedErr
	})
	if err != nil {
		s.logger.Error("Failed to embed entity",
			zap.String("text", text),
			zap.String("category", string(category)),
			zap.Error(err))
		return false
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		s.logger.Error("Failed to marshal entity metadata",
			zap.String("text", text),
			zap.Error(err))
		return false
	}

	const upsertSQL = `
		INSERT INTO tmsagent.entity_vectors (id, category, entity_text, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			category = EXCLUDED.category,
			entity_text = EXCLUDED.entity_text,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata
	`

	id := models.EntityRecordID(category, text)
	_, err = s.pool.Exec(ctx, upsertSQL, id, string(category), text, pgvector.NewVector(embedding), metadataJSON)
	if err != nil {
		s.logger.Error("Failed to upsert entity",
			zap.String("id", id),
			zap.String("category", string(category)),
			zap.Error(err))
		return false
	}

	s.logger.Debug("Indexed entity",
		zap.String("id", id),
		zap.String("category", string(category)))
	return true
}

// Search implements Store.
func (s *PGStore) Search(ctx context.Context, text string, category models.EntityCategory, topK int) []Match {
	return s.search(ctx, text, category, topK, s.acceptThreshold)
}

// SearchAll implements Store.
func (s *PGStore) SearchAll(ctx context.Context, text string, category models.EntityCategory, topK int) []Match {
	return s.search(ctx, text, category, topK, math.Inf(-1))
}

func (s *PGStore) search(ctx context.Context, text string, category models.EntityCategory, topK int, minConfidence float64) []Match {
	if topK <= 0 {
		return nil
	}

	embedding, err := s.llm.CreateEmbedding(ctx, text, "")
	if err != nil {
		s.logger.Error("Failed to embed search text",
			zap.String("text", text),
			zap.Error(err))
		return nil
	}

	const searchSQL = `
		SELECT id, entity_text, metadata, embedding <=> $1::vector AS distance
		FROM tmsagent.entity_vectors
		WHERE category = $2
		ORDER BY embedding <=> $1::vector
		LIMIT $3
	`

	rows, err := s.pool.Query(ctx, searchSQL, pgvector.NewVector(embedding), string(category), topK)
	if err != nil {
		s.logger.Error("Similarity search failed",
			zap.String("category", string(category)),
			zap.Error(err))
		return nil
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			id           string
			entityText   string
			metadataJSON []byte
			distance     float64
		)
		if err := rows.Scan(&id, &entityText, &metadataJSON, &distance); err != nil {
			s.logger.Error("Failed to scan match row", zap.Error(err))
			return nil
		}

		// Cosine distance to confidence.
		confidence := 1.0 - distance
		if confidence < minConfidence {
			continue
		}

		var metadata map[string]string
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
				s.logger.Warn("Dropping unreadable entity metadata",
					zap.String("id", id),
					zap.Error(err))
				metadata = nil
			}
		}

		matches = append(matches, Match{
			Record: models.EntityRecord{
				ID:       id,
				Text:     entityText,
				Category: category,
				Metadata: metadata,
			},
			Confidence: confidence,
		})
	}

	if err := rows.Err(); err != nil {
		s.logger.Error("Similarity search row iteration failed",
			zap.String("category", string(category)),
			zap.Error(err))
		return nil
	}

	return matches
}

// Has implements Store.
func (s *PGStore) Has(ctx context.Context, text string, category models.EntityCategory) bool {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tmsagent.entity_vectors WHERE id = $1)`,
		models.EntityRecordID(category, text)).Scan(&exists)
	if err != nil {
		s.logger.Error("Existence check failed",
			zap.String("category", string(category)),
			zap.Error(err))
		return false
	}
	return exists
}

// Reset implements Store.
func (s *PGStore) Reset(ctx context.Context, category models.EntityCategory) bool {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tmsagent.entity_vectors WHERE category = $1`, string(category))
	if err != nil {
		s.logger.Error("Failed to reset category",
			zap.String("category", string(category)),
			zap.Error(err))
		return false
	}

	s.logger.Info("Reset category",
		zap.String("category", string(category)),
		zap.Int64("deleted", tag.RowsAffected()))
	return true
}

// Count implements Store.
func (s *PGStore) Count(ctx context.Context, category models.EntityCategory) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tmsagent.entity_vectors WHERE category = $1`, string(category)).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Ensure PGStore implements Store at compile time.
var _ Store = (*PGStore)(nil)
