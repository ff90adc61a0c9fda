package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/legalwatchdog/platform/internal/tenant"
	"github.com/legalwatchdog/platform/pkg/chunker"
)

// embedBatchSize keeps a single embeddings request within API input limits.
const embedBatchSize = 64

// Service indexes revision content for semantic search. Chunks live in
// revision_chunks with the owning organization denormalized onto every row;
// queries filter on it so results never cross tenants.
type Service struct {
	db       *pgxpool.Pool
	embedder *Embedder
}

func NewService(db *pgxpool.Pool, embedder *Embedder) *Service {
	return &Service{db: db, embedder: embedder}
}

// IndexRevision chunks and embeds one revision. Re-indexing replaces the
// revision's previous chunks.
func (s *Service) IndexRevision(ctx context.Context, revisionID uuid.UUID) error {
	var orgID, sourceID uuid.UUID
	var content string
	err := s.db.QueryRow(ctx,
		`SELECT organization_id, source_id, content FROM revisions WHERE id = $1`, revisionID,
	).Scan(&orgID, &sourceID, &content)
	if errors.Is(err, pgx.ErrNoRows) {
		slog.Warn("revision to index not found", "revision_id", revisionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load revision: %w", err)
	}

	chunks := chunker.Split(content, chunker.DefaultOptions())
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM revision_chunks WHERE revision_id = $1`, revisionID); err != nil {
		return fmt.Errorf("clear old chunks: %w", err)
	}

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}
		vectors, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return err
		}

		for i, c := range batch {
			_, err := tx.Exec(ctx,
				`INSERT INTO revision_chunks (id, organization_id, revision_id, source_id, chunk_index, content, embedding, token_count)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				uuid.New(), orgID, revisionID, sourceID, c.Index, c.Content,
				pgvector.NewVector(vectors[i]), chunker.EstimateTokens(c.Content),
			)
			if err != nil {
				return fmt.Errorf("insert chunk %d: %w", c.Index, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit index: %w", err)
	}

	slog.Info("revision indexed", "revision_id", revisionID, "chunks", len(chunks))
	return nil
}

type Result struct {
	ChunkID    uuid.UUID `json:"chunk_id"`
	RevisionID uuid.UUID `json:"revision_id"`
	SourceID   uuid.UUID `json:"source_id"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	Score      float64   `json:"score"`
}

// Query runs cosine similarity search over the organization's chunks.
func (s *Service) Query(ctx context.Context, access *tenant.Access, query string, topK int) ([]Result, error) {
	if topK <= 0 || topK > 50 {
		topK = 10
	}

	vector, err := s.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, err
	}
	embedding := pgvector.NewVector(vector)

	rows, err := s.db.Query(ctx,
		`SELECT id, revision_id, source_id, chunk_index, content,
		        1 - (embedding <=> $1) AS score
		 FROM revision_chunks
		 WHERE organization_id = $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		embedding, access.OrganizationID, topK,
	)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ChunkID, &r.RevisionID, &r.SourceID, &r.ChunkIndex, &r.Content, &r.Score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}
