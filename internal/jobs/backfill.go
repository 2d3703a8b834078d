package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/legacy-decks/deckhand/internal/domain"
)

const (
	// MaxAttempts is the number of embedding attempts before a chunk is
	// skipped for the rest of the process lifetime.
	MaxAttempts = 3

	// BatchSize is how many chunks one poll tries to repair.
	BatchSize = 50
)

// ChunkEmbeddingStore defines the chunk persistence needed by the backfill.
type ChunkEmbeddingStore interface {
	ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.KnowledgeChunk, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// QueryEmbedder generates embeddings for chunk content.
type QueryEmbedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingBackfill repairs chunks that were stored without a vector, which
// happens whenever the embedding provider is down during indexing.
type EmbeddingBackfill struct {
	store    ChunkEmbeddingStore
	embedder QueryEmbedder
	attempts map[string]int
}

// NewEmbeddingBackfill creates a new EmbeddingBackfill instance
func NewEmbeddingBackfill(store ChunkEmbeddingStore, embedder QueryEmbedder) *EmbeddingBackfill {
	return &EmbeddingBackfill{
		store:    store,
		embedder: embedder,
		attempts: make(map[string]int),
	}
}

// ProcessJobs implements the JobProcessor interface
func (b *EmbeddingBackfill) ProcessJobs(ctx context.Context) error {
	chunks, err := b.store.ListMissingEmbeddings(ctx, BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list chunks missing embeddings: %w", err)
	}

	if len(chunks) == 0 {
		return nil
	}

	log.Printf("Backfilling embeddings for %d chunks", len(chunks))

	for _, chunk := range chunks {
		if b.attempts[chunk.ID] >= MaxAttempts {
			continue
		}
		if err := b.processChunk(ctx, chunk); err != nil {
			log.Printf("Error backfilling chunk %s: %v", chunk.ID, err)
		}
	}

	return nil
}

func (b *EmbeddingBackfill) processChunk(ctx context.Context, chunk *domain.KnowledgeChunk) error {
	vector, err := b.embedder.GenerateEmbedding(ctx, chunk.Content)
	if err != nil {
		b.attempts[chunk.ID]++
		if b.attempts[chunk.ID] >= MaxAttempts {
			log.Printf("Chunk %s exceeded max embedding attempts (%d), skipping", chunk.ID, MaxAttempts)
		}
		return err
	}
	if vector == nil {
		// Content cleaned down to nothing; there is nothing to embed.
		b.attempts[chunk.ID] = MaxAttempts
		return nil
	}

	if err := b.store.UpdateEmbedding(ctx, chunk.ID, vector); err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}

	delete(b.attempts, chunk.ID)
	return nil
}
