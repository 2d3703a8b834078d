package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/legacy-decks/deckhand/internal/domain"
	"github.com/legacy-decks/deckhand/internal/openai"
	"github.com/legacy-decks/deckhand/internal/pagination"
	"github.com/legacy-decks/deckhand/internal/telemetry"
)

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// ChunkStore defines the repository interface for chunk persistence
type ChunkStore interface {
	Create(ctx context.Context, chunk *domain.KnowledgeChunk) error
	GetByID(ctx context.Context, id string) (*domain.KnowledgeChunk, error)
	Update(ctx context.Context, chunk *domain.KnowledgeChunk) error
	Delete(ctx context.Context, id string) error
	ListWithCursor(ctx context.Context, assistantID string, cursor *pagination.Cursor, limit int) (*ChunkPageResult, error)
}

// EmbeddingBatchClient extends EmbeddingClient with batched generation.
type EmbeddingBatchClient interface {
	EmbeddingClient
	GenerateEmbeddings(ctx context.Context, texts []string) ([]openai.IndexedEmbedding, error)
}

// DocumentArchive stores raw uploaded documents for later download.
type DocumentArchive interface {
	PutDocument(ctx context.Context, key string, data []byte, contentType string) error
}

// ChunkPageResult is one page of chunks.
type ChunkPageResult struct {
	Items      []*domain.KnowledgeChunk
	NextCursor string
	HasMore    bool
}

// IndexDocumentInput describes one document to index.
type IndexDocumentInput struct {
	AssistantID string
	Category    string
	Subcategory string
	Content     string
	Filename    string
	Title       string
	Source      string
	FileType    string
	FileSize    int64
	Raw         []byte
}

// UpdateChunkInput represents the input for editing a stored chunk. A nil
// Metadata leaves the stored metadata untouched; a non-nil map replaces it.
type UpdateChunkInput struct {
	ID          string
	Category    string
	Subcategory string
	Content     string
	Metadata    map[string]any
}

// ListChunksInput selects a page of an assistant's chunks.
type ListChunksInput struct {
	AssistantID string
	Cursor      string
	Limit       int
}

// IndexingService turns documents into stored knowledge chunks. Embedding
// failures do not block indexing: the chunk is stored without a vector and
// the backfill worker repairs it once the provider recovers.
type IndexingService struct {
	chunks    ChunkStore
	embedding EmbeddingBatchClient
	archive   DocumentArchive
	uuidGen   UUIDGenerator
}

// NewIndexingService creates a new IndexingService instance. The archive may
// be nil when document storage is not configured.
func NewIndexingService(chunks ChunkStore, embedding EmbeddingBatchClient, archive DocumentArchive) *IndexingService {
	return &IndexingService{
		chunks:    chunks,
		embedding: embedding,
		archive:   archive,
		uuidGen:   &DefaultUUIDGenerator{},
	}
}

// NewIndexingServiceWithUUIDGen creates a new IndexingService with custom UUID generator (for testing)
func NewIndexingServiceWithUUIDGen(
	chunks ChunkStore,
	embedding EmbeddingBatchClient,
	archive DocumentArchive,
	uuidGen UUIDGenerator,
) *IndexingService {
	return &IndexingService{
		chunks:    chunks,
		embedding: embedding,
		archive:   archive,
		uuidGen:   uuidGen,
	}
}

// IndexDocument stores a single document as a knowledge chunk.
func (s *IndexingService) IndexDocument(ctx context.Context, input IndexDocumentInput) (*domain.KnowledgeChunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "IndexingService.IndexDocument", telemetry.SpanAttributes{
		AssistantID: input.AssistantID,
		Operation:   "index",
	})
	defer span.End()

	chunk, err := s.buildChunk(input)
	if err != nil {
		return nil, err
	}

	vector, err := s.embedding.GenerateEmbedding(ctx, chunk.Content)
	if err != nil {
		telemetry.CaptureError(ctx, err)
	} else {
		chunk.Embedding = vector
	}

	s.archiveDocument(ctx, chunk, input)

	if err := s.chunks.Create(ctx, chunk); err != nil {
		return nil, err
	}
	return chunk, nil
}

// IndexDocuments stores a batch of documents, embedding them in a single
// API call. All documents are stored even when embedding fails.
func (s *IndexingService) IndexDocuments(ctx context.Context, inputs []IndexDocumentInput) ([]*domain.KnowledgeChunk, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	ctx, span := telemetry.StartSpan(ctx, "IndexingService.IndexDocuments", telemetry.SpanAttributes{
		AssistantID: inputs[0].AssistantID,
		Operation:   "index_batch",
	})
	defer span.End()

	chunks := make([]*domain.KnowledgeChunk, len(inputs))
	texts := make([]string, len(inputs))
	for i, input := range inputs {
		chunk, err := s.buildChunk(input)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		chunks[i] = chunk
		texts[i] = chunk.Content
	}

	embeddings, err := s.embedding.GenerateEmbeddings(ctx, texts)
	if err != nil {
		telemetry.CaptureError(ctx, err)
	} else {
		for _, e := range embeddings {
			chunks[e.Index].Embedding = e.Vector
		}
	}

	for i, chunk := range chunks {
		s.archiveDocument(ctx, chunk, inputs[i])
		if err := s.chunks.Create(ctx, chunk); err != nil {
			return nil, err
		}
	}
	return chunks, nil
}

// IndexLargeDocument splits an oversized document into overlapping segments
// and indexes each as its own chunk. Every segment shares the document's
// metadata.
func (s *IndexingService) IndexLargeDocument(ctx context.Context, input IndexDocumentInput, cfg SplitConfig) ([]*domain.KnowledgeChunk, error) {
	segments := splitContent(input.Content, cfg)
	if len(segments) == 0 {
		return nil, domain.ErrEmptyContent
	}

	inputs := make([]IndexDocumentInput, len(segments))
	for i, segment := range segments {
		part := input
		part.Content = segment
		// Only the first segment carries the raw document into the archive.
		if i > 0 {
			part.Raw = nil
		}
		inputs[i] = part
	}
	return s.IndexDocuments(ctx, inputs)
}

// GetChunk retrieves a chunk by ID
func (s *IndexingService) GetChunk(ctx context.Context, id string) (*domain.KnowledgeChunk, error) {
	return s.chunks.GetByID(ctx, id)
}

// ListChunks retrieves one page of an assistant's chunks
func (s *IndexingService) ListChunks(ctx context.Context, input ListChunksInput) (*ChunkPageResult, error) {
	cursor, _ := pagination.DecodeCursor(input.Cursor)
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	return s.chunks.ListWithCursor(ctx, input.AssistantID, cursor, limit)
}

// UpdateChunk edits a stored chunk and regenerates its embedding when the
// content changed.
func (s *IndexingService) UpdateChunk(ctx context.Context, input UpdateChunkInput) (*domain.KnowledgeChunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "IndexingService.UpdateChunk", telemetry.SpanAttributes{
		ChunkID:   input.ID,
		Operation: "update",
	})
	defer span.End()

	chunk, err := s.chunks.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, domain.ErrEmptyContent
	}

	contentChanged := content != chunk.Content
	chunk.Content = content
	chunk.Category = input.Category
	chunk.Subcategory = input.Subcategory
	if input.Metadata != nil {
		chunk.Metadata = input.Metadata
	}

	if contentChanged {
		vector, err := s.embedding.GenerateEmbedding(ctx, content)
		if err != nil {
			// Stale vectors mislead ranking; drop it and let the
			// backfill worker regenerate.
			telemetry.CaptureError(ctx, err)
			chunk.Embedding = nil
		} else {
			chunk.Embedding = vector
		}
	}

	if err := s.chunks.Update(ctx, chunk); err != nil {
		return nil, err
	}
	return chunk, nil
}

// DeleteChunk removes a chunk
func (s *IndexingService) DeleteChunk(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "IndexingService.DeleteChunk", telemetry.SpanAttributes{
		ChunkID:   id,
		Operation: "delete",
	})
	defer span.End()

	return s.chunks.Delete(ctx, id)
}

func (s *IndexingService) buildChunk(input IndexDocumentInput) (*domain.KnowledgeChunk, error) {
	if input.AssistantID == "" {
		return nil, domain.ErrMissingRequiredField
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, domain.ErrEmptyContent
	}

	now := time.Now().UTC()
	metadata := map[string]any{
		domain.MetaKeyUploadedAt:       now.Format(time.RFC3339),
		domain.MetaKeyProcessingMethod: "direct_text",
	}
	if input.Filename != "" {
		metadata[domain.MetaKeyFilename] = input.Filename
	}
	if input.Title != "" {
		metadata[domain.MetaKeyTitle] = input.Title
	}
	if input.Source != "" {
		metadata[domain.MetaKeySource] = input.Source
	}
	if input.FileType != "" {
		metadata[domain.MetaKeyFileType] = input.FileType
	}
	if input.FileSize > 0 {
		metadata[domain.MetaKeyFileSize] = input.FileSize
	}

	return &domain.KnowledgeChunk{
		ID:          s.uuidGen.NewString(),
		AssistantID: input.AssistantID,
		Category:    input.Category,
		Subcategory: input.Subcategory,
		Content:     content,
		Metadata:    metadata,
		CreatedAt:   now,
	}, nil
}

// archiveDocument uploads the raw document when an archive is configured.
// Archive failures are reported but never block indexing.
func (s *IndexingService) archiveDocument(ctx context.Context, chunk *domain.KnowledgeChunk, input IndexDocumentInput) {
	if s.archive == nil || len(input.Raw) == 0 {
		return
	}

	name := input.Filename
	if name == "" {
		name = "document"
	}
	key := fmt.Sprintf("%s/%s/%s", chunk.AssistantID, chunk.ID, name)

	contentType := input.FileType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := s.archive.PutDocument(ctx, key, input.Raw, contentType); err != nil {
		telemetry.CaptureError(ctx, err)
	}
}
