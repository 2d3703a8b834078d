package domain

import (
	"fmt"
	"time"
)

// Well-known metadata keys written by the indexing pipeline.
const (
	MetaKeyFilename         = "filename"
	MetaKeyTitle            = "title"
	MetaKeySource           = "source"
	MetaKeyUploadedAt       = "uploadedAt"
	MetaKeyFileType         = "fileType"
	MetaKeyFileSize         = "fileSize"
	MetaKeyProcessingMethod = "processing_method"
)

// KnowledgeChunk represents a stored unit of assistant knowledge. The
// embedding is optional: chunks indexed while the embedding provider was
// unreachable carry a nil vector until the backfill worker repairs them.
type KnowledgeChunk struct {
	ID          string
	AssistantID string
	Category    string
	Subcategory string
	Content     string
	Embedding   []float32
	Metadata    map[string]any
	CreatedAt   time.Time
}

// NewKnowledgeChunk creates a new KnowledgeChunk instance
func NewKnowledgeChunk(id, assistantID, category, content string, createdAt time.Time) *KnowledgeChunk {
	return &KnowledgeChunk{
		ID:          id,
		AssistantID: assistantID,
		Category:    category,
		Content:     content,
		CreatedAt:   createdAt,
	}
}

// HasUsableEmbedding reports whether the chunk carries a vector of the
// expected dimensionality. Chunks failing this check are excluded from
// vector ranking but remain visible to lexical scoring.
func (c *KnowledgeChunk) HasUsableEmbedding(dimensions int) bool {
	return len(c.Embedding) == dimensions && dimensions > 0
}

// MetaString returns the metadata value for key if it is a non-empty string.
func (c *KnowledgeChunk) MetaString(key string) string {
	if c.Metadata == nil {
		return ""
	}
	if v, ok := c.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// SourceLabel derives the human-readable source for citations: the uploaded
// filename when present, then the declared source, then a fixed fallback.
func (c *KnowledgeChunk) SourceLabel() string {
	if v := c.MetaString(MetaKeyFilename); v != "" {
		return v
	}
	if v := c.MetaString(MetaKeySource); v != "" {
		return v
	}
	return "Unknown source"
}

// ValidateKnowledgeChunk validates a KnowledgeChunk instance
func ValidateKnowledgeChunk(c *KnowledgeChunk) error {
	if c == nil {
		return fmt.Errorf("knowledge chunk cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("knowledge chunk ID is required")
	}

	if c.AssistantID == "" {
		return fmt.Errorf("knowledge chunk AssistantID is required")
	}

	if c.Content == "" {
		return fmt.Errorf("knowledge chunk Content is required")
	}

	return nil
}
