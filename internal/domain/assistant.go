package domain

import (
	"fmt"
	"time"
)

// Assistant represents a configured chat assistant that owns a slice of the
// knowledge base. Chunks are matched to an assistant by case-insensitive
// comparison of its ID.
type Assistant struct {
	ID               string
	Name             string
	Description      string
	SystemPrompt     string
	ContactName      string
	KnowledgeEnabled bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewAssistant creates a new Assistant instance
func NewAssistant(id, name, systemPrompt string, createdAt time.Time) *Assistant {
	return &Assistant{
		ID:               id,
		Name:             name,
		SystemPrompt:     systemPrompt,
		KnowledgeEnabled: true,
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
	}
}

// ValidateAssistant validates an Assistant instance
func ValidateAssistant(a *Assistant) error {
	if a == nil {
		return fmt.Errorf("assistant cannot be nil")
	}

	if a.ID == "" {
		return fmt.Errorf("assistant ID is required")
	}

	if a.Name == "" {
		return fmt.Errorf("assistant Name is required")
	}

	return nil
}

// Contact returns the name callers should be referred to when the assistant
// cannot answer from its knowledge base.
func (a *Assistant) Contact() string {
	if a.ContactName != "" {
		return a.ContactName
	}
	return a.Name
}
