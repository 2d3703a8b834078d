package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/legacy-decks/deckhand/internal/domain"
)

const testContact = "Legacy Decks Academy"

func TestBuildSystemPrompt_AlwaysCarriesCriticalInstructions(t *testing.T) {
	for _, outcome := range []KnowledgeOutcome{
		OutcomeKnowledgeFound,
		OutcomeNoRelevantKnowledge,
		OutcomeKnowledgeUnavailable,
		OutcomeDisabled,
	} {
		t.Run(string(outcome), func(t *testing.T) {
			prompt := BuildSystemPrompt("You help deck sales reps.", testContact, outcome, nil)

			assert.True(t, strings.HasPrefix(prompt, "You help deck sales reps."))
			assert.Contains(t, prompt, "=== CRITICAL INSTRUCTIONS ===")
			assert.Contains(t, prompt, "=== END CRITICAL INSTRUCTIONS ===")
			assert.Contains(t, prompt, "NEVER hallucinate")
		})
	}
}

func TestBuildSystemPrompt_DefaultBasePrompt(t *testing.T) {
	prompt := BuildSystemPrompt("", testContact, OutcomeDisabled, nil)
	assert.True(t, strings.HasPrefix(prompt, "You are a helpful AI assistant."))
}

func TestBuildSystemPrompt_KnowledgeFound(t *testing.T) {
	results := []*domain.SearchResult{
		{Content: "Decks carry a 10 year warranty.", Similarity: 92, Source: "warranty.pdf"},
		{Content: "Claims go through the office.", Similarity: 71, Source: "claims.pdf"},
	}

	prompt := BuildSystemPrompt("base", testContact, OutcomeKnowledgeFound, results)

	assert.Contains(t, prompt, "=== KNOWLEDGE BASE CONTENT ===")
	assert.Contains(t, prompt, "=== END KNOWLEDGE BASE CONTENT ===")
	assert.Contains(t, prompt, "[Knowledge Base Source 1: warranty.pdf - Relevance: 92%]\nDecks carry a 10 year warranty.")
	assert.Contains(t, prompt, "[Knowledge Base Source 2: claims.pdf - Relevance: 71%]\nClaims go through the office.")
	assert.Contains(t, prompt, "Base your response EXCLUSIVELY on the knowledge base content above.")

	assert.NotContains(t, prompt, "=== NO RELEVANT KNOWLEDGE FOUND ===")
	assert.NotContains(t, prompt, "=== KNOWLEDGE BASE UNAVAILABLE ===")
}

func TestBuildSystemPrompt_NoRelevantKnowledge(t *testing.T) {
	prompt := BuildSystemPrompt("base", testContact, OutcomeNoRelevantKnowledge, nil)

	assert.Contains(t, prompt, "=== NO RELEVANT KNOWLEDGE FOUND ===")
	assert.Contains(t, prompt, NoKnowledgeReply(testContact))
	assert.Contains(t, prompt, "=== END ===")

	assert.NotContains(t, prompt, "=== KNOWLEDGE BASE CONTENT ===")
	assert.NotContains(t, prompt, "=== KNOWLEDGE BASE UNAVAILABLE ===")
}

func TestBuildSystemPrompt_KnowledgeUnavailable(t *testing.T) {
	prompt := BuildSystemPrompt("base", testContact, OutcomeKnowledgeUnavailable, nil)

	assert.Contains(t, prompt, "=== KNOWLEDGE BASE UNAVAILABLE ===")
	assert.Contains(t, prompt, UnavailableReply(testContact))

	assert.NotContains(t, prompt, "=== KNOWLEDGE BASE CONTENT ===")
	assert.NotContains(t, prompt, "=== NO RELEVANT KNOWLEDGE FOUND ===")
}

func TestBuildSystemPrompt_Disabled(t *testing.T) {
	prompt := BuildSystemPrompt("base", testContact, OutcomeDisabled, nil)

	assert.NotContains(t, prompt, "=== KNOWLEDGE BASE CONTENT ===")
	assert.NotContains(t, prompt, "=== NO RELEVANT KNOWLEDGE FOUND ===")
	assert.NotContains(t, prompt, "=== KNOWLEDGE BASE UNAVAILABLE ===")
}

func TestBuildSystemPrompt_SkipsEmptyResults(t *testing.T) {
	results := []*domain.SearchResult{
		nil,
		{Content: "", Similarity: 80, Source: "empty.pdf"},
		{Content: "Real content.", Similarity: 55, Source: "real.pdf"},
	}

	prompt := BuildSystemPrompt("base", testContact, OutcomeKnowledgeFound, results)

	assert.NotContains(t, prompt, "empty.pdf")
	// Numbering is consecutive over the valid passages.
	assert.Contains(t, prompt, "[Knowledge Base Source 1: real.pdf - Relevance: 55%]")
}

func TestNoKnowledgeReply(t *testing.T) {
	reply := NoKnowledgeReply("Acme Decks")
	assert.Equal(t, "I don't have specific information about that in my knowledge base. Please contact a Acme Decks representative for accurate information.", reply)
}

func TestUnavailableReply(t *testing.T) {
	reply := UnavailableReply("Acme Decks")
	assert.Equal(t, "I'm unable to access my knowledge base at the moment. Please contact a Acme Decks representative for accurate information.", reply)
}
