package service

import (
	"fmt"
	"strings"

	"github.com/legacy-decks/deckhand/internal/domain"
)

// KnowledgeOutcome states what the retrieval step produced for a chat turn.
// The system prompt carries exactly one knowledge block per outcome, except
// OutcomeDisabled which adds none.
type KnowledgeOutcome string

const (
	OutcomeKnowledgeFound       KnowledgeOutcome = "knowledge_found"
	OutcomeNoRelevantKnowledge  KnowledgeOutcome = "no_relevant_knowledge"
	OutcomeKnowledgeUnavailable KnowledgeOutcome = "knowledge_unavailable"
	OutcomeDisabled             KnowledgeOutcome = "disabled"
)

// NoKnowledgeReply is the canned refusal the model is instructed to give
// when nothing relevant was retrieved.
func NoKnowledgeReply(contact string) string {
	return fmt.Sprintf("I don't have specific information about that in my knowledge base. Please contact a %s representative for accurate information.", contact)
}

// UnavailableReply is the canned refusal for knowledge base outages.
func UnavailableReply(contact string) string {
	return fmt.Sprintf("I'm unable to access my knowledge base at the moment. Please contact a %s representative for accurate information.", contact)
}

// BuildSystemPrompt assembles the full system prompt for a chat turn. The
// critical instructions block is always present; the knowledge block that
// follows is chosen by the retrieval outcome.
func BuildSystemPrompt(basePrompt, contact string, outcome KnowledgeOutcome, results []*domain.SearchResult) string {
	var b strings.Builder

	base := basePrompt
	if base == "" {
		base = "You are a helpful AI assistant."
	}
	b.WriteString(base)

	b.WriteString("\n\n=== CRITICAL INSTRUCTIONS ===\n")
	fmt.Fprintf(&b, "1. You MUST ONLY use information from your knowledge base when answering questions about %s.\n", contact)
	fmt.Fprintf(&b, "2. If you do not find relevant information in your knowledge base, you MUST respond with: '%s'\n", NoKnowledgeReply(contact))
	fmt.Fprintf(&b, "3. NEVER make assumptions or provide generic information when asked specific questions about %s.\n", contact)
	b.WriteString("4. NEVER hallucinate or invent information that is not explicitly provided in your knowledge base.\n")
	b.WriteString("5. When you use knowledge base information, ALWAYS cite the source document.\n")
	b.WriteString("=== END CRITICAL INSTRUCTIONS ===\n")

	switch outcome {
	case OutcomeKnowledgeFound:
		b.WriteString("\n\n=== KNOWLEDGE BASE CONTENT ===\n")
		fmt.Fprintf(&b, "The following content is from your verified knowledge base. You MUST use ONLY this information to answer questions about %s. Do NOT add any information that is not explicitly stated below.\n\n", contact)
		b.WriteString(formatKnowledgeContext(results))
		b.WriteString("\n\n=== END KNOWLEDGE BASE CONTENT ===\n")
		b.WriteString("\nIMPORTANT: Base your response EXCLUSIVELY on the knowledge base content above. If the answer is not in the knowledge base content, say so explicitly. Always cite the source document when using knowledge base information.")

	case OutcomeNoRelevantKnowledge:
		b.WriteString("\n\n=== NO RELEVANT KNOWLEDGE FOUND ===\n")
		fmt.Fprintf(&b, "Your knowledge base search did not return relevant information for this query. You MUST respond with: '%s'\n", NoKnowledgeReply(contact))
		b.WriteString("Do NOT provide generic or assumed information.\n")
		b.WriteString("=== END ===\n")

	case OutcomeKnowledgeUnavailable:
		b.WriteString("\n\n=== KNOWLEDGE BASE UNAVAILABLE ===\n")
		fmt.Fprintf(&b, "Your knowledge base is currently unavailable. For questions about %s, you MUST respond with: '%s'\n", contact, UnavailableReply(contact))
		b.WriteString("=== END ===\n")
	}

	return b.String()
}

// formatKnowledgeContext renders retrieved results as numbered, cited
// passages.
func formatKnowledgeContext(results []*domain.SearchResult) string {
	passages := make([]string, 0, len(results))
	for _, r := range results {
		if r == nil || r.Content == "" {
			continue
		}
		passages = append(passages, fmt.Sprintf("[Knowledge Base Source %d: %s - Relevance: %d%%]\n%s", len(passages)+1, r.Source, r.Similarity, r.Content))
	}
	return strings.Join(passages, "\n\n")
}
