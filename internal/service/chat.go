package service

import (
	"context"

	"github.com/legacy-decks/deckhand/internal/domain"
	"github.com/legacy-decks/deckhand/internal/openai"
	"github.com/legacy-decks/deckhand/internal/telemetry"
)

const (
	defaultChatTemperature = 0.7
	defaultChatMaxTokens   = 2000

	// Results below this similarity percentage are treated as irrelevant
	// even when the ranker returned them.
	defaultRelevanceThreshold = 20
)

// Retriever runs a knowledge search for a chat turn.
type Retriever interface {
	Search(ctx context.Context, input SearchInput) (*SearchOutput, error)
}

// ChatStreamer opens streaming chat completions.
type ChatStreamer interface {
	StreamChat(ctx context.Context, req openai.ChatRequest) (openai.ChatStream, error)
}

// ChatInput represents one chat request: the full message history, newest
// last.
type ChatInput struct {
	AssistantID string
	Messages    []openai.ChatMessage
}

// ChatResult carries the completion stream plus how knowledge retrieval went.
type ChatResult struct {
	Stream   openai.ChatStream
	Outcome  KnowledgeOutcome
	Strategy domain.SearchStrategy
}

// ChatConfig controls chat completion behavior.
type ChatConfig struct {
	Model              string
	Temperature        float32
	MaxTokens          int
	RelevanceThreshold int
}

// DefaultChatConfig returns the default chat configuration.
func DefaultChatConfig() ChatConfig {
	return ChatConfig{
		Temperature:        defaultChatTemperature,
		MaxTokens:          defaultChatMaxTokens,
		RelevanceThreshold: defaultRelevanceThreshold,
	}
}

// ChatService grounds assistant conversations in retrieved knowledge.
type ChatService struct {
	assistants AssistantRepository
	retriever  Retriever
	streamer   ChatStreamer
	cfg        ChatConfig
}

// NewChatService creates a new ChatService instance
func NewChatService(assistants AssistantRepository, retriever Retriever, streamer ChatStreamer) *ChatService {
	return NewChatServiceWithConfig(assistants, retriever, streamer, DefaultChatConfig())
}

// NewChatServiceWithConfig creates a new ChatService with explicit configuration.
func NewChatServiceWithConfig(
	assistants AssistantRepository,
	retriever Retriever,
	streamer ChatStreamer,
	cfg ChatConfig,
) *ChatService {
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultChatTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultChatMaxTokens
	}
	if cfg.RelevanceThreshold <= 0 {
		cfg.RelevanceThreshold = defaultRelevanceThreshold
	}
	return &ChatService{
		assistants: assistants,
		retriever:  retriever,
		streamer:   streamer,
		cfg:        cfg,
	}
}

// Chat retrieves knowledge for the latest user message, assembles the system
// prompt, and opens a completion stream. Retrieval failures never abort the
// chat: the prompt instead instructs the model to report the knowledge base
// as unavailable.
func (s *ChatService) Chat(ctx context.Context, input ChatInput) (*ChatResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChatService.Chat", telemetry.SpanAttributes{
		AssistantID: input.AssistantID,
		Operation:   "chat",
	})
	defer span.End()

	assistant, err := s.assistants.GetByID(ctx, input.AssistantID)
	if err != nil {
		return nil, err
	}

	messages := validMessages(input.Messages)
	if len(messages) == 0 {
		return nil, domain.ErrNoValidMessages
	}
	latest := latestUserMessage(messages)

	outcome := OutcomeDisabled
	strategy := domain.StrategyNone
	var results []*domain.SearchResult

	if assistant.KnowledgeEnabled && latest != "" {
		out, err := s.retriever.Search(ctx, SearchInput{
			AssistantID: assistant.ID,
			Query:       latest,
		})
		if err != nil {
			telemetry.CaptureError(ctx, err)
			outcome = OutcomeKnowledgeUnavailable
		} else {
			strategy = out.Strategy
			results = relevantResults(out.Results, s.cfg.RelevanceThreshold)
			if len(results) > 0 {
				outcome = OutcomeKnowledgeFound
			} else {
				outcome = OutcomeNoRelevantKnowledge
			}
		}
	}

	systemPrompt := BuildSystemPrompt(assistant.SystemPrompt, assistant.Contact(), outcome, results)

	chatMessages := make([]openai.ChatMessage, 0, len(messages)+1)
	chatMessages = append(chatMessages, openai.ChatMessage{Role: "system", Content: systemPrompt})
	chatMessages = append(chatMessages, messages...)

	stream, err := s.streamer.StreamChat(ctx, openai.ChatRequest{
		Model:       s.cfg.Model,
		Messages:    chatMessages,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	return &ChatResult{Stream: stream, Outcome: outcome, Strategy: strategy}, nil
}

func validMessages(messages []openai.ChatMessage) []openai.ChatMessage {
	out := make([]openai.ChatMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == "" || m.Content == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}

func latestUserMessage(messages []openai.ChatMessage) string {
	if len(messages) == 0 {
		return ""
	}
	return messages[len(messages)-1].Content
}

func relevantResults(results []*domain.SearchResult, threshold int) []*domain.SearchResult {
	out := make([]*domain.SearchResult, 0, len(results))
	for _, r := range results {
		if r == nil || r.Content == "" {
			continue
		}
		if r.Similarity >= threshold {
			out = append(out, r)
		}
	}
	return out
}
