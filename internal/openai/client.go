package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536
	// DefaultChatModel is the OpenAI model used for chat completions
	DefaultChatModel = openai.GPT4o
)

var (
	// ErrWrongDimensions is returned when embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions, expected 1536")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
	// ErrNoEmbeddingData is returned when the API responds without embeddings
	ErrNoEmbeddingData = errors.New("no embedding data returned")
)

var (
	newlineRuns    = regexp.MustCompile(`\n+`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// CleanText normalizes text before embedding: newline runs and other
// whitespace runs collapse to single spaces and the result is trimmed.
func CleanText(text string) string {
	text = newlineRuns.ReplaceAllString(text, " ")
	text = whitespaceRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// IndexedEmbedding pairs a vector with the position of its input in the
// original batch, so callers can align results after empty inputs are
// skipped.
type IndexedEmbedding struct {
	Index  int
	Vector []float32
}

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatAPI defines the interface for streaming chat completions
type ChatAPI interface {
	CreateChatStream(ctx context.Context, req ChatRequest) (ChatStream, error)
}

// ChatMessage is a single message in a chat completion request.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatRequest describes a streaming chat completion call.
type ChatRequest struct {
	Model       string
	Messages    []ChatMessage
	Temperature float32
	MaxTokens   int
}

// ChatStream yields completion deltas until io.EOF.
type ChatStream interface {
	Recv() (string, error)
	Close() error
}

// Client wraps the OpenAI API client
type Client struct {
	api        EmbeddingAPI
	chat       ChatAPI
	dimensions int
}

type OpenAIAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIAdapter(apiKey string, model openai.EmbeddingModel) *OpenAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &OpenAIAdapter{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// CreateEmbeddings calls the OpenAI API to create embeddings for a batch of texts
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, ErrNoEmbeddingData
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// CreateChatStream opens a streaming chat completion
func (a *OpenAIAdapter) CreateChatStream(ctx context.Context, req ChatRequest) (ChatStream, error) {
	model := req.Model
	if model == "" {
		model = DefaultChatModel
	}

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	stream, err := a.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		return nil, err
	}
	return &chatStream{inner: stream}, nil
}

type chatStream struct {
	inner *openai.ChatCompletionStream
}

func (s *chatStream) Recv() (string, error) {
	resp, err := s.inner.Recv()
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

func (s *chatStream) Close() error {
	return s.inner.Close()
}

type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	adapter := NewOpenAIAdapter(cfg.APIKey, cfg.EmbeddingModel)
	return &Client{
		api:        adapter,
		chat:       adapter,
		dimensions: dimensions,
	}
}

// NewClientFromEnv creates a new OpenAI client using OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// Dimensions returns the expected embedding dimensionality.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// GenerateEmbedding generates an embedding for the given text. Text that is
// empty after cleaning produces no vector and no API call; any API failure
// is returned to the caller rather than swallowed.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	cleaned := CleanText(text)
	if cleaned == "" {
		return nil, nil
	}

	vectors, err := c.api.CreateEmbeddings(ctx, []string{cleaned})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(vectors) == 0 {
		return nil, ErrNoEmbeddingData
	}

	if len(vectors[0]) != c.dimensions {
		return nil, ErrWrongDimensions
	}
	return vectors[0], nil
}

// GenerateEmbeddings embeds a batch of texts in a single API call. Inputs
// that are empty after cleaning are skipped; each returned embedding carries
// the index of its original input so callers can realign.
func (c *Client) GenerateEmbeddings(ctx context.Context, texts []string) ([]IndexedEmbedding, error) {
	indices := make([]int, 0, len(texts))
	cleaned := make([]string, 0, len(texts))
	for i, t := range texts {
		ct := CleanText(t)
		if ct == "" {
			continue
		}
		indices = append(indices, i)
		cleaned = append(cleaned, ct)
	}

	if len(cleaned) == 0 {
		return nil, nil
	}

	vectors, err := c.api.CreateEmbeddings(ctx, cleaned)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(vectors) != len(cleaned) {
		return nil, ErrNoEmbeddingData
	}

	results := make([]IndexedEmbedding, len(vectors))
	for i, v := range vectors {
		if len(v) != c.dimensions {
			return nil, ErrWrongDimensions
		}
		results[i] = IndexedEmbedding{Index: indices[i], Vector: v}
	}
	return results, nil
}

// StreamChat opens a streaming chat completion using the configured API key.
func (c *Client) StreamChat(ctx context.Context, req ChatRequest) (ChatStream, error) {
	return c.chat.CreateChatStream(ctx, req)
}
