package service

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/legacy-decks/deckhand/internal/domain"
	"github.com/legacy-decks/deckhand/internal/telemetry"
)

// ChunkFilters narrows candidate fetching by taxonomy.
type ChunkFilters struct {
	Category    string
	Subcategory string
}

// ChunkRepository defines the chunk persistence interface needed by retrieval.
type ChunkRepository interface {
	ListByAssistant(ctx context.Context, assistantID string, filters ChunkFilters) ([]*domain.KnowledgeChunk, error)
}

// EmbeddingClient defines the interface for query embedding.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// SearchInput represents input for a retrieval search.
type SearchInput struct {
	AssistantID string
	Query       string
	Category    string
	Subcategory string
}

// SearchOutput carries ranked results and the strategy that produced them.
type SearchOutput struct {
	Results  []*domain.SearchResult
	Strategy domain.SearchStrategy
}

// RetrievalConfig controls retrieval behavior.
type RetrievalConfig struct {
	Patterns []SemanticPattern
	// EmbeddingTimeout bounds the query-embedding call. A hung provider
	// degrades to lexical ranking instead of stalling the whole search.
	EmbeddingTimeout time.Duration
}

const defaultEmbeddingTimeout = 10 * time.Second

// DefaultRetrievalConfig returns the default retrieval configuration.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		Patterns:         DefaultSemanticPatterns(),
		EmbeddingTimeout: defaultEmbeddingTimeout,
	}
}

// RetrievalService ranks an assistant's knowledge chunks against a query.
// Vector similarity is tried first; when it produces nothing the lexical
// ranker runs over the full candidate set.
type RetrievalService struct {
	chunks    ChunkRepository
	embedding EmbeddingClient
	logs      SearchLogRepository
	cfg       RetrievalConfig
}

// NewRetrievalService creates a new RetrievalService instance
func NewRetrievalService(chunks ChunkRepository, embedding EmbeddingClient) *RetrievalService {
	return NewRetrievalServiceWithConfig(chunks, embedding, nil, DefaultRetrievalConfig())
}

// NewRetrievalServiceWithConfig creates a new RetrievalService with explicit
// configuration. The search log repository may be nil.
func NewRetrievalServiceWithConfig(
	chunks ChunkRepository,
	embedding EmbeddingClient,
	logs SearchLogRepository,
	cfg RetrievalConfig,
) *RetrievalService {
	if len(cfg.Patterns) == 0 {
		cfg.Patterns = DefaultSemanticPatterns()
	}
	if cfg.EmbeddingTimeout <= 0 {
		cfg.EmbeddingTimeout = defaultEmbeddingTimeout
	}
	return &RetrievalService{
		chunks:    chunks,
		embedding: embedding,
		logs:      logs,
		cfg:       cfg,
	}
}

// Search runs the two-tier ranking over the assistant's chunks. The query
// embedding is generated concurrently with the candidate fetch; embedding
// failures degrade to lexical ranking instead of failing the search.
func (s *RetrievalService) Search(ctx context.Context, input SearchInput) (*SearchOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Search", telemetry.SpanAttributes{
		AssistantID: input.AssistantID,
		Operation:   "search",
	})
	defer span.End()

	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}

	started := time.Now()
	filters := ChunkFilters{Category: input.Category, Subcategory: input.Subcategory}

	var candidates []*domain.KnowledgeChunk
	var queryVector []float32

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		candidates, err = s.chunks.ListByAssistant(gctx, input.AssistantID, filters)
		return err
	})
	g.Go(func() error {
		embedCtx, cancel := context.WithTimeout(gctx, s.cfg.EmbeddingTimeout)
		defer cancel()
		vector, err := s.embedding.GenerateEmbedding(embedCtx, query)
		if err != nil {
			// Vector ranking is skipped; lexical still runs. A timeout
			// lands here too.
			telemetry.CaptureError(gctx, err)
			return nil
		}
		queryVector = vector
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Filters can be stale relative to the stored taxonomy. Retry once
	// without them before declaring the assistant's knowledge empty.
	if len(candidates) == 0 && (filters.Category != "" || filters.Subcategory != "") {
		var err error
		candidates, err = s.chunks.ListByAssistant(ctx, input.AssistantID, ChunkFilters{})
		if err != nil {
			return nil, err
		}
	}

	if len(candidates) == 0 {
		out := &SearchOutput{Results: []*domain.SearchResult{}, Strategy: domain.StrategyNone}
		s.logSearch(ctx, input, out, started)
		return out, nil
	}

	if queryVector != nil {
		embeddable := make([]*domain.KnowledgeChunk, 0, len(candidates))
		for _, c := range candidates {
			if c.HasUsableEmbedding(s.embedding.Dimensions()) {
				embeddable = append(embeddable, c)
			}
		}
		if results := rankByVector(queryVector, embeddable); len(results) > 0 {
			out := &SearchOutput{Results: results, Strategy: domain.StrategyVector}
			s.logSearch(ctx, input, out, started)
			return out, nil
		}
	}

	// Lexical fallback scores every candidate, including chunks that were
	// eligible for vector ranking but fell under its threshold.
	results := rankLexical(query, candidates, s.cfg.Patterns)
	strategy := domain.StrategyLexical
	if len(results) == 0 {
		results = []*domain.SearchResult{}
		strategy = domain.StrategyNone
	}

	out := &SearchOutput{Results: results, Strategy: strategy}
	s.logSearch(ctx, input, out, started)
	return out, nil
}

func (s *RetrievalService) logSearch(ctx context.Context, input SearchInput, out *SearchOutput, started time.Time) {
	if s.logs == nil {
		return
	}

	entry := SearchLogEntry{
		AssistantID: input.AssistantID,
		Query:       input.Query,
		Strategy:    out.Strategy,
		ResultCount: len(out.Results),
		DurationMs:  int(time.Since(started).Milliseconds()),
	}
	if len(out.Results) > 0 {
		entry.TopSimilarity = out.Results[0].Similarity
	}

	if _, err := s.logs.CreateSearchLog(ctx, entry); err != nil {
		telemetry.CaptureError(ctx, err)
	}
}
