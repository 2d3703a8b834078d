package domain

// SearchResult is a ranked chunk ready for context assembly. Similarity is a
// whole percentage in [0, 100]; Source is always populated at construction.
type SearchResult struct {
	Content     string
	Similarity  int
	Source      string
	Category    string
	Subcategory string
	Metadata    map[string]any
}

// NewSearchResult builds a SearchResult from a chunk and its similarity
// percentage, deriving the citation source from the chunk metadata.
func NewSearchResult(chunk *KnowledgeChunk, similarity int) *SearchResult {
	return &SearchResult{
		Content:     chunk.Content,
		Similarity:  similarity,
		Source:      chunk.SourceLabel(),
		Category:    chunk.Category,
		Subcategory: chunk.Subcategory,
		Metadata:    chunk.Metadata,
	}
}

// SearchStrategy identifies which ranking tier produced a set of results.
type SearchStrategy string

const (
	StrategyVector  SearchStrategy = "vector"
	StrategyLexical SearchStrategy = "lexical"
	StrategyNone    SearchStrategy = "none"
)
