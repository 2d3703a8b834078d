package service

import (
	"math"
	"sort"

	"github.com/legacy-decks/deckhand/internal/domain"
)

// Shared by the in-process ranker and the repository's server-side
// nearest-neighbor search, which must agree on the contract.
const (
	VectorSimilarityThreshold = 0.5
	VectorMaxResults          = 10
)

// cosineSimilarity returns the cosine of the angle between two vectors.
// Mismatched lengths or a zero-magnitude vector yield 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// rankByVector scores embeddable chunks against the query vector and keeps
// those at or above the similarity threshold, best first. Chunks without a
// usable embedding never reach this function.
func rankByVector(queryVector []float32, chunks []*domain.KnowledgeChunk) []*domain.SearchResult {
	type scored struct {
		chunk      *domain.KnowledgeChunk
		similarity float64
	}

	matches := make([]scored, 0, len(chunks))
	for _, chunk := range chunks {
		sim := cosineSimilarity(queryVector, chunk.Embedding)
		if sim >= VectorSimilarityThreshold {
			matches = append(matches, scored{chunk: chunk, similarity: sim})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].similarity > matches[j].similarity
	})
	if len(matches) > VectorMaxResults {
		matches = matches[:VectorMaxResults]
	}

	results := make([]*domain.SearchResult, len(matches))
	for i, m := range matches {
		results[i] = domain.NewSearchResult(m.chunk, int(math.Round(m.similarity*100)))
	}
	return results
}
