package service

import (
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/legacy-decks/deckhand/internal/domain"
)

const (
	exactPhraseContentScore  = 300
	exactPhraseMetadataScore = 200
	wordContentScore         = 100
	wordMetadataScore        = 80
	sourceMatchScore         = 60
	categoryMatchScore       = 50
	subcategoryMatchScore    = 40
	shortTermOccurrenceScore = 50
	patternKeywordScore      = 75
	hasCategoryScore         = 15
	hasMetadataScore         = 10

	lexicalMinScore   = 5
	lexicalMaxResults = 15
	shortTermMaxLen   = 5

	// A score of exactPhraseContentScore maps to 100% similarity; anything
	// above lexicalMinScore reports at least lexicalMinPercent.
	lexicalMinPercent = 35
)

// Question-shaped filler words carry no signal for keyword matching.
var lexicalStopwords = map[string]struct{}{
	"what": {}, "when": {}, "where": {}, "who": {}, "why": {}, "how": {},
	"is": {}, "are": {}, "the": {}, "a": {}, "an": {}, "does": {}, "do": {},
}

var nonWordChars = regexp.MustCompile(`[^\w]`)

// lexicalTerms normalizes a query into scoring terms: lowercase, split on
// whitespace, strip punctuation, drop stopwords and empty leftovers.
func lexicalTerms(query string) []string {
	var terms []string
	for _, token := range strings.Fields(strings.ToLower(strings.TrimSpace(query))) {
		clean := nonWordChars.ReplaceAllString(token, "")
		if clean == "" {
			continue
		}
		if _, ok := lexicalStopwords[clean]; ok {
			continue
		}
		terms = append(terms, clean)
	}
	return terms
}

type scoredChunk struct {
	chunk *domain.KnowledgeChunk
	score int
}

// rankLexical scores candidate chunks against the query using weighted
// keyword matching and returns the top matches as search results. It is the
// fallback tier used when vector ranking yields nothing.
func rankLexical(query string, chunks []*domain.KnowledgeChunk, patterns []SemanticPattern) []*domain.SearchResult {
	queryLower := strings.ToLower(strings.TrimSpace(query))
	if queryLower == "" {
		return nil
	}
	terms := lexicalTerms(queryLower)

	var keywords []string
	for _, p := range patterns {
		if p.Pattern.MatchString(queryLower) {
			keywords = append(keywords, p.Keywords...)
		}
	}

	scored := make([]scoredChunk, 0, len(chunks))
	for _, chunk := range chunks {
		score := scoreChunk(queryLower, terms, keywords, chunk)
		if score >= lexicalMinScore {
			scored = append(scored, scoredChunk{chunk: chunk, score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	if len(scored) > lexicalMaxResults {
		scored = scored[:lexicalMaxResults]
	}

	results := make([]*domain.SearchResult, len(scored))
	for i, sc := range scored {
		results[i] = domain.NewSearchResult(sc.chunk, lexicalPercent(sc.score))
	}
	return results
}

func scoreChunk(queryLower string, terms, patternKeywords []string, chunk *domain.KnowledgeChunk) int {
	contentLower := strings.ToLower(chunk.Content)
	metadataLower := serializeMetadata(chunk.Metadata)
	sourceLower := strings.ToLower(provenance(chunk))
	categoryLower := strings.ToLower(chunk.Category)
	subcategoryLower := strings.ToLower(chunk.Subcategory)

	score := 0

	if strings.Contains(contentLower, queryLower) {
		score += exactPhraseContentScore
	}
	if metadataLower != "" && strings.Contains(metadataLower, queryLower) {
		score += exactPhraseMetadataScore
	}

	for _, term := range terms {
		wordRe := wholeWordPattern(term)

		if n := len(wordRe.FindAllStringIndex(contentLower, -1)); n > 0 {
			score += n * wordContentScore
		}
		if metadataLower != "" {
			if n := len(wordRe.FindAllStringIndex(metadataLower, -1)); n > 0 {
				score += n * wordMetadataScore
			}
		}

		if sourceLower != "" && strings.Contains(sourceLower, term) {
			score += sourceMatchScore
		}
		if categoryLower != "" && strings.Contains(categoryLower, term) {
			score += categoryMatchScore
		}
		if subcategoryLower != "" && strings.Contains(subcategoryLower, term) {
			score += subcategoryMatchScore
		}

		// Short terms also count unanchored occurrences so partial hits
		// like "rep" inside "representative" still score.
		if len(term) <= shortTermMaxLen {
			if n := strings.Count(contentLower, term); n > 0 {
				score += n * shortTermOccurrenceScore
			}
		}
	}

	for _, keyword := range patternKeywords {
		if strings.Contains(contentLower, keyword) {
			score += patternKeywordScore
		}
	}

	if chunk.Category != "" {
		score += hasCategoryScore
	}
	if len(chunk.Metadata) > 0 {
		score += hasMetadataScore
	}

	return score
}

// provenance returns the chunk's raw filename or source metadata for scoring.
// Unlike SourceLabel it has no display fallback, so chunks without provenance
// never earn the source bonus.
func provenance(chunk *domain.KnowledgeChunk) string {
	if v := chunk.MetaString(domain.MetaKeyFilename); v != "" {
		return v
	}
	return chunk.MetaString(domain.MetaKeySource)
}

func wholeWordPattern(term string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(term) + `\b`)
}

// serializeMetadata flattens chunk metadata into a lowercase blob for
// substring matching. json.Marshal sorts map keys, so the blob is stable
// for a given metadata value.
func serializeMetadata(metadata map[string]any) string {
	if len(metadata) == 0 {
		return ""
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return ""
	}
	return strings.ToLower(string(raw))
}

// lexicalPercent maps a raw lexical score onto the similarity percentage
// scale shared with vector results.
func lexicalPercent(score int) int {
	percent := int(math.Round(float64(score) / float64(exactPhraseContentScore) * 100))
	if percent < lexicalMinPercent {
		percent = lexicalMinPercent
	}
	if percent > 100 {
		percent = 100
	}
	return percent
}
