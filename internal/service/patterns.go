package service

import "regexp"

// SemanticPattern maps a query shape to the keywords a matching answer is
// likely to contain. When a query matches the pattern, each keyword found in
// a chunk's content earns a fixed bonus during lexical scoring.
type SemanticPattern struct {
	Pattern  *regexp.Regexp
	Keywords []string
}

// DefaultSemanticPatterns returns the built-in pattern table. Deployments
// with a different knowledge domain inject their own table through
// RetrievalConfig.
func DefaultSemanticPatterns() []SemanticPattern {
	return []SemanticPattern{
		{
			Pattern:  regexp.MustCompile(`(?i)what.*purpose|purpose.*ai|ai.*assistant`),
			Keywords: []string{"purpose", "ai", "assistant", "goal", "objective"},
		},
		{
			Pattern:  regexp.MustCompile(`(?i)what.*crm|crm.*use|crm.*system`),
			Keywords: []string{"crm", "buildertrend", "customer", "management", "system"},
		},
		{
			Pattern:  regexp.MustCompile(`(?i)after.*contract|contract.*signed|post.*contract`),
			Keywords: []string{"contract", "signed", "after", "next", "steps", "process"},
		},
		{
			Pattern:  regexp.MustCompile(`(?i)outside.*service.*area|service.*area.*outside`),
			Keywords: []string{"service", "area", "outside", "territory", "region"},
		},
		{
			Pattern:  regexp.MustCompile(`(?i)what.*rep.*do|rep.*should`),
			Keywords: []string{"rep", "representative", "should", "do", "action"},
		},
	}
}
