// Package parser turns a raw query string into the stem sequence the query
// engine consumes, using the same tokenizer as the indexer.
package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/barrel-search/internal/indexer/tokenizer"
)

// MaxQueryLength bounds the raw query accepted by Parse; longer input is
// cut at the last whole word.
const MaxQueryLength = 1024

type QueryPlan struct {
	RawQuery string
	// Terms are the query stems in input order, repeats kept.
	Terms []string
}

// Empty reports whether the query has no searchable stems.
func (p *QueryPlan) Empty() bool {
	return len(p.Terms) == 0
}

func Parse(query string) *QueryPlan {
	plan := &QueryPlan{
		RawQuery: query,
		Terms:    make([]string, 0),
	}
	text := strings.TrimSpace(query)
	if text == "" {
		return plan
	}
	if len(text) > MaxQueryLength {
		text = text[:MaxQueryLength]
		if i := strings.LastIndexAny(text, " \t\n"); i > 0 {
			text = text[:i]
		}
	}
	plan.Terms = tokenizer.Tokenize(text)
	return plan
}
