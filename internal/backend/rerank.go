package backend

import (
	"sort"
	"strings"
)

// rerankWeight balances vector similarity against lexical overlap in the
// reranked relevance score.
const rerankWeight = 0.3

// Rerank assigns each match a relevance score and orders matches by relevance
// descending, ties broken by similarity descending. With useReranking false
// relevance equals similarity; otherwise similarity is blended with the
// lexical overlap between the query and the matched chunk.
func Rerank(query string, matches []Match, useReranking bool) []scored {
	results := make([]scored, len(matches))
	for i, m := range matches {
		relevance := m.Similarity
		if useReranking {
			relevance = (1-rerankWeight)*m.Similarity + rerankWeight*lexicalOverlap(query, m.Chunk)
		}
		results[i] = scored{Match: m, Relevance: relevance}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Relevance != results[j].Relevance {
			return results[i].Relevance > results[j].Relevance
		}
		return results[i].Match.Similarity > results[j].Match.Similarity
	})
	return results
}

type scored struct {
	Match     Match
	Relevance float64
}

// lexicalOverlap is the fraction of distinct query terms present in the
// chunk, in [0,1].
func lexicalOverlap(query, chunk string) float64 {
	terms := map[string]bool{}
	for _, t := range strings.Fields(strings.ToLower(query)) {
		terms[strings.Trim(t, ".,!?;:\"'()")] = true
	}
	delete(terms, "")
	if len(terms) == 0 {
		return 0
	}

	haystack := strings.ToLower(chunk)
	hits := 0
	for t := range terms {
		if strings.Contains(haystack, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}
