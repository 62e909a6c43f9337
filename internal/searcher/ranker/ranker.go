// Package ranker scores documents against query terms with TF-IDF.
package ranker

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
)

// ScoredDoc is an untruncated scoring result.
type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// SearchResult is a ranked document with its preview.
type SearchResult struct {
	Document *index.Document `json:"-"`
	DocID    string          `json:"doc_id"`
	Score    float64         `json:"score"`
	Snippet  string          `json:"snippet"`
}

// Rank scores, sorts, truncates to limit and attaches snippets, in that
// order. Empty terms, a nil index or limit <= 0 yield an empty result.
func Rank(terms []string, idx *index.Index, limit int) []SearchResult {
	if limit <= 0 {
		return []SearchResult{}
	}
	return Top(Score(terms, idx), idx, terms, limit)
}

// Score accumulates tf*idf per document over the distinct query terms and
// returns every matching document ordered by score descending, then by id.
//
//	idf = ln(totalDocs / (df + 1))   may be negative for common terms
//	tf  = freq / doc.TermCount
func Score(terms []string, idx *index.Index) []ScoredDoc {
	if idx == nil || len(terms) == 0 {
		return []ScoredDoc{}
	}
	totalDocs := float64(idx.TotalDocs())
	scores := make(map[string]float64)
	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}

		postings := idx.Postings(term)
		if len(postings) == 0 {
			continue
		}
		idf := computeIDF(totalDocs, len(postings))
		for _, posting := range postings {
			doc, ok := idx.Document(posting.DocID)
			if !ok || doc.TermCount == 0 {
				continue
			}
			tf := float64(posting.Frequency) / float64(doc.TermCount)
			scores[posting.DocID] += tf * idf
		}
	}

	result := make([]ScoredDoc, 0, len(scores))
	for docID, score := range scores {
		result = append(result, ScoredDoc{DocID: docID, Score: score})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].DocID < result[j].DocID
	})
	return result
}

// Top truncates scored to limit and builds snippets for the survivors only.
func Top(scored []ScoredDoc, idx *index.Index, terms []string, limit int) []SearchResult {
	if idx == nil || limit <= 0 {
		return []SearchResult{}
	}
	if len(scored) > limit {
		scored = scored[:limit]
	}
	results := make([]SearchResult, 0, len(scored))
	for _, s := range scored {
		doc, ok := idx.Document(s.DocID)
		if !ok {
			continue
		}
		results = append(results, SearchResult{
			Document: doc,
			DocID:    doc.ID,
			Score:    s.Score,
			Snippet:  Snippet(doc.Text, terms),
		})
	}
	return results
}

func computeIDF(totalDocs float64, docFreq int) float64 {
	return math.Log(totalDocs / float64(docFreq+1))
}
