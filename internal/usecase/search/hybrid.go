package search

import (
	"sort"

	domdoc "github.com/campusdesk/retrievald/internal/domain/document"
	domsearch "github.com/campusdesk/retrievald/internal/domain/search"
)

// combineScores merges semantic and lexical signals into one ranked list.
// Lexical scores are min-max normalized against the highest score in the
// candidate set, so scales stay comparable per request. Results below the
// threshold are dropped, the rest sorted by combined score with fully
// deterministic tie-breaks, deduplicated per document if requested, and
// truncated to k.
func combineScores(
	candidates []domsearch.Candidate,
	lexical map[string]float64,
	docs map[string]domdoc.Document,
	params *domsearch.Params,
) []domsearch.Result {
	if len(candidates) == 0 {
		return nil
	}

	maxLexical := 0.0
	for _, s := range lexical {
		if s > maxLexical {
			maxLexical = s
		}
	}

	w := params.Weights()
	results := make([]domsearch.Result, 0, len(candidates))
	for _, c := range candidates {
		lex := 0.0
		if maxLexical > 0 {
			lex = lexical[c.ChunkID] / maxLexical
		}

		combined := w.Semantic()*c.Semantic + w.Lexical()*lex
		if combined < params.Threshold() {
			continue
		}

		doc, ok := docs[c.DocID]
		var docCreatedAt int64
		if ok {
			docCreatedAt = doc.CreatedAt()
		}

		results = append(results, domsearch.NewResult(
			c.ChunkID, c.DocID, c.ChunkIndex, c.Text,
			c.Semantic, lex, combined,
			c.Page, c.Section, docCreatedAt,
		))
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := &results[i], &results[j]
		if a.Combined() != b.Combined() {
			return a.Combined() > b.Combined()
		}
		if a.Semantic() != b.Semantic() {
			return a.Semantic() > b.Semantic()
		}
		if a.ChunkIndex() != b.ChunkIndex() {
			return a.ChunkIndex() < b.ChunkIndex()
		}
		return a.DocCreatedAt() < b.DocCreatedAt()
	})

	if params.MaxPerDoc() > 0 {
		results = dedupByDocument(results, params.MaxPerDoc())
	}

	if len(results) > params.K() {
		results = results[:params.K()]
	}
	return results
}

// dedupByDocument keeps at most maxPerDoc results per document,
// preserving rank order.
func dedupByDocument(results []domsearch.Result, maxPerDoc int) []domsearch.Result {
	perDoc := make(map[string]int, len(results))
	kept := results[:0]
	for _, r := range results {
		if perDoc[r.DocID()] >= maxPerDoc {
			continue
		}
		perDoc[r.DocID()]++
		kept = append(kept, r)
	}
	return kept
}
