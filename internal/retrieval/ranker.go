// Package retrieval embeds queries, searches the vector index and ranks
// the hits for answer generation.
package retrieval

import (
	"github.com/citewise/citewise/internal/models"
)

// Rank applies the diversity filter to hits already ordered by descending
// similarity: exact duplicates (same content hash) are dropped, each
// document contributes at most maxPerDocument chunks, and at most topK
// chunks are returned. The result is never padded and keeps the input
// order.
func Rank(hits []models.SearchHit, topK, maxPerDocument int) []models.RankedChunk {
	if topK <= 0 {
		return nil
	}
	ranked := make([]models.RankedChunk, 0, topK)
	seen := make(map[string]bool)
	perDoc := make(map[string]int)
	for _, hit := range hits {
		if hit.Hash != "" && seen[hit.Hash] {
			continue
		}
		if maxPerDocument > 0 && perDoc[hit.DocumentID] >= maxPerDocument {
			continue
		}
		if hit.Hash != "" {
			seen[hit.Hash] = true
		}
		perDoc[hit.DocumentID]++
		ranked = append(ranked, models.RankedChunk{SearchHit: hit})
		if len(ranked) >= topK {
			break
		}
	}
	return ranked
}
