// Package generation turns ranked context chunks into an LLM answer with
// numbered citations.
package generation

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/citewise/citewise/internal/models"
	"github.com/citewise/citewise/pkg/utils"
)

const citationPreviewLen = 200

var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// FormatContext renders ranked chunks as a numbered context block and
// returns the citation lookup keyed by marker number. Chunk k in the input
// becomes marker [k+1].
func FormatContext(ranked []models.RankedChunk) (string, map[int]models.Citation) {
	var b strings.Builder
	citationMap := make(map[int]models.Citation, len(ranked))
	for i, chunk := range ranked {
		num := i + 1
		fmt.Fprintf(&b, "[%d] %s\n\n", num, chunk.Text)
		citationMap[num] = models.Citation{
			Number:          num,
			DocumentName:    chunk.DocumentName,
			ChunkIndex:      chunk.ChunkIndex,
			Text:            utils.Truncate(chunk.Text, citationPreviewLen),
			SimilarityScore: chunk.Similarity,
		}
	}
	return b.String(), citationMap
}

// ExtractCitations finds the [N] markers in the answer and resolves them
// against the citation map. Each marker appears once, in ascending numeric
// order; markers with no matching context chunk are dropped.
func ExtractCitations(answer string, citationMap map[int]models.Citation) []models.Citation {
	matches := citationPattern.FindAllStringSubmatch(answer, -1)
	seen := make(map[int]bool)
	nums := make([]int, 0, len(matches))
	for _, match := range matches {
		num, err := strconv.Atoi(match[1])
		if err != nil || seen[num] {
			continue
		}
		seen[num] = true
		nums = append(nums, num)
	}
	sort.Ints(nums)

	citations := make([]models.Citation, 0, len(nums))
	for _, num := range nums {
		if citation, ok := citationMap[num]; ok {
			citations = append(citations, citation)
		}
	}
	return citations
}
