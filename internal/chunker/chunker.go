// Package chunker splits document text into overlapping, content-addressed
// segments.
package chunker

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/citewise/citewise/internal/models"
)

// separators are tried in order: paragraph break, line break, sentence end,
// word break, and finally individual characters.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

const (
	// DefaultSize is the maximum chunk length in characters.
	DefaultSize = 1000
	// DefaultOverlap is the number of characters carried over between
	// consecutive chunks.
	DefaultOverlap = 200
)

// Chunker splits text recursively by descending-priority separators into
// segments no longer than Size, overlapping consecutive segments by
// Overlap characters.
type Chunker struct {
	size    int
	overlap int
}

// New creates a chunker. Non-positive size or an overlap that is not
// smaller than size fall back to the defaults.
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultOverlap
		if overlap >= size {
			overlap = size / 5
		}
	}
	return &Chunker{size: size, overlap: overlap}
}

// Chunk splits text into ordered chunks for documentName. Indices are
// contiguous from 0 in emission order. Empty or whitespace-only input
// returns nil, which is a valid outcome.
func (c *Chunker) Chunk(text, documentName string) []models.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	pieces := c.split(text, separators)
	chunks := make([]models.Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = models.Chunk{
			Index:         i,
			Text:          p,
			DocumentName:  documentName,
			CharCount:     len(p),
			Hash:          HashText(p),
			TokenEstimate: EstimateTokens(p),
		}
	}
	return chunks
}

// split recursively divides text using the first separator present,
// descending into finer separators for fragments that are still too long,
// and merging short fragments back up to the size limit.
func (c *Chunker) split(text string, seps []string) []string {
	sep := seps[len(seps)-1]
	var rest []string
	for i, s := range seps {
		if s == "" {
			sep = ""
			break
		}
		if strings.Contains(text, s) {
			sep = s
			rest = seps[i+1:]
			break
		}
	}

	var out []string
	var pending []string
	for _, frag := range splitKeep(text, sep) {
		if len(frag) <= c.size {
			pending = append(pending, frag)
			continue
		}
		if len(pending) > 0 {
			out = append(out, c.merge(pending)...)
			pending = nil
		}
		if len(rest) == 0 {
			out = append(out, frag)
		} else {
			out = append(out, c.split(frag, rest)...)
		}
	}
	if len(pending) > 0 {
		out = append(out, c.merge(pending)...)
	}
	return out
}

// splitKeep splits text by sep, keeping the separator attached to the
// preceding fragment so no characters are lost. An empty separator splits
// into individual runes.
func splitKeep(text, sep string) []string {
	if sep == "" {
		runes := []rune(text)
		out := make([]string, len(runes))
		for i, r := range runes {
			out[i] = string(r)
		}
		return out
	}
	parts := strings.SplitAfter(text, sep)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// merge combines adjacent fragments into chunks of at most size
// characters. When a chunk is emitted, the trailing fragments up to
// overlap characters are retained as the start of the next chunk.
func (c *Chunker) merge(frags []string) []string {
	var chunks []string
	var window []string
	total := 0
	for _, f := range frags {
		if total+len(f) > c.size && len(window) > 0 {
			chunks = append(chunks, strings.Join(window, ""))
			for total > c.overlap || (total+len(f) > c.size && total > 0) {
				total -= len(window[0])
				window = window[1:]
			}
		}
		window = append(window, f)
		total += len(f)
	}
	if len(window) > 0 {
		chunks = append(chunks, strings.Join(window, ""))
	}
	return chunks
}

// HashText returns the md5 hex digest of text, used for cross-document
// dedup of identical chunk content.
func HashText(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// EstimateTokens approximates the token count as len/4. Informational
// only; chunking decisions never depend on it.
func EstimateTokens(text string) int {
	return len(text) / 4
}
