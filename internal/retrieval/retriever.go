package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/citewise/citewise/internal/embedding"
	"github.com/citewise/citewise/internal/errs"
	"github.com/citewise/citewise/internal/models"
	"github.com/citewise/citewise/internal/vector"
)

// Retriever embeds a query and returns the ranked context chunks.
type Retriever struct {
	embedders      *embedding.Registry
	index          vector.Index
	topK           int
	maxPerDocument int
	logger         *zap.Logger
}

// NewRetriever creates a retriever with the configured defaults.
func NewRetriever(embedders *embedding.Registry, index vector.Index, topK, maxPerDocument int, logger *zap.Logger) *Retriever {
	return &Retriever{
		embedders:      embedders,
		index:          index,
		topK:           topK,
		maxPerDocument: maxPerDocument,
		logger:         logger,
	}
}

// Retrieve embeds the query with the requested provider (or the default
// when empty) and returns the diversity-ranked hits plus the resolved
// provider name. topK of zero falls back to the configured default.
func (r *Retriever) Retrieve(ctx context.Context, query, embeddingProvider string, topK int) ([]models.RankedChunk, string, error) {
	if topK <= 0 {
		topK = r.topK
	}
	providerName := r.embedders.ResolveName(embeddingProvider)
	embedder, err := r.embedders.Get(embeddingProvider)
	if err != nil {
		return nil, providerName, err
	}
	if dims := embedder.Dimensions(); dims > 0 && dims != r.index.Dimensions() {
		return nil, providerName, errs.Validationf(
			"embedding provider %s produces %d-dimensional vectors but the index expects %d",
			providerName, dims, r.index.Dimensions())
	}

	queryVector, err := embedder.Embed(ctx, query)
	if err != nil {
		return nil, providerName, errs.Capability("embedding", fmt.Errorf("embed query: %w", err))
	}

	// Over-fetch so the diversity filter still has enough candidates after
	// dropping duplicates and over-represented documents.
	fetchLimit := topK * 2
	hits, err := r.index.Search(ctx, queryVector, fetchLimit, "")
	if err != nil {
		return nil, providerName, fmt.Errorf("vector search: %w", err)
	}

	ranked := Rank(hits, topK, r.maxPerDocument)
	r.logger.Debug("retrieved context",
		zap.String("embedding_provider", providerName),
		zap.Int("hits", len(hits)),
		zap.Int("ranked", len(ranked)),
	)
	return ranked, providerName, nil
}
