package generation

import (
	"context"

	"go.uber.org/zap"

	"github.com/citewise/citewise/internal/errs"
	"github.com/citewise/citewise/internal/llm"
	"github.com/citewise/citewise/internal/models"
	"github.com/citewise/citewise/pkg/utils"
)

// NotFoundAnswer is returned verbatim when retrieval produced no context.
const NotFoundAnswer = "Not found in sources"

// Result is a generated answer with its resolved citations.
type Result struct {
	Answer      string
	Citations   []models.Citation
	ContextUsed int
}

// Generator produces cited answers from ranked context chunks.
type Generator struct {
	logger *zap.Logger
}

// NewGenerator creates a generator.
func NewGenerator(logger *zap.Logger) *Generator {
	return &Generator{logger: logger}
}

// Generate formats the ranked chunks into a context block, asks the
// provider for an answer and resolves its citation markers. When no chunks
// were retrieved, the provider is not called and the not-found answer is
// returned with no citations.
func (g *Generator) Generate(ctx context.Context, provider llm.Provider, query string, ranked []models.RankedChunk) (*Result, error) {
	if len(ranked) == 0 {
		return &Result{
			Answer:      NotFoundAnswer,
			Citations:   []models.Citation{},
			ContextUsed: 0,
		}, nil
	}

	contextText, citationMap := FormatContext(ranked)

	g.logger.Info("generating answer", zap.String("query", utils.Truncate(query, 100)))
	answer, err := provider.Generate(ctx, query, contextText)
	if err != nil {
		return nil, errs.Capability("llm", err)
	}

	citations := ExtractCitations(answer, citationMap)
	g.logger.Info("generated answer", zap.Int("citations", len(citations)))

	return &Result{
		Answer:      answer,
		Citations:   citations,
		ContextUsed: len(ranked),
	}, nil
}
