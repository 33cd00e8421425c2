// Package embedding provides text embedding capabilities: a local ONNX
// model, the OpenAI API, and a deterministic mock, selected through a
// registry built at startup.
package embedding

import "context"

// Embedder produces fixed-dimension vector embeddings for text. All
// vectors from one Embedder share the same dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
