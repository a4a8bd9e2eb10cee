// Package embedding provides text embedding via ONNX, caching, and vector similarity.
package embedding

import "context"

// Embedder produces vector embeddings for text. It is the model runtime behind a Provider.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Loader creates the model runtime. It is called at most once per successful load.
type Loader func() (Embedder, error)

// ONNXLoader returns a Loader for the ONNX model at modelPath.
func ONNXLoader(modelPath string, dimensions, maxTokens int) Loader {
	return func() (Embedder, error) {
		e, err := NewONNXEmbedder(modelPath, dimensions, maxTokens)
		if err != nil {
			return nil, err
		}
		return e, nil
	}
}

// MockLoader returns a Loader for a MockEmbedder.
func MockLoader(dimensions int) Loader {
	return func() (Embedder, error) {
		return NewMockEmbedder(dimensions), nil
	}
}
