// Package embedder defines the text->vector boundary the core depends
// on. Loading an actual embedding model (sentence-transformers, OpenAI,
// ...) is explicitly out of scope (spec §1); callers supply any
// implementation of Embedder.
package embedder

import "context"

// Embedder turns text into a fixed-dimension embedding vector.
type Embedder interface {
	// Embed returns the embedding for text, or an error if the
	// embedding could not be computed.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Model identifies the embedding model, stored alongside embeddings
	// so mismatched models can be detected later.
	Model() string

	// Version identifies the embedding model version.
	Version() string
}

// Func adapts a plain function to the Embedder interface for simple
// callers (tests, scripting) that don't need a Model/Version identity.
type Func struct {
	Fn           func(ctx context.Context, text string) ([]float32, error)
	ModelName    string
	ModelVersion string
}

func (f Func) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.Fn(ctx, text)
}

func (f Func) Model() string { return f.ModelName }

func (f Func) Version() string { return f.ModelVersion }
