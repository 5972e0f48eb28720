package retrieval

import (
	"context"
	"sync/atomic"
)

// vecEmbedder is a deterministic test embedder that maps exact texts to
// fixed vectors. Unknown texts fall back to the zero vector of the same
// dimensionality so dimension invariants hold across a test.
type vecEmbedder struct {
	// vectors maps input text to its embedding.
	vectors map[string][]float32
	// dim is the fallback vector length for unknown texts.
	dim int
	// err, if non-nil, is returned by every Embed call.
	err error
	// calls counts Embed invocations.
	calls atomic.Int64
}

func (e *vecEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return make([]float32, e.dim), nil
}

// charEmbedder embeds text as a letter-frequency vector, so texts sharing
// words score high against each other without any network dependency.
type charEmbedder struct{}

func (charEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, 26)
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z':
			v[r-'a']++
		case r >= 'A' && r <= 'Z':
			v[r-'A']++
		}
	}
	return v, nil
}
