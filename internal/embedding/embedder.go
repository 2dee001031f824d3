package embedding

import (
	"context"
	"math"
)

// QueryPrefix is the retrieval instruction prepended to queries before
// embedding. The backing models are trained with different prompts for
// queries and documents; dropping this prefix measurably degrades retrieval
// quality, so every Embedder applies it in EncodeQuery and never in
// EncodeDocuments.
const QueryPrefix = "Represent this sentence for searching relevant passages: "

// Embedder converts text into fixed-dimension unit-length vectors.
// Query and document encodings are asymmetric; see QueryPrefix.
type Embedder interface {
	// EncodeQuery embeds a search query, prefix included.
	EncodeQuery(ctx context.Context, text string) ([]float32, error)
	// EncodeDocuments embeds a batch of passages in a single call.
	EncodeDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension reports the vector length; 0 until the backing model is known.
	Dimension() int
}

// Normalize scales vec to unit length in place. Zero vectors are left as-is
// so a query with no recognizable tokens scores zero against everything
// instead of producing NaNs.
func Normalize(vec []float32) {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}
