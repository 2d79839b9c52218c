package vectordb

import (
	"errors"
	"math"
	"sort"

	"github.com/0xcro3dile/pdfchat/internal/domain/entities"
)

// ErrDimensionMismatch means the stored index was embedded with a different model than the query.
var ErrDimensionMismatch = errors.New("index was built with a different embedding model: reprocess the documents")

// cosineSimilarity calculates cosine similarity between two vectors.
// Vectors of different length score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// rankTopK orders results by score, ties broken by chunk position, and keeps the best topK.
func rankTopK(results []entities.QueryResult, topK int) []entities.QueryResult {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.Index < results[j].Chunk.Index
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}
