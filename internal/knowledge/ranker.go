package knowledge

import (
	"math"
	"sort"

	"github.com/baatasaari/agenthub-knowledge/internal/domain"
)

// Retrieval defaults.
const (
	DefaultSimilarityThreshold = 0.7
	DefaultTopK                = 5
)

// RankConfig controls relevance filtering and result ordering.
type RankConfig struct {
	SimilarityThreshold float64
	TopK                int
}

// DefaultRankConfig provides defaults for ranking.
func DefaultRankConfig() RankConfig {
	return RankConfig{
		SimilarityThreshold: DefaultSimilarityThreshold,
		TopK:                DefaultTopK,
	}
}

// ScoredChunk is a chunk paired with its similarity to a query.
type ScoredChunk struct {
	Chunk domain.Chunk
	Score float64
}

// CosineSimilarity returns the cosine of the angle between two vectors.
// Mismatched lengths or a zero-magnitude vector yield 0 rather than an
// error, so unembedded chunks simply never rank.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}

	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// Rank scores chunks against the query embedding, drops those below the
// similarity threshold, and returns at most TopK results ordered by
// document priority first and similarity second. A high-priority chunk
// always outranks a lower-priority one regardless of score. Ties break
// on chunk id so ordering is deterministic.
func Rank(chunks []domain.Chunk, queryEmbedding []float32, cfg RankConfig) []ScoredChunk {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}

	scored := make([]ScoredChunk, 0, len(chunks))
	for _, chunk := range chunks {
		score := CosineSimilarity(chunk.Embedding, queryEmbedding)
		if score < cfg.SimilarityThreshold {
			continue
		}
		scored = append(scored, ScoredChunk{Chunk: chunk, Score: score})
	}

	sort.Slice(scored, func(i, j int) bool {
		ri, rj := scored[i].Chunk.Priority.Rank(), scored[j].Chunk.Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Chunk.ID < scored[j].Chunk.ID
	})

	if len(scored) > cfg.TopK {
		scored = scored[:cfg.TopK]
	}
	return scored
}
