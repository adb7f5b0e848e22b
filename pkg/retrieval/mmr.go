package retrieval

import "math"

// DefaultMMRLambda is tuned high, favoring relevance over diversity, so
// that authoritative near-duplicate precedents are not unfairly excluded.
const DefaultMMRLambda = 0.85

// SelectDiverse reduces an over-fetched candidate set to a diverse top-k
// with Maximal Marginal Relevance. It greedily takes the most relevant
// remaining candidate, where marginal utility is
//
//	lambda*relevance - (1-lambda)*maxSimilarity(candidate, selected)
//
// Relevance is cosine similarity between the candidate's dense embedding
// and the query embedding; candidates without a stored embedding fall back
// to their fused retrieval score. The selection is deterministic for a
// fixed input ordering: ties keep input order.
func SelectDiverse(candidates []Candidate, queryDense []float32, lambda float64, k int) []Candidate {
	if len(candidates) == 0 || k <= 0 {
		return nil
	}
	if len(candidates) <= k {
		out := make([]Candidate, len(candidates))
		copy(out, candidates)
		return out
	}

	relevance := make([]float64, len(candidates))
	for i, cand := range candidates {
		if len(cand.Doc.Dense) > 0 && len(queryDense) > 0 {
			relevance[i] = CosineSimilarity(cand.Doc.Dense, queryDense)
		} else {
			relevance[i] = cand.FusedScore
		}
	}

	selected := make([]Candidate, 0, k)
	picked := make([]bool, len(candidates))

	// Seed with the most relevant candidate.
	best := -1
	for i := range candidates {
		if best == -1 || relevance[i] > relevance[best] {
			best = i
		}
	}
	picked[best] = true
	selected = append(selected, candidates[best])

	for len(selected) < k {
		bestIdx := -1
		bestScore := math.Inf(-1)

		for i, cand := range candidates {
			if picked[i] {
				continue
			}

			maxSim := 0.0
			for _, sel := range selected {
				if sim := CosineSimilarity(cand.Doc.Dense, sel.Doc.Dense); sim > maxSim {
					maxSim = sim
				}
			}

			score := lambda*relevance[i] - (1-lambda)*maxSim
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}

		if bestIdx == -1 {
			break
		}
		picked[bestIdx] = true
		selected = append(selected, candidates[bestIdx])
	}

	return selected
}

// CosineSimilarity returns the cosine of the angle between two vectors, or
// zero when either vector is empty, mismatched, or has zero magnitude.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
