// Package cluster merges speaker embeddings from every file into global
// speaker identities using average-linkage agglomerative clustering on
// cosine distance.
package cluster

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"crossvoice/internal/embed"
)

// ErrInsufficientData indicates fewer than two embeddings were supplied.
var ErrInsufficientData = errors.New("clustering requires at least 2 embeddings")

// GrowthFactor scales the observed local speaker count into a cluster
// count guess. The value is a tunable heuristic, not domain truth.
const GrowthFactor = 1.2

// Result holds one global label per input record, index-aligned.
type Result struct {
	Labels []string
	K      int
}

// ResolveClusterCount derives a cluster count from the population size and
// the number of distinct local speakers, clamped so the result stays
// meaningful: at least 2, never more than half the population.
func ResolveClusterCount(total, uniqueSpeakers int) int {
	k := int(math.Round(GrowthFactor * float64(uniqueSpeakers)))
	high := max(min(2*uniqueSpeakers, total/2), 2)
	// The population cap wins when it conflicts with the speaker floor.
	low := min(max(2, uniqueSpeakers/2), high)
	k = max(k, low)
	k = min(k, high)
	return min(k, total)
}

// Cluster groups records into k global speakers. Pass k <= 0 to derive the
// count from the population. Labels are Speaker_1..Speaker_K, numbered by
// first appearance in input order so output is reproducible.
func Cluster(records []embed.Record, k int) (Result, error) {
	if len(records) < 2 {
		return Result{}, fmt.Errorf("%w: got %d", ErrInsufficientData, len(records))
	}

	if k <= 0 {
		k = ResolveClusterCount(len(records), countLocalSpeakers(records))
	}
	if k > len(records) {
		k = len(records)
	}

	vectors := make([][]float64, len(records))
	for i, r := range records {
		vectors[i] = toFloat64(r.Vector)
	}

	assignments := agglomerate(cosineDistanceMatrix(vectors), k)

	labels := make([]string, len(records))
	next := 1
	byCluster := make(map[int]string)
	for i, c := range assignments {
		label, ok := byCluster[c]
		if !ok {
			label = fmt.Sprintf("Speaker_%d", next)
			next++
			byCluster[c] = label
		}
		labels[i] = label
	}
	return Result{Labels: labels, K: k}, nil
}

// countLocalSpeakers counts distinct local speaker labels. Diarization
// reuses the same labels in every file, so a label seen in ten files still
// counts once; the estimate must not grow with the corpus.
func countLocalSpeakers(records []embed.Record) int {
	seen := make(map[string]struct{})
	for _, r := range records {
		seen[r.Speaker] = struct{}{}
	}
	return len(seen)
}

// cosineDistanceMatrix precomputes pairwise cosine distances. A zero-norm
// vector is maximally distant from everything.
func cosineDistanceMatrix(vectors [][]float64) [][]float64 {
	n := len(vectors)
	norms := make([]float64, n)
	for i, v := range vectors {
		norms[i] = floats.Norm(v, 2)
	}

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := 1.0
			if norms[i] > 0 && norms[j] > 0 {
				d = 1 - floats.Dot(vectors[i], vectors[j])/(norms[i]*norms[j])
			}
			dist[i][j] = d
			dist[j][i] = d
		}
	}
	return dist
}

// agglomerate runs average-linkage agglomerative clustering down to k
// clusters on a precomputed distance matrix. Cluster distances follow the
// Lance-Williams update for average linkage. Ties merge the lowest index
// pair so results are deterministic.
func agglomerate(dist [][]float64, k int) []int {
	n := len(dist)

	// Work on a copy: dist[i][j] becomes the inter-cluster distance.
	d := make([][]float64, n)
	for i := range d {
		d[i] = append([]float64(nil), dist[i]...)
	}

	active := make([]bool, n)
	size := make([]int, n)
	assignment := make([]int, n)
	for i := range active {
		active[i] = true
		size[i] = 1
		assignment[i] = i
	}

	for remaining := n; remaining > k; remaining-- {
		bi, bj := -1, -1
		best := math.Inf(1)
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if !active[j] {
					continue
				}
				if d[i][j] < best {
					best = d[i][j]
					bi, bj = i, j
				}
			}
		}

		// Merge bj into bi.
		ni, nj := float64(size[bi]), float64(size[bj])
		for m := 0; m < n; m++ {
			if !active[m] || m == bi || m == bj {
				continue
			}
			avg := (ni*d[bi][m] + nj*d[bj][m]) / (ni + nj)
			d[bi][m] = avg
			d[m][bi] = avg
		}
		size[bi] += size[bj]
		active[bj] = false
		for m := range assignment {
			if assignment[m] == bj {
				assignment[m] = bi
			}
		}
	}
	return assignment
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
