// Package merge implements the Speaker Merger (spec §4.3), the algorithmic
// center of the pipeline: cross-chunk speaker identity resolution by
// agglomerative clustering of per-chunk embeddings, followed by overlap
// reconciliation of the resulting global segment timeline.
package merge

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// speakerKey identifies one SpeakerProfile by its origin, preserved through
// clustering so the resulting labels can be mapped back.
type speakerKey struct {
	ChunkIndex   int
	LocalSpeaker string
}

// buildDistanceMatrix stacks embeddings into X and returns the pairwise
// cosine-distance matrix Dist = 1 - cosine_similarity(X), per spec §4.3
// steps 2-4.
func buildDistanceMatrix(embeddings [][]float64) *mat.Dense {
	n := len(embeddings)
	if n == 0 {
		return mat.NewDense(0, 0, nil)
	}
	// A speaker whose segments are all below the profile-inclusion floor
	// (diarize.computeProfile) yields a nil/empty embedding. Size the
	// matrix by the longest embedding present rather than embeddings[0]'s,
	// and leave short/empty rows zero-padded instead of panicking on an
	// out-of-range Set. An empty row's norm is 0, so the denom>0 guard
	// below sets its distance to every other speaker to the neutral 1-0=1.
	d := 0
	for _, e := range embeddings {
		if len(e) > d {
			d = len(e)
		}
	}
	if d == 0 {
		d = 1
	}

	x := mat.NewDense(n, d, nil)
	for i, e := range embeddings {
		for j, v := range e {
			x.Set(i, j, v)
		}
	}

	norms := make([]float64, n)
	for i := 0; i < n; i++ {
		row := x.RawRowView(i)
		var sumSq float64
		for _, v := range row {
			sumSq += v * v
		}
		norms[i] = math.Sqrt(sumSq)
	}

	var gram mat.Dense
	gram.Mul(x, x.T())

	dist := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				dist.Set(i, j, 0)
				continue
			}
			denom := norms[i] * norms[j]
			var cos float64
			if denom > 0 {
				cos = gram.At(i, j) / denom
			}
			// Clamp for float error before distance conversion.
			if cos > 1 {
				cos = 1
			} else if cos < -1 {
				cos = -1
			}
			dist.Set(i, j, 1-cos)
		}
	}
	return dist
}

// clusterAverageLinkage performs agglomerative clustering with average
// linkage over a precomputed distance matrix, stopping once the minimum
// inter-cluster distance exceeds distanceThreshold (spec §4.3 step 5).
// It returns, for each of the n original items, its cluster id — a small
// non-negative integer, NOT yet ordered by first appearance.
func clusterAverageLinkage(dist *mat.Dense, distanceThreshold float64) []int {
	n, _ := dist.Dims()
	if n == 0 {
		return nil
	}
	if n == 1 {
		return []int{0}
	}

	// clusters[i] = sorted member indices of cluster i; active tracks which
	// cluster ids are still live.
	clusters := make([][]int, n)
	for i := range clusters {
		clusters[i] = []int{i}
	}
	active := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		active[i] = true
	}

	// interDist[a][b] is the average-linkage distance between active
	// clusters a and b; recomputed lazily from the original distance matrix
	// and current membership, which keeps the implementation simple and is
	// tractable at the scale this pipeline targets (hundreds of items).
	avgDistance := func(a, b []int) float64 {
		var sum float64
		for _, i := range a {
			for _, j := range b {
				sum += dist.At(i, j)
			}
		}
		return sum / float64(len(a)*len(b))
	}

	nextID := n
	for len(active) > 1 {
		bestA, bestB := -1, -1
		bestDist := math.Inf(1)

		ids := make([]int, 0, len(active))
		for id := range active {
			ids = append(ids, id)
		}
		sort.Ints(ids)

		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				a, b := ids[i], ids[j]
				d := avgDistance(clusters[a], clusters[b])
				if d < bestDist || (d == bestDist && (bestA > a || (bestA == a && bestB > b))) {
					bestDist = d
					bestA, bestB = a, b
				}
			}
		}

		if bestDist > distanceThreshold {
			break
		}

		merged := append(append([]int{}, clusters[bestA]...), clusters[bestB]...)
		sort.Ints(merged)
		newID := nextID
		nextID++
		clusters = append(clusters, merged) // grows id range so clusters[newID] is valid
		delete(active, bestA)
		delete(active, bestB)
		active[newID] = true
	}

	assignment := make([]int, n)
	clusterIDs := make([]int, 0, len(active))
	for id := range active {
		clusterIDs = append(clusterIDs, id)
	}
	sort.Ints(clusterIDs)
	for ordinal, id := range clusterIDs {
		for _, member := range clusters[id] {
			assignment[member] = ordinal
		}
	}
	return assignment
}
