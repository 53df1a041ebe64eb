// Package cluster groups geocoded points into geographic clusters.
package cluster

import "canvassplan/internal/geo"

// DefaultMaxIterations bounds Lloyd iterations when KMeans.MaxIterations is 0.
const DefaultMaxIterations = 50

// KMeans is a deterministic k-means over a local planar projection. Seeds are
// chosen farthest-first starting from the westmost point, so the same input
// always yields the same labels. Clusters that end up empty are dropped,
// which can leave fewer than k labels.
type KMeans struct {
	MaxIterations int
}

// NewKMeans returns a KMeans with default settings.
func NewKMeans() KMeans {
	return KMeans{MaxIterations: DefaultMaxIterations}
}

type vec [2]float64

func (a vec) dist2(b vec) float64 {
	dx, dy := a[0]-b[0], a[1]-b[1]
	return dx*dx + dy*dy
}

// Cluster labels each point with a cluster number in 0..k-1.
func (km KMeans) Cluster(points []geo.Point, k int) map[string]int {
	out := make(map[string]int, len(points))
	n := len(points)
	if n == 0 {
		return out
	}
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	coords := make([]geo.LatLng, n)
	for i, p := range points {
		coords[i] = p.LatLng
	}
	frame := geo.NewFrame(coords)
	xy := make([]vec, n)
	for i, c := range coords {
		dx, dy := frame.Vector(coords[0], c)
		xy[i] = vec{dx, dy}
	}

	centers := farthestFirst(xy, k)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	iters := km.MaxIterations
	if iters <= 0 {
		iters = DefaultMaxIterations
	}
	for it := 0; it < iters; it++ {
		changed := false
		for i, p := range xy {
			if best := nearest(p, centers); best != labels[i] {
				labels[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}
		sums := make([]vec, len(centers))
		counts := make([]int, len(centers))
		for i, p := range xy {
			sums[labels[i]][0] += p[0]
			sums[labels[i]][1] += p[1]
			counts[labels[i]]++
		}
		for c := range centers {
			if counts[c] > 0 {
				centers[c] = vec{sums[c][0] / float64(counts[c]), sums[c][1] / float64(counts[c])}
			}
		}
	}
	for i, p := range points {
		out[p.ID] = labels[i]
	}
	return out
}

// farthestFirst picks the westmost point, then repeatedly the point farthest
// from every seed chosen so far. Ties go to the lowest index.
func farthestFirst(xy []vec, k int) []vec {
	first := 0
	for i, p := range xy {
		if p[0] < xy[first][0] || (p[0] == xy[first][0] && p[1] < xy[first][1]) {
			first = i
		}
	}
	seeds := []vec{xy[first]}
	chosen := map[int]bool{first: true}
	for len(seeds) < k {
		pick, pickDist := -1, -1.0
		for i, p := range xy {
			if chosen[i] {
				continue
			}
			d := p.dist2(seeds[nearest(p, seeds)])
			if d > pickDist {
				pick, pickDist = i, d
			}
		}
		if pick < 0 {
			break
		}
		chosen[pick] = true
		seeds = append(seeds, xy[pick])
	}
	return seeds
}

func nearest(p vec, centers []vec) int {
	best, bestDist := 0, p.dist2(centers[0])
	for c := 1; c < len(centers); c++ {
		if d := p.dist2(centers[c]); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
