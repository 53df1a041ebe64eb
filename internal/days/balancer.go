// Package days splits a campaign's stops across days so that every day gets
// a near-equal share and each day's stops sit close together.
package days

import (
	"math"
	"sort"

	"canvassplan/internal/cluster"
	"canvassplan/internal/geo"
)

// Stop is a point marked for canvassing. Location is nil when the address
// could not be geocoded.
type Stop struct {
	ID       string      `json:"id"`
	Location *geo.LatLng `json:"location,omitempty"`
}

// Clusterer partitions points into at most k labeled groups. Labels are
// opaque; returning fewer than k distinct labels is allowed.
type Clusterer interface {
	Cluster(points []geo.Point, k int) map[string]int
}

// Assignment maps a stop id to its day number, 1-based.
type Assignment map[string]int

// Populations returns the number of stops per day; index 0 is day 1.
func (a Assignment) Populations(totalDays int) []int {
	if totalDays < 1 {
		totalDays = 1
	}
	out := make([]int, totalDays)
	for _, d := range a {
		if d >= 1 && d <= totalDays {
			out[d-1]++
		}
	}
	return out
}

// Group returns the ids per day in the order they appear in stops.
func (a Assignment) Group(stops []Stop, totalDays int) [][]string {
	if totalDays < 1 {
		totalDays = 1
	}
	out := make([][]string, totalDays)
	for _, s := range stops {
		if d, ok := a[s.ID]; ok && d >= 1 && d <= totalDays {
			out[d-1] = append(out[d-1], s.ID)
		}
	}
	return out
}

// Capacities returns the balanced day sizes for n stops: floor(n/days) each,
// with the first n mod days days taking one extra.
func Capacities(n, totalDays int) []int {
	if totalDays < 1 {
		totalDays = 1
	}
	caps := make([]int, totalDays)
	base, extra := n/totalDays, n%totalDays
	for i := range caps {
		caps[i] = base
		if i < extra {
			caps[i]++
		}
	}
	return caps
}

// Balancer assigns stops to days using Clusterer for geographic seeding. A
// nil Clusterer means k-means.
type Balancer struct {
	Clusterer Clusterer
}

// AssignDays is Balancer.Assign with the default k-means clusterer.
func AssignDays(stops []Stop, totalDays int) Assignment {
	return Balancer{}.Assign(stops, totalDays)
}

// Assign places every stop on exactly one day in 1..totalDays. totalDays is
// clamped to at least 1. Geocoded stops are placed first, most clear-cut
// first, on the nearest day centroid with room left; stops without a
// location then fill whichever day has the most room.
func (b Balancer) Assign(stops []Stop, totalDays int) Assignment {
	if totalDays < 1 {
		totalDays = 1
	}
	out := Assignment{}
	if len(stops) == 0 {
		return out
	}
	remaining := Capacities(len(stops), totalDays)

	var located []geo.Point
	for _, s := range stops {
		if s.Location != nil {
			located = append(located, geo.Point{ID: s.ID, LatLng: *s.Location})
		}
	}

	if len(located) > 0 {
		centroids := b.centroids(located, totalDays)
		for _, c := range prioritize(located, centroids) {
			day := 1
			for _, idx := range c.byDistance {
				if remaining[idx] > 0 {
					day = idx + 1
					break
				}
			}
			remaining[day-1]--
			out[c.id] = day
		}
	}

	for _, s := range stops {
		if s.Location != nil {
			continue
		}
		best := 0
		for i := 1; i < len(remaining); i++ {
			if remaining[i] > remaining[best] {
				best = i
			}
		}
		remaining[best]--
		out[s.ID] = best + 1
	}
	return out
}

// centroids clusters located points and returns exactly totalDays centroids
// sorted west to east (longitude, then latitude). Missing clusters are
// synthesized by cycling through the located points; surplus clusters are
// dropped.
func (b Balancer) centroids(located []geo.Point, totalDays int) []geo.LatLng {
	var c Clusterer = cluster.NewKMeans()
	if b.Clusterer != nil {
		c = b.Clusterer
	}
	labels := c.Cluster(located, totalDays)

	members := map[int][]geo.LatLng{}
	var order []int
	for _, p := range located {
		label, ok := labels[p.ID]
		if !ok {
			continue
		}
		if _, seen := members[label]; !seen {
			order = append(order, label)
		}
		members[label] = append(members[label], p.LatLng)
	}
	centroids := make([]geo.LatLng, 0, totalDays)
	for _, label := range order {
		centroids = append(centroids, geo.Centroid(members[label]))
	}
	sortWestToEast(centroids)
	if len(centroids) > totalDays {
		centroids = centroids[:totalDays]
	}
	for i := 0; len(centroids) < totalDays; i++ {
		centroids = append(centroids, located[i%len(located)].LatLng)
	}
	return centroids
}

func sortWestToEast(cs []geo.LatLng) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Lng != cs[j].Lng {
			return cs[i].Lng < cs[j].Lng
		}
		return cs[i].Lat < cs[j].Lat
	})
}

type candidate struct {
	id         string
	spread     float64
	byDistance []int // centroid indices, nearest first
}

// prioritize ranks located points by spread, the gap between the distances to
// their two nearest centroids, largest first. Ties keep input order.
func prioritize(located []geo.Point, centroids []geo.LatLng) []candidate {
	out := make([]candidate, len(located))
	for i, p := range located {
		dist := make([]float64, len(centroids))
		idx := make([]int, len(centroids))
		for j, c := range centroids {
			dist[j] = geo.DistanceKm(p.LatLng, c)
			idx[j] = j
		}
		sort.SliceStable(idx, func(a, b int) bool { return dist[idx[a]] < dist[idx[b]] })
		spread := 0.0
		if len(idx) > 1 {
			spread = dist[idx[1]] - dist[idx[0]]
		}
		if math.IsNaN(spread) {
			spread = 0
		}
		out[i] = candidate{id: p.ID, spread: spread, byDistance: idx}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].spread > out[b].spread })
	return out
}
