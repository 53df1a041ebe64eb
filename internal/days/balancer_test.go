package days

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvassplan/internal/geo"
)

type clustererFunc func(points []geo.Point, k int) map[string]int

func (f clustererFunc) Cluster(points []geo.Point, k int) map[string]int { return f(points, k) }

func at(lat, lng float64) *geo.LatLng { return &geo.LatLng{Lat: lat, Lng: lng} }

func grid(n int) []Stop {
	stops := make([]Stop, n)
	for i := range stops {
		stops[i] = Stop{ID: fmt.Sprintf("s%02d", i), Location: at(35+float64(i%4)*0.01, -101+float64(i/4)*0.01)}
	}
	return stops
}

func requireComplete(t *testing.T, a Assignment, stops []Stop, totalDays int) {
	t.Helper()
	require.Len(t, a, len(stops))
	for _, s := range stops {
		d, ok := a[s.ID]
		require.True(t, ok, "stop %s missing", s.ID)
		require.GreaterOrEqual(t, d, 1)
		require.LessOrEqual(t, d, totalDays)
	}
}

func TestCapacities(t *testing.T) {
	assert.Equal(t, []int{4, 3, 3}, Capacities(10, 3))
	assert.Equal(t, []int{1, 1, 0, 0, 0}, Capacities(2, 5))
	assert.Equal(t, []int{7}, Capacities(7, 0))
}

func TestAssignDays_Empty(t *testing.T) {
	a := AssignDays(nil, 5)
	require.NotNil(t, a)
	assert.Empty(t, a)
}

func TestAssignDays_TenOverThree(t *testing.T) {
	stops := grid(10)
	a := AssignDays(stops, 3)
	requireComplete(t, a, stops, 3)

	assert.Equal(t, []int{4, 3, 3}, a.Populations(3))
}

func TestAssignDays_ClampsDays(t *testing.T) {
	stops := grid(5)
	a := AssignDays(stops, 0)
	requireComplete(t, a, stops, 1)
	assert.Equal(t, []int{5}, a.Populations(1))
}

func TestAssignDays_KeepsTownsTogether(t *testing.T) {
	var stops []Stop
	for i := 0; i < 5; i++ {
		stops = append(stops, Stop{ID: fmt.Sprintf("e%d", i), Location: at(35+float64(i)*0.001, -101.0)})
		stops = append(stops, Stop{ID: fmt.Sprintf("w%d", i), Location: at(35+float64(i)*0.001, -101.6)})
	}
	a := AssignDays(stops, 2)
	requireComplete(t, a, stops, 2)
	for i := 0; i < 5; i++ {
		// centroids are ordered west to east
		assert.Equal(t, 1, a[fmt.Sprintf("w%d", i)])
		assert.Equal(t, 2, a[fmt.Sprintf("e%d", i)])
	}
}

func TestAssign_SynthesizesMissingCentroids(t *testing.T) {
	single := clustererFunc(func(points []geo.Point, _ int) map[string]int {
		out := map[string]int{}
		for _, p := range points {
			out[p.ID] = 7
		}
		return out
	})
	stops := grid(9)
	a := Balancer{Clusterer: single}.Assign(stops, 3)
	requireComplete(t, a, stops, 3)
	assert.Equal(t, []int{3, 3, 3}, a.Populations(3))
}

func TestAssign_ToleratesSurplusClusters(t *testing.T) {
	each := clustererFunc(func(points []geo.Point, _ int) map[string]int {
		out := map[string]int{}
		for i, p := range points {
			out[p.ID] = i
		}
		return out
	})
	stops := grid(7)
	a := Balancer{Clusterer: each}.Assign(stops, 2)
	requireComplete(t, a, stops, 2)
	assert.Equal(t, []int{4, 3}, a.Populations(2))
}

// anchors labels only the two town centers, so the day centroids sit exactly
// on them and every other stop is left to the greedy placement.
var anchors = clustererFunc(func(_ []geo.Point, _ int) map[string]int {
	return map[string]int{"west": 0, "east": 1}
})

func TestAssign_ClearCutStopsClaimDaysFirst(t *testing.T) {
	// Both edge stops lean west and come first. Taken in input order they
	// would fill day 1 and push "west" onto the far day.
	stops := []Stop{
		{ID: "edge1", Location: at(35, -100.55)},
		{ID: "edge2", Location: at(35, -100.54)},
		{ID: "west", Location: at(35, -101)},
		{ID: "east", Location: at(35, -100)},
	}
	a := Balancer{Clusterer: anchors}.Assign(stops, 2)
	requireComplete(t, a, stops, 2)
	assert.Equal(t, Assignment{"west": 1, "east": 2, "edge1": 1, "edge2": 2}, a)
}

func TestPrioritize_LargestSpreadFirst(t *testing.T) {
	centroids := []geo.LatLng{{Lat: 35, Lng: -101}, {Lat: 35, Lng: -100}}
	located := []geo.Point{
		{ID: "mid", LatLng: geo.LatLng{Lat: 35, Lng: -100.5}},
		{ID: "near", LatLng: geo.LatLng{Lat: 35, Lng: -100.7}},
		{ID: "on", LatLng: geo.LatLng{Lat: 35, Lng: -101}},
		{ID: "east", LatLng: geo.LatLng{Lat: 35, Lng: -100.1}},
	}
	var ids []string
	for _, c := range prioritize(located, centroids) {
		ids = append(ids, c.id)
	}
	assert.Equal(t, []string{"on", "east", "near", "mid"}, ids)
}

func TestAssign_NonGeocodedFillMostRoom(t *testing.T) {
	stops := []Stop{
		{ID: "a", Location: at(35, -101)},
		{ID: "b", Location: at(35.001, -101)},
		{ID: "c", Location: at(35.002, -101)},
		{ID: "x"},
		{ID: "y"},
		{ID: "z"},
	}
	a := AssignDays(stops, 3)
	requireComplete(t, a, stops, 3)
	assert.Equal(t, []int{2, 2, 2}, a.Populations(3))
}

func TestAssign_NoGeocodedStops(t *testing.T) {
	stops := []Stop{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}, {ID: "e"}}
	a := AssignDays(stops, 2)
	requireComplete(t, a, stops, 2)
	// most room first, lowest day on ties
	assert.Equal(t, Assignment{"a": 1, "b": 1, "c": 2, "d": 1, "e": 2}, a)
}

func TestAssignment_Group(t *testing.T) {
	stops := []Stop{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	a := Assignment{"a": 2, "b": 1, "c": 2}
	assert.Equal(t, [][]string{{"b"}, {"a", "c"}}, a.Group(stops, 2))
}

func TestAssignDays_Deterministic(t *testing.T) {
	stops := grid(23)
	assert.Equal(t, AssignDays(stops, 4), AssignDays(stops, 4))
}
