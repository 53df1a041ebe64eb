package cluster

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvassplan/internal/geo"
)

func twoTowns() []geo.Point {
	var pts []geo.Point
	for i := 0; i < 5; i++ {
		pts = append(pts, geo.Point{ID: fmt.Sprintf("w%d", i), LatLng: geo.LatLng{Lat: 35.0 + float64(i)*0.001, Lng: -101.5}})
		pts = append(pts, geo.Point{ID: fmt.Sprintf("e%d", i), LatLng: geo.LatLng{Lat: 35.0 + float64(i)*0.001, Lng: -101.0}})
	}
	return pts
}

func TestKMeans_SeparatesTowns(t *testing.T) {
	labels := NewKMeans().Cluster(twoTowns(), 2)
	require.Len(t, labels, 10)
	for i := 1; i < 5; i++ {
		assert.Equal(t, labels["w0"], labels[fmt.Sprintf("w%d", i)])
		assert.Equal(t, labels["e0"], labels[fmt.Sprintf("e%d", i)])
	}
	assert.NotEqual(t, labels["w0"], labels["e0"])
}

func TestKMeans_Deterministic(t *testing.T) {
	pts := twoTowns()
	assert.Equal(t, NewKMeans().Cluster(pts, 3), NewKMeans().Cluster(pts, 3))
}

func TestKMeans_ClampsK(t *testing.T) {
	pts := twoTowns()[:2]
	labels := KMeans{}.Cluster(pts, 10)
	require.Len(t, labels, 2)
	for _, l := range labels {
		assert.GreaterOrEqual(t, l, 0)
		assert.Less(t, l, 2)
	}
	assert.Empty(t, NewKMeans().Cluster(nil, 3))
}

func TestKMeans_DuplicatePointsYieldFewerLabels(t *testing.T) {
	same := geo.LatLng{Lat: 35, Lng: -101}
	pts := []geo.Point{{ID: "a", LatLng: same}, {ID: "b", LatLng: same}, {ID: "c", LatLng: same}}
	labels := NewKMeans().Cluster(pts, 3)
	distinct := map[int]bool{}
	for _, l := range labels {
		distinct[l] = true
	}
	assert.Len(t, distinct, 1)
}
