package household

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvassplan/internal/geo"
)

func score(v float64) *float64 { return &v }

func TestKey_Normalizes(t *testing.T) {
	assert.Equal(t, Key("12 Elm St", "Austin", "78701"), Key("  12 ELM st ", "austin ", " 78701"))
	assert.NotEqual(t, Key("12 Elm St", "Austin", "78701"), Key("12 Elm St", "Austin", "78702"))
}

func TestAggregate_GroupsInFirstSeenOrder(t *testing.T) {
	loc := &geo.LatLng{Lat: 30.27, Lng: -97.74}
	hs := Aggregate([]Contact{
		{ID: "v1", Address: "12 Elm St", City: "Austin", Zip: "78701", Score: score(40)},
		{ID: "v2", Address: "9 Oak Ave", City: "Austin", Zip: "78701"},
		{ID: "v3", Address: " 12 ELM ST", City: "austin", Zip: "78701", Location: loc, Score: score(80)},
	})
	require.Len(t, hs, 2)

	assert.Equal(t, "12 Elm St", hs[0].Address)
	assert.Equal(t, []string{"v1", "v3"}, hs[0].MemberIDs)
	require.NotNil(t, hs[0].Location)
	assert.Equal(t, *loc, *hs[0].Location)
	require.NotNil(t, hs[0].AverageScore)
	assert.InDelta(t, 60.0, *hs[0].AverageScore, 1e-9)

	assert.Equal(t, []string{"v2"}, hs[1].MemberIDs)
	assert.Nil(t, hs[1].AverageScore)
	assert.Nil(t, hs[1].Location)
}

func TestAggregate_Empty(t *testing.T) {
	assert.Empty(t, Aggregate(nil))
}

func TestPoints_SkipsUnlocated(t *testing.T) {
	hs := []Household{
		{Key: "a", Location: &geo.LatLng{Lat: 1, Lng: 2}},
		{Key: "b"},
	}
	pts := Points(hs)
	require.Len(t, pts, 1)
	assert.Equal(t, "a", pts[0].ID)
}
