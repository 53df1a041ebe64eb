package plan

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/kr/pretty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvassplan/internal/geo"
	"canvassplan/internal/model"
	"canvassplan/internal/opt"
)

func sampleStops() []model.StopIn {
	var out []model.StopIn
	for i := 0; i < 10; i++ {
		out = append(out, model.StopIn{
			ID:       fmt.Sprintf("v%02d", i),
			Label:    fmt.Sprintf("%d Main St", 100+i),
			Location: &geo.LatLng{Lat: 35.20 + float64(i%3)*0.004, Lng: -101.83 + float64(i)*0.003},
		})
	}
	out = append(out, model.StopIn{ID: "nogeo1"}, model.StopIn{ID: "nogeo2"})
	return out
}

func fixedClock() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

func TestPlan_CoversEveryStopOnce(t *testing.T) {
	p := New(opt.DefaultTuning())
	p.Now = fixedClock
	pl, err := p.Plan(context.Background(), Request{TenantID: "t1", PlanDate: "2026-03-01", TotalDays: 3, Stops: sampleStops()})
	require.NoError(t, err)

	assert.Equal(t, "walking", pl.Mode)
	assert.Equal(t, fixedClock(), pl.CreatedAt)
	require.Len(t, pl.Days, 3)
	assert.Equal(t, 12, pl.StopCount())

	seen := map[string]int{}
	for _, d := range pl.Days {
		for i, s := range d.Stops {
			seen[s.ID]++
			assert.Equal(t, i+1, s.Seq)
		}
		for _, s := range d.Unrouted {
			seen[s.ID]++
			assert.Nil(t, s.Location)
		}
		if n := len(d.Stops); n > 0 {
			assert.Equal(t, d.TotalMeters, d.Stops[n-1].CumulativeMeters)
			assert.Zero(t, d.Stops[0].LegMeters)
		}
	}
	assert.Len(t, seen, 12)
	for id, n := range seen {
		assert.Equal(t, 1, n, id)
	}

	pops := Assignment(pl).Populations(3)
	assert.Equal(t, []int{4, 4, 4}, pops)
}

func TestPlan_DeterministicDays(t *testing.T) {
	p := New(opt.DefaultTuning())
	req := Request{TenantID: "t1", TotalDays: 2, Mode: opt.Driving, Stops: sampleStops()}
	a, err := p.Plan(context.Background(), req)
	require.NoError(t, err)
	b, err := p.Plan(context.Background(), req)
	require.NoError(t, err)
	if diff := pretty.Diff(a.Days, b.Days); len(diff) > 0 {
		t.Fatalf("plans differ:\n%s", pretty.Sprint(diff))
	}
	assert.NotEqual(t, a.ID, b.ID)
}

func TestPlan_ClampsDays(t *testing.T) {
	pl, err := New(opt.DefaultTuning()).Plan(context.Background(), Request{Stops: sampleStops()[:3]})
	require.NoError(t, err)
	require.Len(t, pl.Days, 1)
	assert.Len(t, pl.Days[0].Stops, 3)
}

func TestPlan_EmptyStops(t *testing.T) {
	pl, err := New(opt.DefaultTuning()).Plan(context.Background(), Request{TotalDays: 2})
	require.NoError(t, err)
	require.Len(t, pl.Days, 2)
	for _, d := range pl.Days {
		assert.Empty(t, d.Stops)
		assert.Zero(t, d.TotalMeters)
	}
}

func TestPlan_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(opt.DefaultTuning()).Plan(ctx, Request{TotalDays: 2, Stops: sampleStops()})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPoints_FollowsVisitingOrder(t *testing.T) {
	pl, err := New(opt.DefaultTuning()).Plan(context.Background(), Request{TotalDays: 1, Stops: sampleStops()})
	require.NoError(t, err)
	pts := Points(pl, 1)
	require.Len(t, pts, 10)
	for i, p := range pts {
		assert.Equal(t, pl.Days[0].Stops[i].ID, p.ID)
	}
	assert.Nil(t, Points(pl, 2))
}

func TestStats_CountsOnlyThisPlan(t *testing.T) {
	created := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	pl := model.Plan{
		CreatedAt: created,
		Days: []model.PlanDay{
			{Number: 1, Stops: []model.PlanStop{{ID: "a"}, {ID: "b"}}, TotalMeters: 300, Passes: 2},
			{Number: 2, Stops: []model.PlanStop{{ID: "c"}}, Unrouted: []model.PlanStop{{ID: "x"}}, KeptSeed: true},
			{Number: 3, Unrouted: []model.PlanStop{{ID: "y"}}},
		},
	}
	assert.Equal(t, opt.RunStats{
		Runs:           2,
		Points:         3,
		DistanceMeters: 300,
		Passes:         2,
		KeptSeed:       1,
		Elapsed:        time.Second,
		LastRunAt:      created,
	}, Stats(pl, time.Second))
}
