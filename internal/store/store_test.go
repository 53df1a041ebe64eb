package store

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
)

func samplePlan(tenant string, n int) model.Plan {
	return model.Plan{
		ID:        fmt.Sprintf("plan_%03d", n),
		TenantID:  tenant,
		PlanDate:  "2026-10-15",
		Mode:      "walking",
		TotalDays: 1,
		CreatedAt: time.Date(2026, 10, 15, 8, 0, n, 0, time.UTC),
		Days: []model.PlanDay{{
			Number: 1,
			Stops: []model.PlanStop{
				{ID: "a", Location: &geo.LatLng{Lat: 35.2, Lng: -101.8}, Seq: 1},
				{ID: "b", Location: &geo.LatLng{Lat: 35.21, Lng: -101.8}, Seq: 2, LegMeters: 1112, CumulativeMeters: 1112},
			},
			Unrouted:    []model.PlanStop{{ID: "c", Label: "PO Box 12"}},
			TotalMeters: 1112,
			Cost:        1112,
			Passes:      1,
		}},
	}
}

func openSQLite(t *testing.T) *SQL {
	t.Helper()
	s, err := Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func eachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemory()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, openSQLite(t)) })
}

func TestStore_PlanRoundTrip(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		want := samplePlan("t1", 1)
		require.NoError(t, s.SavePlan(ctx, want))

		got, err := s.GetPlan(ctx, "t1", want.ID)
		require.NoError(t, err)
		if diff := pretty.Diff(want, got); len(diff) > 0 {
			t.Fatalf("plan changed in storage:\n%s", pretty.Sprint(diff))
		}

		_, err = s.GetPlan(ctx, "t2", want.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetPlan(ctx, "t1", "plan_missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_ListPlansPages(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for i := 1; i <= 5; i++ {
			require.NoError(t, s.SavePlan(ctx, samplePlan("t1", i)))
		}
		require.NoError(t, s.SavePlan(ctx, samplePlan("other", 9)))

		page, next, err := s.ListPlans(ctx, "t1", "", 2)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "plan_001", page[0].ID)
		assert.Equal(t, 3, page[0].Stops)
		assert.Equal(t, 1112, page[0].TotalMeters)
		assert.Equal(t, "plan_002", next)

		var ids []string
		cursor := ""
		for {
			page, next, err := s.ListPlans(ctx, "t1", cursor, 2)
			require.NoError(t, err)
			for _, p := range page {
				ids = append(ids, p.ID)
			}
			if next == "" {
				break
			}
			cursor = next
		}
		assert.Equal(t, []string{"plan_001", "plan_002", "plan_003", "plan_004", "plan_005"}, ids)
	})
}

func TestStore_DeletePlan(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		p := samplePlan("t1", 1)
		require.NoError(t, s.SavePlan(ctx, p))
		assert.ErrorIs(t, s.DeletePlan(ctx, "t2", p.ID), ErrNotFound)
		require.NoError(t, s.DeletePlan(ctx, "t1", p.ID))
		assert.ErrorIs(t, s.DeletePlan(ctx, "t1", p.ID), ErrNotFound)
		page, _, err := s.ListPlans(ctx, "t1", "", 10)
		require.NoError(t, err)
		assert.Empty(t, page)
	})
}

func TestStore_ListPlansRejectsStaleCursor(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for i := 1; i <= 3; i++ {
			require.NoError(t, s.SavePlan(ctx, samplePlan("t1", i)))
		}
		_, next, err := s.ListPlans(ctx, "t1", "", 1)
		require.NoError(t, err)
		require.Equal(t, "plan_001", next)
		require.NoError(t, s.DeletePlan(ctx, "t1", next))

		page, cursor, err := s.ListPlans(ctx, "t1", next, 1)
		assert.ErrorIs(t, err, ErrInvalidCursor)
		assert.Empty(t, page)
		assert.Empty(t, cursor)

		_, _, err = s.ListPlans(ctx, "t1", "plan_unknown", 10)
		assert.ErrorIs(t, err, ErrInvalidCursor)
		// another tenant's plan id is not a cursor either
		_, _, err = s.ListPlans(ctx, "t2", "plan_002", 10)
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})
}

func TestStore_PlanMetricsUpsert(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		require.NoError(t, s.SavePlanMetrics(ctx, "t1", "2026-10-15", "walking", map[string]any{"runs": 1}))
		require.NoError(t, s.SavePlanMetrics(ctx, "t1", "2026-10-15", "walking", map[string]any{"runs": 2}))
		require.NoError(t, s.SavePlanMetrics(ctx, "t1", "2026-10-15", "driving", map[string]any{"runs": 7}))

		all, err := s.ListPlanMetrics(ctx, "t1", "2026-10-15", "")
		require.NoError(t, err)
		assert.Len(t, all, 2)

		walk, err := s.ListPlanMetrics(ctx, "t1", "2026-10-15", "walking")
		require.NoError(t, err)
		require.Len(t, walk, 1)
		assert.Equal(t, "walking", walk[0]["mode"])
		assert.EqualValues(t, 2, walk[0]["runs"])
	})
}

func TestStore_OptimizerConfig(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		cfg, err := s.GetOptimizerConfig(ctx, "t1")
		require.NoError(t, err)
		assert.Nil(t, cfg)

		require.NoError(t, s.SaveOptimizerConfig(ctx, "t1", map[string]any{"uTurnPenalty": 90.0}))
		require.NoError(t, s.SaveOptimizerConfig(ctx, "t1", map[string]any{"uTurnPenalty": 75.0}))
		cfg, err = s.GetOptimizerConfig(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"uTurnPenalty": 75.0}, cfg)
		require.NoError(t, s.Ping(ctx))
	})
}

func TestRebind(t *testing.T) {
	pg := &SQL{driver: "pgx"}
	assert.Equal(t, "SELECT a FROM t WHERE x=$1 AND y=$2", pg.rebind("SELECT a FROM t WHERE x=? AND y=?"))
	lite := &SQL{driver: "sqlite"}
	assert.Equal(t, "x=?", lite.rebind("x=?"))
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("mysql", "dsn")
	assert.Error(t, err)
}
