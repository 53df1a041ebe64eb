// Package plan turns a campaign's stop list into a multi-day canvass plan:
// stops are balanced across days, then each day's walk list is ordered.
package plan

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"canvassplan/internal/days"
	"canvassplan/internal/geo"
	"canvassplan/internal/metrics"
	"canvassplan/internal/model"
	"canvassplan/internal/opt"
)

// Request is one planning call. Stops must have unique ids; coordinates are
// taken as given.
type Request struct {
	TenantID  string
	PlanDate  string
	TotalDays int
	Mode      opt.TravelMode
	Stops     []model.StopIn
}

// Planner composes the day balancer with the route optimizer.
type Planner struct {
	Balancer days.Balancer
	Tuning   opt.Tuning
	// Now stamps CreatedAt; nil means time.Now.
	Now func() time.Time
}

// New returns a Planner with the default clusterer and tuning t.
func New(t opt.Tuning) *Planner {
	return &Planner{Tuning: t}
}

// Plan builds a plan with a fresh id. Days are routed concurrently and each
// owns its matrix. Stops without a location are listed as Unrouted on the
// day the balancer gave them. A cancelled ctx stops the remaining days.
func (p *Planner) Plan(ctx context.Context, req Request) (model.Plan, error) {
	start := time.Now()
	totalDays := req.TotalDays
	if totalDays < 1 {
		totalDays = 1
	}
	mode := req.Mode
	if mode == "" {
		mode = opt.Walking
	}

	stops := make([]days.Stop, len(req.Stops))
	byID := make(map[string]model.StopIn, len(req.Stops))
	for i, s := range req.Stops {
		stops[i] = days.Stop{ID: s.ID, Location: s.Location}
		byID[s.ID] = s
	}
	assignment := p.Balancer.Assign(stops, totalDays)
	groups := assignment.Group(stops, totalDays)

	out := make([]model.PlanDay, totalDays)
	optimizer := opt.New(p.Tuning)
	g, gctx := errgroup.WithContext(ctx)
	for i, ids := range groups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			members := make([]model.StopIn, len(ids))
			for j, id := range ids {
				members[j] = byID[id]
			}
			out[i] = routeDay(optimizer, req.TenantID, req.PlanDate, mode, i+1, members)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.Plan{}, fmt.Errorf("plan: %w", err)
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	pl := model.Plan{
		ID:        "plan_" + uuid.New().String(),
		TenantID:  req.TenantID,
		PlanDate:  req.PlanDate,
		Mode:      string(mode),
		TotalDays: totalDays,
		CreatedAt: now().UTC(),
		Days:      out,
	}
	metrics.PlansCreated.WithLabelValues(string(mode)).Inc()
	metrics.PlanStops.Observe(float64(len(req.Stops)))
	log.Printf("[plan] tenant=%s id=%s days=%d stops=%d mode=%s meters=%d dur=%s",
		req.TenantID, pl.ID, totalDays, len(req.Stops), mode, pl.TotalMeters(), time.Since(start))
	return pl, nil
}

// routeDay orders the located members of one day and appends the rest.
func routeDay(o *opt.Optimizer, tenant, planDate string, mode opt.TravelMode, number int, members []model.StopIn) model.PlanDay {
	day := model.PlanDay{Number: number, Stops: []model.PlanStop{}}
	var located []model.StopIn
	for _, s := range members {
		if s.Location == nil {
			day.Unrouted = append(day.Unrouted, model.PlanStop{ID: s.ID, Label: s.Label})
			continue
		}
		located = append(located, s)
	}
	if len(located) == 0 {
		return day
	}

	coords := make([]geo.LatLng, len(located))
	for i, s := range located {
		coords[i] = *s.Location
	}
	started := time.Now()
	m := geo.BuildMatrix(coords)
	res := o.OptimizeWith(m, coords, mode)
	elapsed := time.Since(started)

	metrics.OptimizeDuration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
	metrics.OptimizePasses.WithLabelValues(string(mode)).Observe(float64(res.Passes))
	if res.KeptSeed {
		metrics.OptimizeSeedKept.WithLabelValues(string(mode)).Inc()
	}
	opt.RecordRun(tenant, planDate, mode, len(located), res, elapsed)

	leg, cum := m.Legs(res.Order)
	for pos, idx := range res.Order {
		s := located[idx]
		day.Stops = append(day.Stops, model.PlanStop{
			ID:               s.ID,
			Label:            s.Label,
			Location:         s.Location,
			Seq:              pos + 1,
			LegMeters:        leg[pos],
			CumulativeMeters: cum[pos],
		})
	}
	day.TotalMeters = res.DistanceMeters
	day.Cost = res.Cost
	day.Passes = res.Passes
	day.KeptSeed = res.KeptSeed
	return day
}

// Stats totals the route orderings of one plan. Days without routed stops
// were never optimized and do not count as runs.
func Stats(pl model.Plan, elapsed time.Duration) opt.RunStats {
	rs := opt.RunStats{Elapsed: elapsed, LastRunAt: pl.CreatedAt}
	for _, d := range pl.Days {
		if len(d.Stops) == 0 {
			continue
		}
		rs.Runs++
		rs.Points += len(d.Stops)
		rs.DistanceMeters += d.TotalMeters
		rs.Passes += d.Passes
		if d.KeptSeed {
			rs.KeptSeed++
		}
	}
	return rs
}

// Points returns the routed stops of day number (1-based) in visiting order.
func Points(pl model.Plan, number int) []geo.Point {
	if number < 1 || number > len(pl.Days) {
		return nil
	}
	var out []geo.Point
	for _, s := range pl.Days[number-1].Stops {
		if s.Location != nil {
			out = append(out, geo.Point{ID: s.ID, LatLng: *s.Location})
		}
	}
	return out
}

// Assignment returns the stop id to day mapping of a plan.
func Assignment(pl model.Plan) days.Assignment {
	a := days.Assignment{}
	for _, d := range pl.Days {
		for _, s := range d.Stops {
			a[s.ID] = d.Number
		}
		for _, s := range d.Unrouted {
			a[s.ID] = d.Number
		}
	}
	return a
}
