package opt

import (
	"sort"
	"sync"
	"time"
)

// RunStats summarizes route orderings for one tenant, plan date and mode.
type RunStats struct {
	Runs           int           `json:"runs"`
	Points         int           `json:"points"`
	DistanceMeters int           `json:"distanceMeters"`
	Passes         int           `json:"passes"`
	KeptSeed       int           `json:"keptSeed"`
	Elapsed        time.Duration `json:"elapsedNs"`
	LastRunAt      time.Time     `json:"lastRunAt"`
}

// Add returns the field-wise sum of s and o, keeping the later LastRunAt.
func (s RunStats) Add(o RunStats) RunStats {
	s.Runs += o.Runs
	s.Points += o.Points
	s.DistanceMeters += o.DistanceMeters
	s.Passes += o.Passes
	s.KeptSeed += o.KeptSeed
	s.Elapsed += o.Elapsed
	if o.LastRunAt.After(s.LastRunAt) {
		s.LastRunAt = o.LastRunAt
	}
	return s
}

type key struct {
	Tenant   string
	PlanDate string
	Mode     TravelMode
}

var (
	mu    sync.Mutex
	store = map[key]RunStats{}
)

// RecordRun folds one optimizer result into the process-lifetime totals.
// Route-order calls and plan days sharing a plan date land in the same
// bucket.
func RecordRun(tenant, planDate string, mode TravelMode, points int, r Result, elapsed time.Duration) {
	mu.Lock()
	defer mu.Unlock()
	k := key{Tenant: tenant, PlanDate: planDate, Mode: mode}
	s := store[k]
	s.Runs++
	s.Points += points
	s.DistanceMeters += r.DistanceMeters
	s.Passes += r.Passes
	if r.KeptSeed {
		s.KeptSeed++
	}
	s.Elapsed += elapsed
	s.LastRunAt = time.Now().UTC()
	store[k] = s
}

// Runs returns the totals recorded for tenant and planDate, keyed by mode.
func Runs(tenant, planDate string) map[TravelMode]RunStats {
	mu.Lock()
	defer mu.Unlock()
	out := map[TravelMode]RunStats{}
	for k, v := range store {
		if k.Tenant == tenant && k.PlanDate == planDate {
			out[k.Mode] = v
		}
	}
	return out
}

// PlanDates lists the plan dates with recorded runs for tenant, sorted.
func PlanDates(tenant string) []string {
	mu.Lock()
	defer mu.Unlock()
	seen := map[string]struct{}{}
	for k := range store {
		if k.Tenant == tenant {
			seen[k.PlanDate] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
