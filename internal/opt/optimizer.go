package opt

import "canvassplan/internal/geo"

// Result is the outcome of one route ordering.
type Result struct {
	Order          Order   `json:"order"`
	DistanceMeters int     `json:"distanceMeters"`
	Cost           float64 `json:"cost"`
	SeedCost       float64 `json:"seedCost"`
	Passes         int     `json:"passes"`
	KeptSeed       bool    `json:"keptSeed"`
}

// Optimizer orders points into an open path. It holds no per-call state and
// is safe for concurrent use.
type Optimizer struct {
	Tuning Tuning
}

// New returns an Optimizer using t.
func New(t Tuning) *Optimizer {
	return &Optimizer{Tuning: t}
}

// OptimizeOrder orders coords for mode with the default tuning.
func OptimizeOrder(coords []geo.LatLng, mode TravelMode) Order {
	return New(DefaultTuning()).Optimize(coords, mode).Order
}

// Optimize builds a nearest-neighbor seed, improves it with 2-opt under the
// mode's cost model, and returns whichever of the two costs less (the
// improved order on ties). Inputs of zero or one point return the identity.
func (o *Optimizer) Optimize(coords []geo.LatLng, mode TravelMode) Result {
	if len(coords) <= 1 {
		return Result{Order: Identity(len(coords))}
	}
	return o.OptimizeWith(geo.BuildMatrix(coords), coords, mode)
}

// OptimizeWith is Optimize for callers that already hold the matrix of
// coords, e.g. to derive per-leg distances afterwards.
func (o *Optimizer) OptimizeWith(m geo.Matrix, coords []geo.LatLng, mode TravelMode) Result {
	if m.Len() <= 1 {
		return Result{Order: Identity(m.Len())}
	}
	return o.optimize(m, mode.Model(m, coords, o.Tuning))
}

// OptimizeMatrix orders points given only their distance matrix. Turn
// penalties need coordinates, so the walking cost model is always used.
func (o *Optimizer) OptimizeMatrix(m geo.Matrix) Result {
	if m.Len() <= 1 {
		return Result{Order: Identity(m.Len())}
	}
	return o.optimize(m, Walking.Model(m, nil, o.Tuning))
}

func (o *Optimizer) optimize(m geo.Matrix, cost CostModel) Result {
	seed := Construct(m)
	improved, passes := Improve(seed, cost, o.Tuning)

	seedCost := cost.Cost(seed)
	improvedCost := cost.Cost(improved)
	res := Result{Order: improved, Cost: improvedCost, SeedCost: seedCost, Passes: passes}
	if seedCost < improvedCost {
		res.Order, res.Cost, res.KeptSeed = seed, seedCost, true
	}
	res.DistanceMeters = m.PathLength(res.Order)
	return res
}
