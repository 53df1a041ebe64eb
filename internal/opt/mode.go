package opt

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"canvassplan/internal/geo"
)

// ErrUnknownTravelMode is returned by ParseTravelMode.
var ErrUnknownTravelMode = errors.New("unknown travel mode")

// TravelMode selects the cost model used to compare visiting orders.
type TravelMode string

const (
	Walking TravelMode = "walking" // raw distance
	Driving TravelMode = "driving" // distance plus turn penalties
)

// ParseTravelMode accepts "walking" or "driving" in any case. An empty string
// means walking.
func ParseTravelMode(s string) (TravelMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(Walking):
		return Walking, nil
	case string(Driving):
		return Driving, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTravelMode, s)
	}
}

// CostModel scores a complete open path.
type CostModel interface {
	Cost(order Order) float64
}

// reversalScorer is implemented by cost models that can price a 2-opt move
// locally. ReversalDelta returns the change in cost from reversing
// order[i+1..k].
type reversalScorer interface {
	ReversalDelta(order Order, i, k int) float64
}

// modes maps each travel mode to its cost model constructor.
var modes = map[TravelMode]func(m geo.Matrix, coords []geo.LatLng, t Tuning) CostModel{
	Walking: func(m geo.Matrix, _ []geo.LatLng, _ Tuning) CostModel { return walkingCost{m: m} },
	Driving: func(m geo.Matrix, coords []geo.LatLng, t Tuning) CostModel {
		return drivingCost{walk: walkingCost{m: m}, coords: coords, frame: geo.NewFrame(coords), t: t}
	},
}

// Model returns the cost model for mode over the given points. Unknown
// modes fall back to walking. coords may be nil for walking.
func (mode TravelMode) Model(m geo.Matrix, coords []geo.LatLng, t Tuning) CostModel {
	ctor, ok := modes[mode]
	if !ok {
		ctor = modes[Walking]
	}
	return ctor(m, coords, t)
}

type walkingCost struct {
	m geo.Matrix
}

func (w walkingCost) Cost(order Order) float64 {
	return float64(w.m.PathLength(order))
}

func (w walkingCost) ReversalDelta(order Order, i, k int) float64 {
	a, b := order[i], order[i+1]
	c, d := order[k], order[k+1]
	return float64(w.m[a][c] + w.m[b][d] - w.m[a][b] - w.m[c][d])
}

type drivingCost struct {
	walk   walkingCost
	coords []geo.LatLng
	frame  geo.Frame
	t      Tuning
}

func (d drivingCost) Cost(order Order) float64 {
	return d.walk.Cost(order) + d.Turns(order)
}

// Turns sums the turn penalty at every interior vertex of order.
func (d drivingCost) Turns(order Order) float64 {
	total := 0.0
	for i := 1; i+1 < len(order); i++ {
		inX, inY := d.frame.Vector(d.coords[order[i-1]], d.coords[order[i]])
		outX, outY := d.frame.Vector(d.coords[order[i]], d.coords[order[i+1]])
		total += d.t.TurnPenalty(inX, inY, outX, outY)
	}
	return total
}

// TurnPenalty prices the turn between an incoming and an outgoing planar
// direction. Near U-turns cost the same in either direction; otherwise only
// left turns (positive cross product) are penalized, by bracket.
func (t Tuning) TurnPenalty(inX, inY, outX, outY float64) float64 {
	lin := math.Hypot(inX, inY)
	lout := math.Hypot(outX, outY)
	if lin == 0 || lout == 0 {
		return 0
	}
	cos := (inX*outX + inY*outY) / (lin * lout)
	cos = math.Max(-1, math.Min(1, cos))
	angle := math.Acos(cos) * 180 / math.Pi
	switch {
	case angle < t.StraightMaxDeg:
		return 0
	case angle >= t.UTurnDeg:
		return t.UTurnPenalty
	}
	if inX*outY-inY*outX <= 0 {
		return 0
	}
	switch {
	case angle >= t.VerySharpTurnDeg:
		return t.VerySharpPenalty
	case angle >= t.SharpTurnDeg:
		return t.SharpLeftPenalty
	default:
		return t.LeftTurnPenalty
	}
}
