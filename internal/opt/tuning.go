package opt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidTuning is returned by Tuning.Validate.
var ErrInvalidTuning = errors.New("invalid optimizer tuning")

// Tuning carries the heuristic constants of the route optimizer. Angles are in
// degrees of deviation from straight ahead; penalties are unitless points that
// are added directly to meters in driving mode.
type Tuning struct {
	StraightMaxDeg   float64 `json:"straightMaxDeg" yaml:"straightMaxDeg"`
	SharpTurnDeg     float64 `json:"sharpTurnDeg" yaml:"sharpTurnDeg"`
	VerySharpTurnDeg float64 `json:"verySharpTurnDeg" yaml:"verySharpTurnDeg"`
	UTurnDeg         float64 `json:"uTurnDeg" yaml:"uTurnDeg"`
	LeftTurnPenalty  float64 `json:"leftTurnPenalty" yaml:"leftTurnPenalty"`
	SharpLeftPenalty float64 `json:"sharpLeftPenalty" yaml:"sharpLeftPenalty"`
	VerySharpPenalty float64 `json:"verySharpLeftPenalty" yaml:"verySharpLeftPenalty"`
	UTurnPenalty     float64 `json:"uTurnPenalty" yaml:"uTurnPenalty"`
	ImproveTolerance float64 `json:"improveTolerance" yaml:"improveTolerance"`
	MaxTwoOptPasses  int     `json:"maxTwoOptPasses" yaml:"maxTwoOptPasses"`
}

// DefaultTuning returns the production constants.
func DefaultTuning() Tuning {
	return Tuning{
		StraightMaxDeg:   25,
		SharpTurnDeg:     80,
		VerySharpTurnDeg: 140,
		UTurnDeg:         165,
		LeftTurnPenalty:  45,
		SharpLeftPenalty: 110,
		VerySharpPenalty: 180,
		UTurnPenalty:     60,
		ImproveTolerance: 1,
		MaxTwoOptPasses:  10,
	}
}

// Validate checks that the angle brackets are ordered and nothing is negative.
func (t Tuning) Validate() error {
	if !(0 <= t.StraightMaxDeg && t.StraightMaxDeg < t.SharpTurnDeg &&
		t.SharpTurnDeg < t.VerySharpTurnDeg && t.VerySharpTurnDeg < t.UTurnDeg && t.UTurnDeg <= 180) {
		return fmt.Errorf("%w: angles must satisfy 0 <= straight < sharp < verySharp < uTurn <= 180", ErrInvalidTuning)
	}
	for name, v := range map[string]float64{
		"leftTurnPenalty":      t.LeftTurnPenalty,
		"sharpLeftPenalty":     t.SharpLeftPenalty,
		"verySharpLeftPenalty": t.VerySharpPenalty,
		"uTurnPenalty":         t.UTurnPenalty,
		"improveTolerance":     t.ImproveTolerance,
	} {
		if v < 0 {
			return fmt.Errorf("%w: %s must be >= 0", ErrInvalidTuning, name)
		}
	}
	if t.MaxTwoOptPasses < 0 {
		return fmt.Errorf("%w: maxTwoOptPasses must be >= 0", ErrInvalidTuning)
	}
	return nil
}

// Merge overlays the fields present in raw onto t and validates the result.
// Unknown keys are rejected. raw is the JSON shape of Tuning, as stored per
// tenant.
func (t Tuning) Merge(raw map[string]any) (Tuning, error) {
	if len(raw) == 0 {
		return t, t.Validate()
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return t, fmt.Errorf("%w: %v", ErrInvalidTuning, err)
	}
	out := t
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return t, fmt.Errorf("%w: %v", ErrInvalidTuning, err)
	}
	if err := out.Validate(); err != nil {
		return t, err
	}
	return out, nil
}

// Map returns t in its JSON shape.
func (t Tuning) Map() map[string]any {
	data, _ := json.Marshal(t)
	out := map[string]any{}
	_ = json.Unmarshal(data, &out)
	return out
}
