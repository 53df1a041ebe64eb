package model

import (
	"time"

	"canvassplan/internal/geo"
	"canvassplan/internal/household"
)

// Plan documents are produced by the planner, persisted by the store and
// served by the API as-is.

type Plan struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	PlanDate  string    `json:"planDate,omitempty"`
	Mode      string    `json:"mode"`
	TotalDays int       `json:"totalDays"`
	CreatedAt time.Time `json:"createdAt"`
	Days      []PlanDay `json:"days"`
}

// StopCount is the number of stops across all days, routed or not.
func (p Plan) StopCount() int {
	n := 0
	for _, d := range p.Days {
		n += len(d.Stops) + len(d.Unrouted)
	}
	return n
}

// TotalMeters sums the walk-list length of every day.
func (p Plan) TotalMeters() int {
	n := 0
	for _, d := range p.Days {
		n += d.TotalMeters
	}
	return n
}

// Summary is the list view of a plan.
func (p Plan) Summary() PlanSummary {
	return PlanSummary{
		ID:          p.ID,
		PlanDate:    p.PlanDate,
		Mode:        p.Mode,
		TotalDays:   p.TotalDays,
		Stops:       p.StopCount(),
		TotalMeters: p.TotalMeters(),
		CreatedAt:   p.CreatedAt,
	}
}

type PlanDay struct {
	Number      int        `json:"number"`
	Stops       []PlanStop `json:"stops"`
	Unrouted    []PlanStop `json:"unrouted,omitempty"`
	TotalMeters int        `json:"totalMeters"`
	Cost        float64    `json:"cost"`
	Passes      int        `json:"passes"`
	KeptSeed    bool       `json:"keptSeed,omitempty"`
}

type PlanStop struct {
	ID               string      `json:"id"`
	Label            string      `json:"label,omitempty"`
	Location         *geo.LatLng `json:"location,omitempty"`
	Seq              int         `json:"seq,omitempty"`
	LegMeters        int         `json:"legMeters,omitempty"`
	CumulativeMeters int         `json:"cumulativeMeters,omitempty"`
}

type PlanSummary struct {
	ID          string    `json:"id"`
	PlanDate    string    `json:"planDate,omitempty"`
	Mode        string    `json:"mode"`
	TotalDays   int       `json:"totalDays"`
	Stops       int       `json:"stops"`
	TotalMeters int       `json:"totalMeters"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Requests

type StopIn struct {
	ID       string      `json:"id"`
	Label    string      `json:"label,omitempty"`
	Location *geo.LatLng `json:"location,omitempty"`
}

type PlanRequest struct {
	PlanDate  string   `json:"planDate,omitempty"`
	TotalDays int      `json:"totalDays"`
	Mode      string   `json:"mode,omitempty"`
	Stops     []StopIn `json:"stops"`
}

type RouteOrderRequest struct {
	PlanDate string      `json:"planDate,omitempty"`
	Mode     string      `json:"mode,omitempty"`
	Points   []geo.Point `json:"points"`
}

type RouteOrderResponse struct {
	Mode           string   `json:"mode"`
	Order          []int    `json:"order"`
	OrderedIDs     []string `json:"orderedIds"`
	LegMeters      []int    `json:"legMeters"`
	DistanceMeters int      `json:"distanceMeters"`
	Cost           float64  `json:"cost"`
	SeedCost       float64  `json:"seedCost"`
	Passes         int      `json:"passes"`
	KeptSeed       bool     `json:"keptSeed"`
}

type DayAssignmentRequest struct {
	TotalDays int      `json:"totalDays"`
	Stops     []StopIn `json:"stops"`
}

type DayAssignmentResponse struct {
	TotalDays   int            `json:"totalDays"`
	Assignments map[string]int `json:"assignments"`
	Populations []int          `json:"populations"`
	Capacities  []int          `json:"capacities"`
}

type HouseholdRequest struct {
	Contacts []household.Contact `json:"contacts"`
}

type HouseholdResponse struct {
	Households []household.Household `json:"households"`
}
