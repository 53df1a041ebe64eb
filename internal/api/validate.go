package api

import (
	"fmt"
	"strings"

	"canvassplan/internal/household"
	"canvassplan/internal/model"
	"canvassplan/internal/opt"
)

// MaxDays caps totalDays on planning requests.
const MaxDays = 366

func validateRouteOrderRequest(req *model.RouteOrderRequest, maxPoints, maxRoutePoints int) (opt.TravelMode, error) {
	mode, err := opt.ParseTravelMode(req.Mode)
	if err != nil {
		return "", err
	}
	if maxPoints > 0 && len(req.Points) > maxPoints {
		return "", fmt.Errorf("too many points: %d (max %d)", len(req.Points), maxPoints)
	}
	if maxRoutePoints > 0 && len(req.Points) > maxRoutePoints {
		return "", fmt.Errorf("too many points for one route: %d (max %d)", len(req.Points), maxRoutePoints)
	}
	seen := make(map[string]struct{}, len(req.Points))
	for i, p := range req.Points {
		if err := checkID(p.ID, i, seen); err != nil {
			return "", err
		}
		if !p.LatLng.Valid() {
			return "", fmt.Errorf("point %s: invalid coordinates (%v, %v)", p.ID, p.Lat, p.Lng)
		}
	}
	return mode, nil
}

func validateDayAssignmentRequest(req *model.DayAssignmentRequest, maxPoints int) error {
	if err := checkDays(req.TotalDays); err != nil {
		return err
	}
	return validateStops(req.Stops, maxPoints)
}

func validatePlanRequest(req *model.PlanRequest, maxPoints, maxRoutePoints int) (opt.TravelMode, error) {
	mode, err := opt.ParseTravelMode(req.Mode)
	if err != nil {
		return "", err
	}
	if err := checkDays(req.TotalDays); err != nil {
		return "", err
	}
	if err := validateStops(req.Stops, maxPoints); err != nil {
		return "", err
	}
	if n := routedPerDay(req.Stops, req.TotalDays); maxRoutePoints > 0 && n > maxRoutePoints {
		return "", fmt.Errorf("too many located stops per day: %d (max %d), add days", n, maxRoutePoints)
	}
	return mode, nil
}

// routedPerDay bounds the located stops one day can receive. Day capacity is
// ceil(stops/days) and only located stops are routed.
func routedPerDay(stops []model.StopIn, totalDays int) int {
	located := 0
	for _, s := range stops {
		if s.Location != nil {
			located++
		}
	}
	perDay := (len(stops) + totalDays - 1) / totalDays
	return min(located, perDay)
}

func validateContacts(cs []household.Contact, maxPoints int) error {
	if maxPoints > 0 && len(cs) > maxPoints {
		return fmt.Errorf("too many contacts: %d (max %d)", len(cs), maxPoints)
	}
	seen := make(map[string]struct{}, len(cs))
	for i, c := range cs {
		if err := checkID(c.ID, i, seen); err != nil {
			return err
		}
		if c.Location != nil && !c.Location.Valid() {
			return fmt.Errorf("contact %s: invalid coordinates", c.ID)
		}
	}
	return nil
}

func validateStops(stops []model.StopIn, maxPoints int) error {
	if maxPoints > 0 && len(stops) > maxPoints {
		return fmt.Errorf("too many stops: %d (max %d)", len(stops), maxPoints)
	}
	seen := make(map[string]struct{}, len(stops))
	for i, s := range stops {
		if err := checkID(s.ID, i, seen); err != nil {
			return err
		}
		if s.Location != nil && !s.Location.Valid() {
			return fmt.Errorf("stop %s: invalid coordinates (%v, %v)", s.ID, s.Location.Lat, s.Location.Lng)
		}
	}
	return nil
}

func checkDays(n int) error {
	if n < 1 || n > MaxDays {
		return fmt.Errorf("totalDays must be in 1..%d", MaxDays)
	}
	return nil
}

func checkID(id string, i int, seen map[string]struct{}) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("item %d: id is required", i)
	}
	if _, dup := seen[id]; dup {
		return fmt.Errorf("duplicate id: %s", id)
	}
	seen[id] = struct{}{}
	return nil
}
