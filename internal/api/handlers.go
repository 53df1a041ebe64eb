package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"

	"canvassplan/internal/days"
	"canvassplan/internal/geo"
	"canvassplan/internal/household"
	"canvassplan/internal/model"
	"canvassplan/internal/opt"
	"canvassplan/internal/plan"
	"canvassplan/internal/store"
)

// RouteOrderHandler handles POST /v1/route-order
func (s *Server) RouteOrderHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/route-order" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.RouteOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	mode, err := validateRouteOrderRequest(&req, s.Config.MaxPoints, s.Config.MaxRoutePoints)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid route order request", err.Error(), r.URL.Path)
		return
	}
	ctx, tenant := s.withTenant(r)
	tuning, err := s.tuningFor(ctx, tenant)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Optimizer config failed", err.Error(), r.URL.Path)
		return
	}

	coords := make([]geo.LatLng, len(req.Points))
	for i, p := range req.Points {
		coords[i] = p.LatLng
	}
	start := time.Now()
	m := geo.BuildPointMatrix(req.Points)
	res := opt.New(tuning).OptimizeWith(m, coords, mode)
	opt.RecordRun(tenant, req.PlanDate, mode, len(coords), res, time.Since(start))

	ordered := make([]geo.Point, len(res.Order))
	ids := make([]string, len(res.Order))
	for pos, idx := range res.Order {
		ordered[pos] = req.Points[idx]
		ids[pos] = req.Points[idx].ID
	}
	if r.URL.Query().Get("format") == "geojson" {
		fc := geo.PathFeatureCollection(ordered, map[string]any{"mode": string(mode)})
		writeGeoJSON(w, fc)
		return
	}
	legs, _ := m.Legs(res.Order)
	writeJSON(w, http.StatusOK, model.RouteOrderResponse{
		Mode:           string(mode),
		Order:          res.Order,
		OrderedIDs:     ids,
		LegMeters:      legs,
		DistanceMeters: res.DistanceMeters,
		Cost:           res.Cost,
		SeedCost:       res.SeedCost,
		Passes:         res.Passes,
		KeptSeed:       res.KeptSeed,
	})
}

// DayAssignmentsHandler handles POST /v1/day-assignments
func (s *Server) DayAssignmentsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/day-assignments" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.DayAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateDayAssignmentRequest(&req, s.Config.MaxPoints); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid day assignment request", err.Error(), r.URL.Path)
		return
	}
	stops := make([]days.Stop, len(req.Stops))
	for i, st := range req.Stops {
		stops[i] = days.Stop{ID: st.ID, Location: st.Location}
	}
	a := days.AssignDays(stops, req.TotalDays)

	if r.URL.Query().Get("format") == "geojson" {
		var pts []geo.Point
		for _, st := range req.Stops {
			if st.Location != nil {
				pts = append(pts, geo.Point{ID: st.ID, LatLng: *st.Location})
			}
		}
		writeGeoJSON(w, geo.DayFeatureCollection(pts, a))
		return
	}
	writeJSON(w, http.StatusOK, model.DayAssignmentResponse{
		TotalDays:   req.TotalDays,
		Assignments: a,
		Populations: a.Populations(req.TotalDays),
		Capacities:  days.Capacities(len(stops), req.TotalDays),
	})
}

// HouseholdsHandler handles POST /v1/households
func (s *Server) HouseholdsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/households" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.HouseholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateContacts(req.Contacts, s.Config.MaxPoints); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid household request", err.Error(), r.URL.Path)
		return
	}
	hs := household.Aggregate(req.Contacts)
	if hs == nil {
		hs = []household.Household{}
	}
	if r.URL.Query().Get("format") == "geojson" {
		members := make(map[string]int, len(hs))
		for _, h := range hs {
			members[h.Key] = len(h.MemberIDs)
		}
		fc := geojson.NewFeatureCollection()
		for _, p := range household.Points(hs) {
			f := geojson.NewFeature(p.Orb())
			f.ID = p.ID
			f.Properties["members"] = members[p.ID]
			fc.Append(f)
		}
		writeGeoJSON(w, fc)
		return
	}
	writeJSON(w, http.StatusOK, model.HouseholdResponse{Households: hs})
}

// PlansHandler handles POST/GET /v1/plans
func (s *Server) PlansHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/plans" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodPost:
		s.createPlan(w, r)
	case http.MethodGet:
		ctx, tenant := s.withTenant(r)
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListPlans(ctx, tenant, cursor, limit)
		if errors.Is(err, store.ErrInvalidCursor) {
			writeProblem(w, http.StatusBadRequest, "Invalid cursor", err.Error(), r.URL.Path)
			return
		}
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List plans failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) createPlan(w http.ResponseWriter, r *http.Request) {
	p := s.getPrincipal(r)
	if !p.CanPlan() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "organizer or admin required", r.URL.Path)
		return
	}
	var req model.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	mode, err := validatePlanRequest(&req, s.Config.MaxPoints, s.Config.MaxRoutePoints)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid plan request", err.Error(), r.URL.Path)
		return
	}
	ctx, tenant := s.withTenant(r)
	tuning, err := s.tuningFor(ctx, tenant)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Optimizer config failed", err.Error(), r.URL.Path)
		return
	}
	started := time.Now()
	pl, err := plan.New(tuning).Plan(ctx, plan.Request{
		TenantID:  tenant,
		PlanDate:  req.PlanDate,
		TotalDays: req.TotalDays,
		Mode:      mode,
		Stops:     req.Stops,
	})
	if err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Plan failed", err.Error(), r.URL.Path)
		return
	}
	if err := s.Store.SavePlan(ctx, pl); err != nil {
		writeProblem(w, http.StatusInternalServerError, "Save plan failed", err.Error(), r.URL.Path)
		return
	}
	if err := s.addPlanMetrics(ctx, tenant, pl, plan.Stats(pl, time.Since(started))); err != nil {
		log.Printf("[api] save plan metrics tenant=%s planDate=%s: %v", tenant, req.PlanDate, err)
	}
	s.publishPlanEvent(tenant, pl.ID, "plan.created", map[string]any{
		"planId":    pl.ID,
		"planDate":  pl.PlanDate,
		"totalDays": pl.TotalDays,
		"stops":     pl.StopCount(),
	})
	writeJSON(w, http.StatusCreated, pl)
}

// PlanByIDHandler handles GET/DELETE /v1/plans/{id}, GET /v1/plans/{id}/geojson
// and GET /v1/plans/{id}/events/stream
func (s *Server) PlanByIDHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	rest := strings.TrimPrefix(path, "/v1/plans/")
	if rest == path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", path)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	ctx, tenant := s.withTenant(r)

	if len(parts) > 2 && parts[1] == "events" && parts[2] == "stream" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if _, err := s.Store.GetPlan(ctx, tenant, id); err != nil {
			writeStoreError(w, r, "Plan not found", err)
			return
		}
		s.streamPlanEvents(w, r, id)
		return
	}
	if len(parts) > 1 && parts[1] == "geojson" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		pl, err := s.Store.GetPlan(ctx, tenant, id)
		if err != nil {
			writeStoreError(w, r, "Plan not found", err)
			return
		}
		if v := r.URL.Query().Get("day"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > len(pl.Days) {
				writeProblem(w, http.StatusBadRequest, "Invalid day", fmt.Sprintf("day must be in 1..%d", len(pl.Days)), r.URL.Path)
				return
			}
			writeGeoJSON(w, geo.PathFeatureCollection(plan.Points(pl, n), map[string]any{"planId": pl.ID, "day": n}))
			return
		}
		var pts []geo.Point
		for n := 1; n <= len(pl.Days); n++ {
			pts = append(pts, plan.Points(pl, n)...)
		}
		writeGeoJSON(w, geo.DayFeatureCollection(pts, plan.Assignment(pl)))
		return
	}
	if len(parts) > 1 {
		writeProblem(w, http.StatusNotFound, "Not Found", "", path)
		return
	}

	switch r.Method {
	case http.MethodGet:
		pl, err := s.Store.GetPlan(ctx, tenant, id)
		if err != nil {
			writeStoreError(w, r, "Plan not found", err)
			return
		}
		writeJSON(w, http.StatusOK, pl)
	case http.MethodDelete:
		if !s.getPrincipal(r).CanPlan() {
			writeProblem(w, http.StatusForbidden, "Forbidden", "organizer or admin required", r.URL.Path)
			return
		}
		if err := s.Store.DeletePlan(ctx, tenant, id); err != nil {
			writeStoreError(w, r, "Plan not found", err)
			return
		}
		s.publishPlanEvent(tenant, id, "plan.deleted", map[string]any{"planId": id})
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// streamPlanEvents serves plan events as server-sent events until the client
// goes away.
func (s *Server) streamPlanEvents(w http.ResponseWriter, r *http.Request, id string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, 500, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	topic := planTopic(id)
	ch := s.Broker.Subscribe(topic)
	defer s.Broker.Unsubscribe(topic, ch)

	heartbeat := func() {
		fmt.Fprintf(w, "event: heartbeat\n")
		fmt.Fprintf(w, "data: {\"planId\":%q,\"ts\":%q}\n\n", id, time.Now().Format(time.RFC3339))
		flusher.Flush()
	}
	heartbeat()
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	notify := r.Context().Done()
	for {
		select {
		case <-notify:
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			b, _ := json.Marshal(evt.Data)
			fmt.Fprintf(w, "event: %s\n", evt.Type)
			fmt.Fprintf(w, "data: %s\n\n", string(b))
			flusher.Flush()
		case <-ticker.C:
			heartbeat()
		}
	}
}

func (s *Server) publishPlanEvent(tenant, planID, typ string, data map[string]any) {
	data["ts"] = time.Now().UTC().Format(time.RFC3339)
	evt := SSEEvent{Type: typ, Data: data}
	s.Broker.Publish(planTopic(planID), evt)
	s.Broker.Publish(tenantTopic(tenant), evt)
}

// OptimizerConfigHandler returns the default and effective optimizer tuning
func (s *Server) OptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/optimizer/config" || r.Method != http.MethodGet {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	ctx, tenant := s.withTenant(r)
	effective, err := s.tuningFor(ctx, tenant)
	if err != nil {
		writeProblem(w, 500, "Optimizer config failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, 200, map[string]any{
		"defaults":  opt.DefaultTuning(),
		"effective": effective,
		"modes":     []opt.TravelMode{opt.Walking, opt.Driving},
	})
}

// Admin get/set optimizer tenant config
func (s *Server) AdminOptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/optimizer/config" {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodGet:
		cfg, err := s.Store.GetOptimizerConfig(r.Context(), p.Tenant)
		if err != nil {
			writeProblem(w, 500, "Load failed", err.Error(), r.URL.Path)
			return
		}
		if cfg == nil {
			cfg = map[string]any{}
		}
		effective, err := s.tuningFor(r.Context(), p.Tenant)
		if err != nil {
			writeProblem(w, 500, "Load failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, 200, map[string]any{"config": cfg, "effective": effective.Map()})
	case http.MethodPut:
		var body struct {
			Config map[string]any `json:"config"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeProblem(w, 400, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if body.Config == nil {
			writeProblem(w, 400, "Missing config", "", r.URL.Path)
			return
		}
		if _, err := opt.DefaultTuning().Merge(body.Config); err != nil {
			writeProblem(w, 400, "Invalid config", err.Error(), r.URL.Path)
			return
		}
		if err := s.Store.SaveOptimizerConfig(r.Context(), p.Tenant, body.Config); err != nil {
			writeProblem(w, 500, "Save failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, 200, map[string]bool{"ok": true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Admin plan metrics by travel mode
func (s *Server) PlanMetricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/plan-metrics" || r.Method != http.MethodGet {
		writeProblem(w, 404, "Not Found", "", r.URL.Path)
		return
	}
	p := s.getPrincipal(r)
	if !p.IsAdmin() {
		writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path)
		return
	}
	planDate := r.URL.Query().Get("planDate")
	if planDate == "" {
		writeJSON(w, 200, map[string]any{"planDates": opt.PlanDates(p.Tenant)})
		return
	}
	mode := r.URL.Query().Get("mode")
	// items: totals over saved plans; live: every ordering run by this
	// process, route-order calls included
	items, err := s.Store.ListPlanMetrics(r.Context(), p.Tenant, planDate, mode)
	if err != nil {
		writeProblem(w, 500, "Load failed", err.Error(), r.URL.Path)
		return
	}
	live := []map[string]any{}
	for m, rs := range opt.Runs(p.Tenant, planDate) {
		if mode != "" && string(m) != mode {
			continue
		}
		item := runStatsMap(rs)
		item["mode"] = string(m)
		live = append(live, item)
	}
	writeJSON(w, 200, map[string]any{"items": items, "live": live})
}

// addPlanMetrics folds one saved plan into the stored totals for its tenant,
// plan date and mode.
func (s *Server) addPlanMetrics(ctx context.Context, tenant string, pl model.Plan, rs opt.RunStats) error {
	prev, err := s.Store.ListPlanMetrics(ctx, tenant, pl.PlanDate, pl.Mode)
	if err != nil {
		return err
	}
	if len(prev) > 0 {
		rs = runStatsFromMap(prev[0]).Add(rs)
	}
	return s.Store.SavePlanMetrics(ctx, tenant, pl.PlanDate, pl.Mode, runStatsMap(rs))
}

func runStatsMap(rs opt.RunStats) map[string]any {
	return map[string]any{
		"runs":           rs.Runs,
		"points":         rs.Points,
		"distanceMeters": rs.DistanceMeters,
		"passes":         rs.Passes,
		"keptSeed":       rs.KeptSeed,
		"elapsedMs":      rs.Elapsed.Milliseconds(),
		"lastRunAt":      rs.LastRunAt.Format(time.RFC3339),
	}
}

// runStatsFromMap reads back a runStatsMap document. Numbers may come back
// as float64 after a JSON round trip through the store.
func runStatsFromMap(m map[string]any) opt.RunStats {
	num := func(k string) int64 {
		switch v := m[k].(type) {
		case int:
			return int64(v)
		case int64:
			return v
		case float64:
			return int64(v)
		case json.Number:
			n, _ := v.Int64()
			return n
		}
		return 0
	}
	rs := opt.RunStats{
		Runs:           int(num("runs")),
		Points:         int(num("points")),
		DistanceMeters: int(num("distanceMeters")),
		Passes:         int(num("passes")),
		KeptSeed:       int(num("keptSeed")),
		Elapsed:        time.Duration(num("elapsedMs")) * time.Millisecond,
	}
	if v, ok := m["lastRunAt"].(string); ok {
		rs.LastRunAt, _ = time.Parse(time.RFC3339, v)
	}
	return rs
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, 200, map[string]string{"status": "ready"})
}

func writeStoreError(w http.ResponseWriter, r *http.Request, title string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, title, err.Error(), r.URL.Path)
		return
	}
	writeProblem(w, http.StatusInternalServerError, "Store error", err.Error(), r.URL.Path)
}
