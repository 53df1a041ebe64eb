package store

import (
	"context"
	"sync"

	"canvassplan/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu     sync.Mutex
	plans  map[string]model.Plan                  // id -> plan
	byTen  map[string][]string                    // tenant -> plan ids, oldest first
	planMx map[string]map[string][]map[string]any // tenant -> planDate -> items
	optCfg map[string]map[string]any              // tenant -> config
}

func NewMemory() *Memory {
	return &Memory{
		plans:  map[string]model.Plan{},
		byTen:  map[string][]string{},
		planMx: map[string]map[string][]map[string]any{},
		optCfg: map[string]map[string]any{},
	}
}

func (m *Memory) SavePlan(ctx context.Context, p model.Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[p.ID]; !ok {
		m.byTen[p.TenantID] = append(m.byTen[p.TenantID], p.ID)
	}
	m.plans[p.ID] = p
	return nil
}

func (m *Memory) GetPlan(ctx context.Context, tenantID, id string) (model.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok || p.TenantID != tenantID {
		return model.Plan{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) ListPlans(ctx context.Context, tenantID, cursor string, limit int) ([]model.PlanSummary, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.byTen[tenantID]
	start := 0
	if cursor != "" {
		start = -1
		for i, id := range ids {
			if id == cursor {
				start = i + 1
				break
			}
		}
		if start < 0 {
			return nil, "", ErrInvalidCursor
		}
	}
	limit = clampLimit(limit)
	out := []model.PlanSummary{}
	next := ""
	for i := start; i < len(ids); i++ {
		if len(out) == limit {
			next = out[len(out)-1].ID
			break
		}
		out = append(out, m.plans[ids[i]].Summary())
	}
	return out, next, nil
}

func (m *Memory) DeletePlan(ctx context.Context, tenantID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok || p.TenantID != tenantID {
		return ErrNotFound
	}
	delete(m.plans, id)
	ids := m.byTen[tenantID]
	for i, v := range ids {
		if v == id {
			m.byTen[tenantID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) SavePlanMetrics(ctx context.Context, tenantID, planDate, mode string, metrics map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item := map[string]any{}
	for k, v := range metrics {
		item[k] = v
	}
	item["mode"] = mode
	if m.planMx[tenantID] == nil {
		m.planMx[tenantID] = map[string][]map[string]any{}
	}
	items := m.planMx[tenantID][planDate]
	for i := range items {
		if items[i]["mode"] == mode {
			items[i] = item
			return nil
		}
	}
	m.planMx[tenantID][planDate] = append(items, item)
	return nil
}

func (m *Memory) ListPlanMetrics(ctx context.Context, tenantID, planDate, mode string) ([]map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []map[string]any{}
	for _, it := range m.planMx[tenantID][planDate] {
		if mode == "" || it["mode"] == mode {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *Memory) GetOptimizerConfig(ctx context.Context, tenantID string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cfg, ok := m.optCfg[tenantID]; ok {
		return cfg, nil
	}
	return nil, nil
}

func (m *Memory) SaveOptimizerConfig(ctx context.Context, tenantID string, cfg map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.optCfg[tenantID] = cfg
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }
