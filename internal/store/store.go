package store

import (
	"context"
	"errors"

	"canvassplan/internal/model"
)

// Store is the persistence interface used by the API server.
type Store interface {
	// Plans
	SavePlan(ctx context.Context, p model.Plan) error
	GetPlan(ctx context.Context, tenantID, id string) (model.Plan, error)
	ListPlans(ctx context.Context, tenantID, cursor string, limit int) (items []model.PlanSummary, nextCursor string, err error)
	DeletePlan(ctx context.Context, tenantID, id string) error

	// Metrics
	SavePlanMetrics(ctx context.Context, tenantID, planDate, mode string, metrics map[string]any) error
	ListPlanMetrics(ctx context.Context, tenantID, planDate, mode string) ([]map[string]any, error)

	// Optimizer config per tenant
	GetOptimizerConfig(ctx context.Context, tenantID string) (map[string]any, error)
	SaveOptimizerConfig(ctx context.Context, tenantID string, cfg map[string]any) error

	Ping(ctx context.Context) error
}

var ErrNotFound = errors.New("not found")

// ErrInvalidCursor is returned by ListPlans when the cursor does not name a
// plan of the tenant, for instance because that plan was deleted.
var ErrInvalidCursor = errors.New("invalid cursor")

const (
	defaultLimit = 100
	maxLimit     = 500
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
