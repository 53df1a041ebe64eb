package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"canvassplan/internal/config"
	"canvassplan/internal/opt"
	"canvassplan/internal/store"
)

type Server struct {
	Store  store.Store
	Broker EventBroker
	Config config.Config

	limMu    sync.Mutex
	limiters map[string]*rate.Limiter // tenant -> limiter
}

// NewServer creates a Server. If DATABASE_URL is unset, uses in-memory store.
func NewServer(cfg config.Config) (*Server, error) {
	var s store.Store
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		s = store.NewMemory()
	} else {
		driver := cfg.DBDriver
		if driver == "" {
			driver = config.DriverFor(cfg.DatabaseURL)
		}
		sq, err := store.Open(driver, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if cfg.DBMigrate {
			if err := sq.Migrate(context.Background()); err != nil {
				_ = sq.Close()
				return nil, err
			}
		}
		s = sq
	}
	// Broker selection
	var broker EventBroker = NewBroker()
	if cfg.RedisURL != "" {
		if rb, err := NewRedisBroker(cfg.RedisURL); err == nil {
			broker = rb
		} else {
			log.Printf("[api] redis broker unavailable, using in-memory: %v", err)
		}
	}
	return &Server{Store: s, Broker: broker, Config: cfg, limiters: map[string]*rate.Limiter{}}, nil
}

func (s *Server) withTenant(r *http.Request) (context.Context, string) {
	tenant := s.getPrincipal(r).Tenant
	ctx := context.WithValue(r.Context(), ctxKeyTenant{}, tenant)
	return ctx, tenant
}

type ctxKeyTenant struct{}

// tuningFor overlays the tenant's stored optimizer config on the process
// tuning.
func (s *Server) tuningFor(ctx context.Context, tenant string) (opt.Tuning, error) {
	base := s.Config.Tuning
	if base == (opt.Tuning{}) {
		base = opt.DefaultTuning()
	}
	cfg, err := s.Store.GetOptimizerConfig(ctx, tenant)
	if err != nil {
		return base, fmt.Errorf("load optimizer config: %w", err)
	}
	return base.Merge(cfg)
}

// limiterFor returns the tenant's token bucket, or nil when rate limiting is
// off.
func (s *Server) limiterFor(tenant string) *rate.Limiter {
	if s.Config.RateRPS <= 0 {
		return nil
	}
	s.limMu.Lock()
	defer s.limMu.Unlock()
	if s.limiters == nil {
		s.limiters = map[string]*rate.Limiter{}
	}
	l := s.limiters[tenant]
	if l == nil {
		burst := s.Config.RateBurst
		if burst < 1 {
			burst = 1
		}
		l = rate.NewLimiter(rate.Limit(s.Config.RateRPS), burst)
		s.limiters[tenant] = l
	}
	return l
}

// Routes wires every endpoint behind the logging, metrics and rate limit
// middleware.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Core planning
	mux.HandleFunc("/v1/route-order", s.RouteOrderHandler)
	mux.HandleFunc("/v1/day-assignments", s.DayAssignmentsHandler)
	mux.HandleFunc("/v1/households", s.HouseholdsHandler)

	// Plans
	mux.HandleFunc("/v1/plans", s.PlansHandler)
	mux.HandleFunc("/v1/plans/ws", s.PlanWSHandler)
	mux.HandleFunc("/v1/plans/", s.PlanByIDHandler) // includes /geojson, /events/stream

	// Optimizer config
	mux.HandleFunc("/v1/optimizer/config", s.OptimizerConfigHandler)
	mux.HandleFunc("/v1/admin/optimizer/config", s.AdminOptimizerConfigHandler)
	mux.HandleFunc("/v1/admin/plan-metrics", s.PlanMetricsHandler)

	// Health
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)
	mux.HandleFunc("/debug/vars", s.DebugJSON)
	mux.Handle("/metrics", metricsHandler())

	return logMiddleware(metricsMiddleware(s.rateLimitMiddleware(mux)))
}
