package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"canvassplan/internal/model"
)

// SQL stores plans as JSON documents in Postgres (driver "pgx") or SQLite
// (driver "sqlite"). Queries are written with ? placeholders and rebound for
// Postgres.
type SQL struct {
	db     *sql.DB
	driver string
}

// Open connects with driver and verifies the connection.
func Open(driver, dsn string) (*SQL, error) {
	if driver != "pgx" && driver != "sqlite" {
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s database: %w", driver, err)
	}
	if driver == "sqlite" {
		// one connection keeps :memory: databases shared and serializes writers
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: verify %s connection: %w", driver, err)
	}
	return &SQL{db: db, driver: driver}, nil
}

func (s *SQL) Close() error { return s.db.Close() }

func (s *SQL) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		plan_date TEXT NOT NULL DEFAULT '',
		mode TEXT NOT NULL,
		total_days INTEGER NOT NULL,
		stops INTEGER NOT NULL,
		total_meters BIGINT NOT NULL,
		created_ns BIGINT NOT NULL,
		doc TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS plans_tenant_created ON plans (tenant_id, created_ns, id)`,
	`CREATE TABLE IF NOT EXISTS plan_metrics (
		tenant_id TEXT NOT NULL,
		plan_date TEXT NOT NULL,
		mode TEXT NOT NULL,
		metrics TEXT NOT NULL,
		updated_ns BIGINT NOT NULL,
		PRIMARY KEY (tenant_id, plan_date, mode)
	)`,
	`CREATE TABLE IF NOT EXISTS optimizer_config (
		tenant_id TEXT PRIMARY KEY,
		config TEXT NOT NULL,
		updated_ns BIGINT NOT NULL
	)`,
}

// Migrate creates the tables when missing. It is safe to run repeatedly.
func (s *SQL) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

// rebind turns ? placeholders into $1..$n for Postgres.
func (s *SQL) rebind(q string) string {
	if s.driver != "pgx" {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQL) SavePlan(ctx context.Context, p model.Plan) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("store: encode plan %s: %w", p.ID, err)
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO plans (id, tenant_id, plan_date, mode, total_days, stops, total_meters, created_ns, doc)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT (id) DO UPDATE SET plan_date=excluded.plan_date, mode=excluded.mode, total_days=excluded.total_days,
		  stops=excluded.stops, total_meters=excluded.total_meters, doc=excluded.doc`),
		p.ID, p.TenantID, p.PlanDate, p.Mode, p.TotalDays, p.StopCount(), p.TotalMeters(), p.CreatedAt.UnixNano(), string(doc))
	if err != nil {
		return fmt.Errorf("store: save plan %s: %w", p.ID, err)
	}
	return nil
}

func (s *SQL) GetPlan(ctx context.Context, tenantID, id string) (model.Plan, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT doc FROM plans WHERE tenant_id=? AND id=?`), tenantID, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Plan{}, ErrNotFound
	}
	if err != nil {
		return model.Plan{}, fmt.Errorf("store: get plan %s: %w", id, err)
	}
	var p model.Plan
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return model.Plan{}, fmt.Errorf("store: decode plan %s: %w", id, err)
	}
	return p, nil
}

// ListPlans pages oldest first. cursor is the id of the last plan of the
// previous page.
func (s *SQL) ListPlans(ctx context.Context, tenantID, cursor string, limit int) ([]model.PlanSummary, string, error) {
	limit = clampLimit(limit)
	q := `SELECT id, plan_date, mode, total_days, stops, total_meters, created_ns FROM plans WHERE tenant_id=?`
	args := []any{tenantID}
	if cursor != "" {
		var ns int64
		err := s.db.QueryRowContext(ctx, s.rebind(`SELECT created_ns FROM plans WHERE tenant_id=? AND id=?`), tenantID, cursor).Scan(&ns)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", ErrInvalidCursor
		}
		if err != nil {
			return nil, "", fmt.Errorf("store: list plans cursor: %w", err)
		}
		q += ` AND (created_ns > ? OR (created_ns = ? AND id > ?))`
		args = append(args, ns, ns, cursor)
	}
	q += ` ORDER BY created_ns, id LIMIT ?`
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, "", fmt.Errorf("store: list plans: %w", err)
	}
	defer rows.Close()
	out := []model.PlanSummary{}
	for rows.Next() {
		var it model.PlanSummary
		var ns int64
		if err := rows.Scan(&it.ID, &it.PlanDate, &it.Mode, &it.TotalDays, &it.Stops, &it.TotalMeters, &ns); err != nil {
			return nil, "", fmt.Errorf("store: list plans: scan: %w", err)
		}
		it.CreatedAt = time.Unix(0, ns).UTC()
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("store: list plans: rows: %w", err)
	}
	next := ""
	if len(out) > limit {
		out = out[:limit]
		next = out[limit-1].ID
	}
	return out, next, nil
}

func (s *SQL) DeletePlan(ctx context.Context, tenantID, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM plans WHERE tenant_id=? AND id=?`), tenantID, id)
	if err != nil {
		return fmt.Errorf("store: delete plan %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQL) SavePlanMetrics(ctx context.Context, tenantID, planDate, mode string, metrics map[string]any) error {
	js, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("store: encode plan metrics: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO plan_metrics (tenant_id, plan_date, mode, metrics, updated_ns) VALUES (?,?,?,?,?)
		ON CONFLICT (tenant_id, plan_date, mode) DO UPDATE SET metrics=excluded.metrics, updated_ns=excluded.updated_ns`),
		tenantID, planDate, mode, string(js), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("store: save plan metrics: %w", err)
	}
	return nil
}

func (s *SQL) ListPlanMetrics(ctx context.Context, tenantID, planDate, mode string) ([]map[string]any, error) {
	q := `SELECT mode, metrics FROM plan_metrics WHERE tenant_id=? AND plan_date=?`
	args := []any{tenantID, planDate}
	if mode != "" {
		q += ` AND mode=?`
		args = append(args, mode)
	}
	q += ` ORDER BY mode`
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("store: list plan metrics: %w", err)
	}
	defer rows.Close()
	out := []map[string]any{}
	for rows.Next() {
		var m, js string
		if err := rows.Scan(&m, &js); err != nil {
			return nil, fmt.Errorf("store: list plan metrics: scan: %w", err)
		}
		item := map[string]any{}
		if err := json.Unmarshal([]byte(js), &item); err != nil {
			return nil, fmt.Errorf("store: decode plan metrics: %w", err)
		}
		item["mode"] = m
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *SQL) GetOptimizerConfig(ctx context.Context, tenantID string) (map[string]any, error) {
	var js string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT config FROM optimizer_config WHERE tenant_id=?`), tenantID).Scan(&js)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get optimizer config: %w", err)
	}
	var cfg map[string]any
	if err := json.Unmarshal([]byte(js), &cfg); err != nil {
		return nil, fmt.Errorf("store: decode optimizer config: %w", err)
	}
	return cfg, nil
}

func (s *SQL) SaveOptimizerConfig(ctx context.Context, tenantID string, cfg map[string]any) error {
	js, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("store: encode optimizer config: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO optimizer_config (tenant_id, config, updated_ns) VALUES (?,?,?)
		ON CONFLICT (tenant_id) DO UPDATE SET config=excluded.config, updated_ns=excluded.updated_ns`),
		tenantID, string(js), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("store: save optimizer config: %w", err)
	}
	return nil
}
