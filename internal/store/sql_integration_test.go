//go:build postgres_integration

package store

import (
	"os"
	"testing"
)

func TestPostgresConnectivityAndMigrate(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}
	s, err := Open("pgx", dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if err := s.Ping(t.Context()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := s.Migrate(t.Context()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	p := samplePlan("t_integration", 1)
	p.ID = "plan_integration_" + t.Name()
	if err := s.SavePlan(t.Context(), p); err != nil {
		t.Fatalf("SavePlan: %v", err)
	}
	defer s.DeletePlan(t.Context(), p.TenantID, p.ID)
	if _, _, err := s.ListPlans(t.Context(), "t_integration", "", 1); err != nil {
		t.Fatalf("ListPlans: %v", err)
	}
}
