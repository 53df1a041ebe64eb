// Package api implements HTTP handlers and helpers for the canvass planning service.
package api

import (
	"net/http"
	"strings"

	"canvassplan/internal/config"
)

type Principal struct {
	Tenant string
	Role   string // admin, organizer, canvasser
}

// getPrincipal reads tenant and role from headers. Authentication is expected
// to happen in front of this service.
func (s *Server) getPrincipal(r *http.Request) Principal {
	tenant := strings.TrimSpace(r.Header.Get("X-Tenant-Id"))
	role := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Role")))
	if tenant == "" {
		tenant = config.DefaultTenant
	}
	if role == "" {
		role = "admin"
	}
	return Principal{Tenant: tenant, Role: role}
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == "admin" }

// CanPlan reports whether the principal may create or delete plans.
func (p Principal) CanPlan() bool { return p.Role == "admin" || p.Role == "organizer" }
