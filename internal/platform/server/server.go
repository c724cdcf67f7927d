package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opsapi-io/opsapi/internal/authz"
	"github.com/opsapi-io/opsapi/internal/platform/middleware"
	"github.com/opsapi-io/opsapi/internal/tenant"
)

// Dependencies holds all injected dependencies for the server.
type Dependencies struct {
	Pool               *pgxpool.Pool
	Authorizer         *authz.Authorizer
	TenantHandler      *tenant.Handler
	MemberHandler      *tenant.MemberHandler
	RoleHandler        *tenant.RoleHandler
	Logger             *slog.Logger
	CORSAllowedOrigins []string
}

type Server struct {
	httpServer *http.Server
	pool       *pgxpool.Pool
	handler    http.Handler
}

// New builds the route table. Each route is wrapped in exactly the
// policy its sensitivity demands; the policies themselves come from the
// Authorizer.
func New(addr string, deps Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		pool: deps.Pool,
	}

	// Public routes (no auth required)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReadiness)

	az := deps.Authorizer

	// Caller's own access context
	if az != nil {
		mux.Handle("GET /api/v1/me", az.RequireTenant(http.HandlerFunc(authz.HandleMe)))
	}

	// Tenant routes. Provisioning and listing are platform-operator
	// surface; the current-tenant routes are scoped by resolution.
	if deps.TenantHandler != nil && az != nil {
		mux.Handle("POST /api/v1/tenants",
			az.RequirePlatformAdmin(http.HandlerFunc(deps.TenantHandler.HandleCreate)),
		)
		mux.Handle("GET /api/v1/tenants",
			az.RequirePlatformAdmin(http.HandlerFunc(deps.TenantHandler.HandleList)),
		)
		mux.Handle("GET /api/v1/tenants/{id}",
			az.RequirePlatformAdmin(http.HandlerFunc(deps.TenantHandler.HandleGet)),
		)
		mux.Handle("GET /api/v1/tenants/current",
			az.OptionalTenant(http.HandlerFunc(deps.TenantHandler.HandleCurrent)),
		)
		mux.Handle("DELETE /api/v1/tenants/current",
			az.RequireOwner(http.HandlerFunc(deps.TenantHandler.HandleArchive)),
		)
	}

	// Member routes (tenant-scoped, permission-gated)
	if deps.MemberHandler != nil && az != nil {
		mux.Handle("GET /api/v1/members",
			az.RequirePermission("members", "read")(http.HandlerFunc(deps.MemberHandler.HandleList)),
		)
		mux.Handle("POST /api/v1/members",
			az.RequirePermission("members", "invite")(http.HandlerFunc(deps.MemberHandler.HandleInvite)),
		)
		mux.Handle("PATCH /api/v1/members/{id}",
			az.RequirePermission("members", "update")(http.HandlerFunc(deps.MemberHandler.HandleUpdateStatus)),
		)
	}

	// Role routes (tenant-scoped, admin only)
	if deps.RoleHandler != nil && az != nil {
		mux.Handle("GET /api/v1/roles",
			az.RequirePermission("members", "read")(http.HandlerFunc(deps.RoleHandler.HandleList)),
		)
		mux.Handle("POST /api/v1/roles",
			az.RequireAdmin(http.HandlerFunc(deps.RoleHandler.HandleCreate)),
		)
		mux.Handle("DELETE /api/v1/roles/{id}",
			az.RequireAdmin(http.HandlerFunc(deps.RoleHandler.HandleDelete)),
		)
		mux.Handle("POST /api/v1/members/{id}/roles",
			az.RequireAdmin(http.HandlerFunc(deps.RoleHandler.HandleAssign)),
		)
		mux.Handle("DELETE /api/v1/members/{id}/roles/{roleID}",
			az.RequireAdmin(http.HandlerFunc(deps.RoleHandler.HandleUnassign)),
		)
	}

	// Wrap with observability middleware
	var handler http.Handler = mux
	if deps.Logger != nil {
		handler = middleware.Logging(deps.Logger)(handler)
	}
	handler = middleware.RequestID(handler)
	if len(deps.CORSAllowedOrigins) > 0 {
		handler = middleware.CORS(deps.CORSAllowedOrigins)(handler)
	}

	s.handler = handler
	s.httpServer.Handler = handler
	return s
}

// Handler returns the full middleware-wrapped handler chain (for testing).
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	listener, err := lc.Listen(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}

	slog.Info("server starting", "addr", listener.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if s.pool == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database not connected",
		})
		return
	}

	if err := s.pool.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database ping failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
