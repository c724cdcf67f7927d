package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opsapi-io/opsapi/internal/audit"
	"github.com/opsapi-io/opsapi/internal/auth"
	"github.com/opsapi-io/opsapi/internal/authz"
	"github.com/opsapi-io/opsapi/internal/platform/config"
	"github.com/opsapi-io/opsapi/internal/platform/database"
	"github.com/opsapi-io/opsapi/internal/platform/server"
	"github.com/opsapi-io/opsapi/internal/platform/telemetry"
	"github.com/opsapi-io/opsapi/internal/tenant"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logging
	logger := telemetry.NewLogger(cfg.Log.Level, cfg.Log.Format)
	telemetry.SetDefault(logger)

	slog.Info("opsapi starting",
		"version", "0.3.0",
		"port", cfg.Server.Port,
	)

	// Connect to database
	ctx := context.Background()

	if cfg.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}

	slog.Info("connecting to database")
	pool, err := database.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	// Run migrations
	migrationsURL := fmt.Sprintf("file://%s", cfg.Database.MigrationsPath)
	if err := database.RunMigrations(cfg.Database.URL, migrationsURL); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("migrations complete")

	// Stores
	tenantStore := tenant.NewStore(pool)
	roleStore := tenant.NewRoleStore(pool)
	memberStore := tenant.NewMembershipStore(pool, roleStore)

	// Audit
	auditStore := audit.NewStore()
	auditLogger := audit.NewAsyncLogger(pool, auditStore, audit.LoggerConfig{
		BufferSize:    cfg.Audit.BufferSize,
		BatchSize:     cfg.Audit.BatchSize,
		FlushInterval: time.Duration(cfg.Audit.FlushInterval) * time.Millisecond,
	})
	defer auditLogger.Close()
	slog.Info("audit logger started")

	// Authorization pipeline
	verifier := auth.NewVerifier(cfg.Auth.JWT.SigningKey, cfg.Auth.JWT.Issuer)
	resolver := tenant.NewResolver(tenantStore, cfg.Server.ReservedSubdomains)
	authorizer := authz.NewAuthorizer(verifier, resolver, memberStore,
		authz.WithAuditLogger(auditLogger),
	)

	// Create and start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := server.New(addr, server.Dependencies{
		Pool:               pool,
		Authorizer:         authorizer,
		TenantHandler:      tenant.NewHandler(tenantStore, auditLogger),
		MemberHandler:      tenant.NewMemberHandler(memberStore, auditLogger),
		RoleHandler:        tenant.NewRoleHandler(roleStore, memberStore, auditLogger),
		Logger:             logger,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
	})

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return srv.Start(ctx)
}
