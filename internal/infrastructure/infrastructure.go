// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, database, storage, token verification)
// that domain systems require.
package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/acrewise/acrewise/internal/config"
	"github.com/acrewise/acrewise/pkg/database"
	"github.com/acrewise/acrewise/pkg/lifecycle"
	"github.com/acrewise/acrewise/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// It provides a single point of initialization for lifecycle coordination,
// logging, database access, file storage, and tenant token verification.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System

	// Verifier validates bearer tokens for the tenant middleware. Nil when
	// auth is disabled; requests are then attributed to the dev owner.
	Verifier *oidc.IDTokenVerifier
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	verifier, err := newVerifier(lc.Context(), &cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("auth init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Verifier:  verifier,
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
// Database and storage hooks are registered for startup and shutdown coordination.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	return nil
}

// newVerifier discovers the OIDC provider and builds a token verifier for the
// configured audience. Returns nil when auth is disabled.
func newVerifier(ctx context.Context, cfg *config.AuthConfig) (*oidc.IDTokenVerifier, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("discover oidc provider %s: %w", cfg.Issuer, err)
	}

	return provider.Verifier(&oidc.Config{ClientID: cfg.Audience}), nil
}
