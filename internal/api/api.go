// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/acrewise/acrewise/internal/config"
	"github.com/acrewise/acrewise/internal/infrastructure"
	"github.com/acrewise/acrewise/pkg/middleware"
	"github.com/acrewise/acrewise/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// The pipeline worker pool is registered with the lifecycle coordinator so
// workers stop with the rest of the service.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(cfg, runtime)

	if err := domain.Pipeline.Start(runtime.Lifecycle); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg, runtime)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Tenant(infra.Verifier, cfg.Auth.OwnerClaim, cfg.Auth.DevOwner, runtime.Logger))
	m.Use(middleware.Logger(runtime.Logger))

	return m, nil
}
