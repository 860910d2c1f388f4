package api

import (
	"net/http"

	"github.com/acrewise/acrewise/internal/config"
	"github.com/acrewise/acrewise/internal/hitl"
	"github.com/acrewise/acrewise/internal/workflows"
	"github.com/acrewise/acrewise/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	routes.Register(
		mux,
		domain.Documents.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
		domain.Pipeline.Handler().Routes(),
		workflows.NewHandler(domain.Workflows, runtime.Logger, runtime.Pagination).Routes(),
		hitl.NewHandler(domain.Reviews, runtime.Logger, runtime.Pagination).Routes(),
	)
}
