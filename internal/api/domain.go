package api

import (
	"github.com/acrewise/acrewise/internal/classify"
	"github.com/acrewise/acrewise/internal/config"
	"github.com/acrewise/acrewise/internal/documents"
	"github.com/acrewise/acrewise/internal/extract"
	"github.com/acrewise/acrewise/internal/hitl"
	"github.com/acrewise/acrewise/internal/pipeline"
	"github.com/acrewise/acrewise/internal/policy"
	"github.com/acrewise/acrewise/internal/workflows"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Documents documents.System
	Workflows workflows.System
	Reviews   hitl.System
	Pipeline  pipeline.System
}

// NewDomain creates all domain systems from the API runtime. The review
// gateway receives the pipeline as its finalizer so resolved reviews flow
// back into document finalization.
func NewDomain(cfg *config.Config, runtime *Runtime) *Domain {
	db := runtime.Database.Connection()

	docsSystem := documents.New(
		db,
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	engine := workflows.NewEngine(
		workflows.NewPostgresStore(db),
		runtime.Logger,
		pipeline.Definition(),
	)

	reviews := hitl.NewGateway(
		hitl.NewPostgresStore(db),
		engine,
		runtime.Logger,
	)

	reviewPolicy := policy.New(cfg.Pipeline.Policy(), runtime.Logger)

	pipe := pipeline.New(
		cfg.Pipeline.Settings(),
		docsSystem,
		classify.NewKeywordClassifier(),
		extract.NewRegistry(),
		reviewPolicy,
		engine,
		reviews,
		runtime.Logger,
	)
	reviews.SetFinalizer(pipe)

	return &Domain{
		Documents: docsSystem,
		Workflows: engine,
		Reviews:   reviews,
		Pipeline:  pipe,
	}
}
