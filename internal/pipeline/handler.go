package pipeline

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/acrewise/acrewise/pkg/handlers"
	"github.com/acrewise/acrewise/pkg/middleware"
	"github.com/acrewise/acrewise/pkg/routes"
)

// Handler exposes pipeline submission over HTTP.
type Handler struct {
	sys    System
	docs   Documents
	logger *slog.Logger
}

// NewHandler creates the pipeline HTTP handler.
func NewHandler(sys System, docs Documents, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		docs:   docs,
		logger: logger.With("handler", "pipeline"),
	}
}

// Routes returns the route group for pipeline endpoints. The group shares
// the /documents prefix so processing reads as a document sub-resource.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/documents",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/{id}/process", Handler: h.process},
		},
	}
}

type queuedResponse struct {
	DocumentID uuid.UUID `json:"document_id"`
	Status     string    `json:"status"`
}

// process marks the document as processing and hands it to the worker pool.
// Responds 202; results land on the document record asynchronously.
func (h *Handler) process(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, middleware.ErrMissingToken)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid document id: %w", err))
		return
	}

	if err := h.docs.MarkProcessing(r.Context(), owner, id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	if err := h.sys.Enqueue(owner, id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, queuedResponse{
		DocumentID: id,
		Status:     "queued",
	})
}
