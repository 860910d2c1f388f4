package workflows

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/acrewise/acrewise/pkg/handlers"
	"github.com/acrewise/acrewise/pkg/middleware"
	"github.com/acrewise/acrewise/pkg/pagination"
	"github.com/acrewise/acrewise/pkg/routes"
)

// Handler exposes workflow instances over HTTP.
type Handler struct {
	system  System
	logger  *slog.Logger
	pageCfg pagination.Config
}

// NewHandler creates the workflow HTTP handler.
func NewHandler(system System, logger *slog.Logger, pageCfg pagination.Config) *Handler {
	return &Handler{
		system:  system,
		logger:  logger.With("handler", "workflows"),
		pageCfg: pageCfg,
	}
}

// Routes returns the route group mounted at /workflows.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/workflows",
		Routes: []routes.Route{
			{Method: http.MethodGet, Pattern: "", Handler: h.list},
			{Method: http.MethodPost, Pattern: "", Handler: h.start},
			{Method: http.MethodGet, Pattern: "/{id}", Handler: h.get},
		},
	}
}

type startRequest struct {
	WorkflowType string         `json:"workflowType"`
	Data         map[string]any `json:"data"`
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, middleware.ErrMissingToken)
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	if req.WorkflowType == "" {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("workflowType is required"))
		return
	}

	inst, err := h.system.Start(r.Context(), owner, req.WorkflowType, req.Data)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, inst)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, middleware.ErrMissingToken)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid workflow id: %w", err))
		return
	}

	inst, err := h.system.Get(r.Context(), owner, id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, inst)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, middleware.ErrMissingToken)
		return
	}

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pageCfg)

	var status *Status
	if s := r.URL.Query().Get("status"); s != "" {
		st := Status(s)
		status = &st
	}

	result, err := h.system.List(r.Context(), owner, status, page)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}
