package hitl

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

// Handler exposes the review queue over HTTP.
type Handler struct {
	system  System
	logger  *slog.Logger
	pageCfg pagination.Config
}

// NewHandler creates the review HTTP handler.
func NewHandler(system System, logger *slog.Logger, pageCfg pagination.Config) *Handler {
	return &Handler{
		system:  system,
		logger:  logger.With("handler", "reviews"),
		pageCfg: pageCfg,
	}
}

// Routes returns the route group mounted at /reviews.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/reviews",
		Routes: []routes.Route{
			{Method: http.MethodGet, Pattern: "", Handler: h.list},
			{Method: http.MethodGet, Pattern: "/{id}", Handler: h.get},
			{Method: http.MethodPost, Pattern: "/{id}/resolve", Handler: h.resolve},
		},
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, middleware.ErrMissingToken)
		return
	}

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pageCfg)
	filters := parseFilters(r)

	result, err := h.system.List(r.Context(), owner, filters, page)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, middleware.ErrMissingToken)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid review id: %w", err))
		return
	}

	req, err := h.system.Get(r.Context(), owner, id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, req)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, middleware.ErrMissingToken)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid review id: %w", err))
		return
	}

	var resolution Resolution
	if err := json.NewDecoder(r.Body).Decode(&resolution); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	req, err := h.system.Resolve(r.Context(), owner, id, resolution)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, req)
}

func parseFilters(r *http.Request) Filters {
	var filters Filters

	if s := r.URL.Query().Get("status"); s != "" {
		status := ReviewStatus(s)
		filters.Status = &status
	}
	if u := r.URL.Query().Get("urgency"); u != "" {
		urgency := Urgency(u)
		filters.Urgency = &urgency
	}
	if d := r.URL.Query().Get("document_id"); d != "" {
		if id, err := uuid.Parse(d); err == nil {
			filters.DocumentID = &id
		}
	}

	return filters
}
