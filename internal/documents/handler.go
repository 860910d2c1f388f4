package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"

	"github.com/acrewise/acrewise/pkg/handlers"
	"github.com/acrewise/acrewise/pkg/middleware"
	"github.com/acrewise/acrewise/pkg/pagination"
	"github.com/acrewise/acrewise/pkg/routes"
)

// Handler provides HTTP endpoints for document operations.
type Handler struct {
	sys           System
	logger        *slog.Logger
	pagination    pagination.Config
	maxUploadSize int64
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// NewHandler creates a Handler with the given system, logger, pagination config, and upload size limit.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
	maxUploadSize int64,
) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "documents"),
		pagination:    pagination,
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the route group definition for document endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/documents",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "POST", Pattern: "", Handler: h.Upload},
			{Method: "POST", Pattern: "/batch", Handler: h.Batch},
			{Method: "POST", Pattern: "/search", Handler: h.Search},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete},
		},
	}
}

// List returns a paginated list of documents with optional query parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, middleware.ErrMissingToken)
		return
	}

	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), owner, page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a single document by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, middleware.ErrMissingToken)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}

	doc, err := h.sys.Find(r.Context(), owner, id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, doc)
}

// Search accepts a JSON body with pagination and filter criteria and returns matching documents.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, middleware.ErrMissingToken)
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}

	req.PageRequest.Normalize(h.pagination)

	result, err := h.sys.List(r.Context(), owner, req.PageRequest, req.Filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Upload processes a multipart form upload containing a file and optional
// project assignment. Extracts PDF page count automatically for PDF files
// using pdfcpu.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, middleware.ErrMissingToken)
		return
	}

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, ErrFileTooLarge)
		return
	}

	var projectID *uuid.UUID
	if pid := r.FormValue("project_id"); pid != "" {
		parsed, err := uuid.Parse(pid)
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
			return
		}
		projectID = &parsed
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}

	contentType := detectContentType(header.Header.Get("Content-Type"), data)
	pageCount := extractPDFPageCount(h.logger, data, contentType)

	cmd := CreateCommand{
		Data:        data,
		Filename:    header.Filename,
		ContentType: contentType,
		ProjectID:   projectID,
		PageCount:   pageCount,
	}

	doc, err := h.sys.Create(r.Context(), owner, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, doc)
}

// batchConcurrency bounds concurrent blob uploads within one batch request.
const batchConcurrency = 4

// Batch processes a multipart form upload containing multiple files under the
// "files" field. Files are created concurrently; a failure on one file is
// reported in its result entry without failing the rest of the batch.
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, middleware.ErrMissingToken)
		return
	}

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, ErrFileTooLarge)
		return
	}

	var projectID *uuid.UUID
	if pid := r.FormValue("project_id"); pid != "" {
		parsed, err := uuid.Parse(pid)
		if err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
			return
		}
		projectID = &parsed
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}

	results := make([]BatchResult, len(files))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(batchConcurrency)

	for i, header := range files {
		g.Go(func() error {
			results[i] = h.uploadOne(ctx, owner, projectID, header)
			return nil
		})
	}
	g.Wait()

	handlers.RespondJSON(w, http.StatusOK, results)
}

func (h *Handler) uploadOne(
	ctx context.Context,
	owner string,
	projectID *uuid.UUID,
	header *multipart.FileHeader,
) BatchResult {
	file, err := header.Open()
	if err != nil {
		return BatchResult{Filename: header.Filename, Error: err.Error()}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return BatchResult{Filename: header.Filename, Error: err.Error()}
	}

	contentType := detectContentType(header.Header.Get("Content-Type"), data)

	doc, err := h.sys.Create(ctx, owner, CreateCommand{
		Data:        data,
		Filename:    header.Filename,
		ContentType: contentType,
		ProjectID:   projectID,
		PageCount:   extractPDFPageCount(h.logger, data, contentType),
	})
	if err != nil {
		return BatchResult{Filename: header.Filename, Error: err.Error()}
	}

	return BatchResult{Document: doc, Filename: header.Filename}
}

// Delete removes a document by its UUID path parameter.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, middleware.ErrMissingToken)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidFile)
		return
	}

	if err := h.sys.Delete(r.Context(), owner, id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func detectContentType(header string, data []byte) string {
	header = strings.TrimSpace(header)
	if header != "" && header != "application/octet-stream" {
		return header
	}
	return http.DetectContentType(data)
}

func extractPDFPageCount(logger *slog.Logger, data []byte, contentType string) *int {
	if contentType != "application/pdf" {
		return nil
	}

	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		logger.Warn("failed to extract PDF page count", "error", err)
		return nil
	}

	return &count
}
