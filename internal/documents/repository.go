package documents

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/acrewise/acrewise/internal/extract"
	"github.com/acrewise/acrewise/pkg/pagination"
	"github.com/acrewise/acrewise/pkg/query"
	"github.com/acrewise/acrewise/pkg/repository"
	"github.com/acrewise/acrewise/pkg/storage"
)

const documentColumns = `id, owner_id, project_id, filename, content_type, size_bytes, page_count,
	storage_key, status, category, classification_confidence, extracted_data,
	extraction_confidence, requires_review, review_reasons, failure_reason, uploaded_at, updated_at`

type repo struct {
	db         *sql.DB
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a document repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		logger:     logger.With("system", "documents"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxUploadSize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxUploadSize)
}

func (r *repo) List(
	ctx context.Context,
	owner string,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Document], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("OwnerID", owner).
		WhereSearch(page.Search, "Filename", "Category")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	docs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	result := pagination.NewPageResult(docs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, owner string, id uuid.UUID) (*Document, error) {
	q, args := query.NewBuilder(projection).
		WhereEquals("ID", id).
		WhereEquals("OwnerID", owner).
		BuildSingleOrNull()

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDocument)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &d, nil
}

func (r *repo) Create(ctx context.Context, owner string, cmd CreateCommand) (*Document, error) {
	id := uuid.New()
	key := buildStorageKey(owner, id, sanitizeFilename(cmd.Filename))

	if err := r.storage.Upload(ctx, key, bytes.NewReader(cmd.Data), cmd.ContentType); err != nil {
		return nil, fmt.Errorf("upload document blob: %w", err)
	}

	q := fmt.Sprintf(`
		INSERT INTO documents(id, owner_id, project_id, filename, content_type, size_bytes, page_count, storage_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING %s`, documentColumns)

	insertArgs := []any{
		id,
		owner,
		cmd.ProjectID,
		cmd.Filename,
		cmd.ContentType,
		int64(len(cmd.Data)),
		cmd.PageCount,
		key,
	}

	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Document, error) {
		return repository.QueryOne(ctx, tx, q, insertArgs, scanDocument)
	})

	if err != nil {
		if delErr := r.storage.Delete(ctx, key); delErr != nil {
			r.logger.Warn("compensating blob delete failed", "key", key, "error", delErr)
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("document created", "id", d.ID, "filename", d.Filename)
	return &d, nil
}

func (r *repo) Delete(ctx context.Context, owner string, id uuid.UUID) error {
	doc, err := r.Find(ctx, owner, id)
	if err != nil {
		return err
	}

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM documents WHERE id = $1 AND owner_id = $2",
			id, owner,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if delErr := r.storage.Delete(ctx, doc.StorageKey); delErr != nil {
		r.logger.Warn(
			"blob delete failed after DB delete",
			"key", doc.StorageKey,
			"error", delErr,
		)
	}

	r.logger.Info("document deleted", "id", id)
	return nil
}

func (r *repo) Text(ctx context.Context, owner string, id uuid.UUID) (string, error) {
	doc, err := r.Find(ctx, owner, id)
	if err != nil {
		return "", err
	}

	reader, err := r.storage.Download(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("download document blob: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read document blob: %w", err)
	}

	return string(data), nil
}

func (r *repo) MarkProcessing(ctx context.Context, owner string, id uuid.UUID) error {
	err := repository.ExecExpectOne(ctx, r.db, `
		UPDATE documents
		SET status = $1, failure_reason = NULL, updated_at = now()
		WHERE id = $2 AND owner_id = $3 AND status IN ($4, $5)`,
		StatusProcessing, id, owner,
		StatusUploading, StatusFailed)

	if errors.Is(err, sql.ErrNoRows) {
		if _, findErr := r.Find(ctx, owner, id); findErr != nil {
			return findErr
		}
		return ErrNotProcessable
	}
	return err
}

func (r *repo) ApplyClassification(ctx context.Context, owner string, id uuid.UUID, category string, confidence float64) error {
	err := repository.ExecExpectOne(ctx, r.db, `
		UPDATE documents
		SET category = $1, classification_confidence = $2, updated_at = now()
		WHERE id = $3 AND owner_id = $4`,
		category, confidence, id, owner)

	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}

func (r *repo) ApplyExtraction(ctx context.Context, owner string, id uuid.UUID, data extract.FieldMap, confidence float64) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal extracted data: %w", err)
	}

	err = repository.ExecExpectOne(ctx, r.db, `
		UPDATE documents
		SET extracted_data = $1, extraction_confidence = $2, updated_at = now()
		WHERE id = $3 AND owner_id = $4`,
		encoded, confidence, id, owner)

	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}

func (r *repo) ApplyReview(ctx context.Context, owner string, id uuid.UUID, required bool, reasons []string) error {
	encoded, err := json.Marshal(reasons)
	if err != nil {
		return fmt.Errorf("marshal review reasons: %w", err)
	}

	q := `
		UPDATE documents
		SET requires_review = $1, review_reasons = $2, updated_at = now()
		WHERE id = $3 AND owner_id = $4`
	args := []any{required, encoded, id, owner}

	if required {
		q = `
		UPDATE documents
		SET requires_review = $1, review_reasons = $2, status = $5, updated_at = now()
		WHERE id = $3 AND owner_id = $4`
		args = append(args, StatusReviewRequired)
	}

	err = repository.ExecExpectOne(ctx, r.db, q, args...)
	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}

func (r *repo) ApplyCorrections(ctx context.Context, owner string, id uuid.UUID, data extract.FieldMap) error {
	if len(data) == 0 {
		return nil
	}

	doc, err := r.Find(ctx, owner, id)
	if err != nil {
		return err
	}

	merged := make(extract.FieldMap, len(doc.ExtractedData)+len(data))
	for k, v := range doc.ExtractedData {
		merged[k] = v
	}
	for k, v := range data {
		merged[k] = v
	}

	encoded, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("marshal corrected data: %w", err)
	}

	err = repository.ExecExpectOne(ctx, r.db, `
		UPDATE documents
		SET extracted_data = $1, updated_at = now()
		WHERE id = $2 AND owner_id = $3`,
		encoded, id, owner)

	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}

func (r *repo) Finalize(ctx context.Context, owner string, id uuid.UUID, status string, failureReason *string) error {
	err := repository.ExecExpectOne(ctx, r.db, `
		UPDATE documents
		SET status = $1, failure_reason = $2, updated_at = now()
		WHERE id = $3 AND owner_id = $4`,
		status, failureReason, id, owner)

	if err == nil {
		r.logger.Info("document finalized", "id", id, "status", status)
	}

	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}

func buildStorageKey(owner string, id uuid.UUID, filename string) string {
	return fmt.Sprintf("documents/%s/%s/%s", owner, id, filename)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == "" {
		name = "document"
	}
	return url.PathEscape(name)
}
