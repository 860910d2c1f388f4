package hitl

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/acrewise/acrewise/pkg/pagination"
	"github.com/acrewise/acrewise/pkg/query"
	"github.com/acrewise/acrewise/pkg/repository"
)

// PostgresStore is the database-backed Store. A partial unique index on
// workflow_id over open statuses enforces one open request per workflow;
// resolution is a single conditional UPDATE so concurrent resolvers race
// on the row, not in application code.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Store backed by db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, req Request) error {
	reasons, err := json.Marshal(req.Reasons)
	if err != nil {
		return fmt.Errorf("marshal reasons: %w", err)
	}

	snapshot, err := json.Marshal(req.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO hitl_requests
			(id, owner_id, document_id, workflow_id, urgency, status, reasons, snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		req.ID, req.OwnerID, req.DocumentID, req.WorkflowID,
		req.Urgency, req.Status, reasons, snapshot, req.CreatedAt)

	return repository.MapError(err, ErrNotFound, ErrDuplicatePending)
}

func (s *PostgresStore) Get(ctx context.Context, owner string, id uuid.UUID) (Request, error) {
	builder := query.NewBuilder(requestProjection()).
		WhereEquals("id", id).
		WhereEquals("ownerId", owner)

	sqlText, args := builder.BuildSingleOrNull()

	req, err := repository.QueryOne(ctx, s.db, sqlText, args, scanRequest)
	if err != nil {
		return Request{}, repository.MapError(err, ErrNotFound, ErrDuplicatePending)
	}

	return req, nil
}

func (s *PostgresStore) List(ctx context.Context, owner string, filters Filters, page pagination.PageRequest) (pagination.PageResult[Request], error) {
	var zero pagination.PageResult[Request]

	builder := query.NewBuilder(requestProjection(), queueSort()...).
		WhereEquals("ownerId", owner).
		OrderByFields(page.Sort)

	if filters.Status != nil {
		builder.WhereEquals("status", string(*filters.Status))
	}
	if filters.Urgency != nil {
		builder.WhereEquals("urgency", string(*filters.Urgency))
	}
	if filters.DocumentID != nil {
		builder.WhereEquals("documentId", *filters.DocumentID)
	}

	countSQL, countArgs := builder.BuildCount()
	total, err := repository.QueryOne(ctx, s.db, countSQL, countArgs, scanCount)
	if err != nil {
		return zero, err
	}

	pageSQL, pageArgs := builder.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, s.db, pageSQL, pageArgs, scanRequest)
	if err != nil {
		return zero, err
	}

	return pagination.NewPageResult(items, total, page.Page, page.PageSize), nil
}

func (s *PostgresStore) Resolve(ctx context.Context, owner string, id uuid.UUID, resolution Resolution, resolvedAt time.Time) (Request, error) {
	corrected, err := json.Marshal(resolution.CorrectedData)
	if err != nil {
		return Request{}, fmt.Errorf("marshal corrected data: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE hitl_requests
		SET status = $1, resolved_by = $2, resolution_notes = $3, corrected_data = $4, resolved_at = $5
		WHERE id = $6 AND owner_id = $7 AND status IN ('pending', 'deferred')
		RETURNING id, owner_id, document_id, workflow_id, urgency, status, reasons, snapshot,
			resolved_by, resolution_notes, corrected_data, created_at, resolved_at`,
		resolution.Decision, resolution.Reviewer, resolution.Notes, corrected, resolvedAt,
		id, owner)

	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Request{}, s.classifyResolveFailure(ctx, owner, id)
		}
		return Request{}, err
	}

	return req, nil
}

// classifyResolveFailure distinguishes a missing request from one already
// resolved when the conditional update matched no rows.
func (s *PostgresStore) classifyResolveFailure(ctx context.Context, owner string, id uuid.UUID) error {
	var exists bool
	row := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM hitl_requests WHERE id = $1 AND owner_id = $2)`,
		id, owner)
	if err := row.Scan(&exists); err != nil {
		return err
	}

	if exists {
		return ErrAlreadyResolved
	}
	return ErrNotFound
}

func scanRequest(s repository.Scanner) (Request, error) {
	var (
		req       Request
		reasons   []byte
		snapshot  []byte
		corrected []byte
		resolved  sql.NullString
		notes     sql.NullString
	)

	err := s.Scan(&req.ID, &req.OwnerID, &req.DocumentID, &req.WorkflowID,
		&req.Urgency, &req.Status, &reasons, &snapshot,
		&resolved, &notes, &corrected, &req.CreatedAt, &req.ResolvedAt)
	if err != nil {
		return Request{}, err
	}

	req.ResolvedBy = resolved.String
	req.ResolutionNotes = notes.String

	if err := json.Unmarshal(reasons, &req.Reasons); err != nil {
		return Request{}, fmt.Errorf("unmarshal reasons: %w", err)
	}
	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &req.Snapshot); err != nil {
			return Request{}, fmt.Errorf("unmarshal snapshot: %w", err)
		}
	}
	if len(corrected) > 0 && string(corrected) != "null" {
		if err := json.Unmarshal(corrected, &req.CorrectedData); err != nil {
			return Request{}, fmt.Errorf("unmarshal corrected data: %w", err)
		}
	}

	return req, nil
}

func scanCount(s repository.Scanner) (int, error) {
	var count int
	err := s.Scan(&count)
	return count, err
}
