package workflows

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/acrewise/acrewise/pkg/pagination"
	"github.com/acrewise/acrewise/pkg/query"
	"github.com/acrewise/acrewise/pkg/repository"
)

// PostgresStore is the database-backed Store. Instances live in
// workflow_instances; history lives in workflow_transitions keyed by
// (instance_id, seq) where seq matches the instance version that produced
// the entry.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Store backed by db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, inst Instance) error {
	_, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (struct{}, error) {
		data, err := json.Marshal(inst.Data)
		if err != nil {
			return struct{}{}, fmt.Errorf("marshal instance data: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO workflow_instances
				(id, owner_id, workflow_type, status, current_node, data, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			inst.ID, inst.OwnerID, inst.WorkflowType, inst.Status,
			inst.CurrentNode, data, inst.Version, inst.CreatedAt, inst.UpdatedAt)
		if err != nil {
			return struct{}{}, err
		}

		return struct{}{}, s.insertTransitions(ctx, tx, inst, 0)
	})

	return repository.MapError(err, ErrNotFound, ErrDuplicateID)
}

func (s *PostgresStore) Get(ctx context.Context, owner string, id uuid.UUID) (Instance, error) {
	builder := query.NewBuilder(instanceProjection()).
		WhereEquals("id", id).
		WhereEquals("ownerId", owner)

	sqlText, args := builder.BuildSingleOrNull()

	inst, err := repository.QueryOne(ctx, s.db, sqlText, args, scanInstance)
	if err != nil {
		return Instance{}, repository.MapError(err, ErrNotFound, ErrDuplicateID)
	}

	history, err := s.loadHistory(ctx, inst.ID)
	if err != nil {
		return Instance{}, err
	}
	inst.History = history

	return inst, nil
}

func (s *PostgresStore) List(ctx context.Context, owner string, status *Status, page pagination.PageRequest) (pagination.PageResult[Instance], error) {
	var zero pagination.PageResult[Instance]

	builder := query.NewBuilder(instanceProjection(), defaultSort()...).
		WhereEquals("ownerId", owner).
		OrderByFields(page.Sort)

	if status != nil {
		builder.WhereEquals("status", string(*status))
	}

	countSQL, countArgs := builder.BuildCount()
	total, err := repository.QueryOne(ctx, s.db, countSQL, countArgs, scanCount)
	if err != nil {
		return zero, err
	}

	pageSQL, pageArgs := builder.BuildPage(page.Page, page.PageSize)
	instances, err := repository.QueryMany(ctx, s.db, pageSQL, pageArgs, scanInstance)
	if err != nil {
		return zero, err
	}

	for i := range instances {
		history, err := s.loadHistory(ctx, instances[i].ID)
		if err != nil {
			return zero, err
		}
		instances[i].History = history
	}

	return pagination.NewPageResult(instances, total, page.Page, page.PageSize), nil
}

func (s *PostgresStore) Save(ctx context.Context, inst Instance, expectedVersion int) error {
	_, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (struct{}, error) {
		data, err := json.Marshal(inst.Data)
		if err != nil {
			return struct{}{}, fmt.Errorf("marshal instance data: %w", err)
		}

		err = repository.ExecExpectOne(ctx, tx, `
			UPDATE workflow_instances
			SET status = $1, current_node = $2, data = $3, version = $4, updated_at = $5
			WHERE id = $6 AND owner_id = $7 AND version = $8`,
			inst.Status, inst.CurrentNode, data, inst.Version, inst.UpdatedAt,
			inst.ID, inst.OwnerID, expectedVersion)
		if err != nil {
			return struct{}{}, s.classifySaveFailure(ctx, tx, inst, err)
		}

		return struct{}{}, s.insertTransitions(ctx, tx, inst, expectedVersion)
	})

	return err
}

// classifySaveFailure distinguishes a missing instance from a version
// conflict when the optimistic update matched no rows.
func (s *PostgresStore) classifySaveFailure(ctx context.Context, tx *sql.Tx, inst Instance, err error) error {
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	var exists bool
	row := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM workflow_instances WHERE id = $1 AND owner_id = $2)`,
		inst.ID, inst.OwnerID)
	if scanErr := row.Scan(&exists); scanErr != nil {
		return scanErr
	}

	if exists {
		return ErrVersionConflict
	}
	return ErrNotFound
}

// insertTransitions persists history entries after fromVersion. Seq is the
// 1-based history position, so entry i gets seq i+1.
func (s *PostgresStore) insertTransitions(ctx context.Context, tx *sql.Tx, inst Instance, fromVersion int) error {
	for i := fromVersion; i < len(inst.History); i++ {
		t := inst.History[i]

		data, err := json.Marshal(t.Data)
		if err != nil {
			return fmt.Errorf("marshal transition data: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO workflow_transitions (instance_id, seq, node, status, data, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			inst.ID, i+1, t.Node, t.Status, data, t.Timestamp)
		if err != nil {
			return repository.MapError(err, ErrNotFound, ErrVersionConflict)
		}
	}

	return nil
}

func (s *PostgresStore) loadHistory(ctx context.Context, id uuid.UUID) ([]Transition, error) {
	return repository.QueryMany(ctx, s.db, `
		SELECT node, status, data, created_at
		FROM workflow_transitions
		WHERE instance_id = $1
		ORDER BY seq`,
		[]any{id}, scanTransition)
}

func scanInstance(s repository.Scanner) (Instance, error) {
	var (
		inst Instance
		data []byte
	)

	err := s.Scan(&inst.ID, &inst.OwnerID, &inst.WorkflowType, &inst.Status,
		&inst.CurrentNode, &data, &inst.Version, &inst.CreatedAt, &inst.UpdatedAt)
	if err != nil {
		return Instance{}, err
	}

	if err := json.Unmarshal(data, &inst.Data); err != nil {
		return Instance{}, fmt.Errorf("unmarshal instance data: %w", err)
	}

	return inst, nil
}

func scanTransition(s repository.Scanner) (Transition, error) {
	var (
		t    Transition
		data []byte
	)

	if err := s.Scan(&t.Node, &t.Status, &data, &t.Timestamp); err != nil {
		return Transition{}, err
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &t.Data); err != nil {
			return Transition{}, fmt.Errorf("unmarshal transition data: %w", err)
		}
	}

	return t, nil
}

func scanCount(s repository.Scanner) (int, error) {
	var count int
	err := s.Scan(&count)
	return count, err
}
