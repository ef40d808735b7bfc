package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-engine/internal/domain"
)

// WorkflowRepository is the WorkflowTable collaborator: declarative rules the
// engine reads during execution.
type WorkflowRepository interface {
	Create(ctx context.Context, workflow *domain.Workflow) error
	Update(ctx context.Context, workflow *domain.Workflow) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Workflow, error)
	// FindActiveByTrigger returns active rules for the trigger ordered by
	// priority ascending, creation order breaking ties. Lower priority runs
	// first.
	FindActiveByTrigger(ctx context.Context, trigger domain.WorkflowTrigger) ([]domain.Workflow, error)
	List(ctx context.Context) ([]domain.Workflow, error)
}

type workflowRepository struct {
	pool *pgxpool.Pool
}

// NewWorkflowRepository instantiates repository.
func NewWorkflowRepository(pool *pgxpool.Pool) WorkflowRepository {
	return &workflowRepository{pool: pool}
}

const workflowColumns = `id, name, description, is_active, trigger, conditions, actions,
               priority, created_at, updated_at`

func (r *workflowRepository) Create(ctx context.Context, workflow *domain.Workflow) error {
	conditions, actions, err := marshalRule(workflow)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO workflows (name, description, is_active, trigger, conditions, actions, priority)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		workflow.Name,
		workflow.Description,
		workflow.IsActive,
		workflow.Trigger,
		conditions,
		actions,
		workflow.Priority,
	).Scan(&workflow.ID, &workflow.CreatedAt, &workflow.UpdatedAt)
}

func (r *workflowRepository) Update(ctx context.Context, workflow *domain.Workflow) error {
	conditions, actions, err := marshalRule(workflow)
	if err != nil {
		return err
	}
	const query = `
        UPDATE workflows SET name=$1, description=$2, is_active=$3, trigger=$4,
            conditions=$5, actions=$6, priority=$7, updated_at=NOW()
        WHERE id=$8`
	cmd, err := r.pool.Exec(ctx, query,
		workflow.Name,
		workflow.Description,
		workflow.IsActive,
		workflow.Trigger,
		conditions,
		actions,
		workflow.Priority,
		workflow.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *workflowRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, "DELETE FROM workflows WHERE id=$1", id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *workflowRepository) GetByID(ctx context.Context, id string) (*domain.Workflow, error) {
	query := "SELECT " + workflowColumns + " FROM workflows WHERE id=$1"
	row := r.pool.QueryRow(ctx, query, id)
	return scanWorkflow(row)
}

func (r *workflowRepository) FindActiveByTrigger(ctx context.Context, trigger domain.WorkflowTrigger) ([]domain.Workflow, error) {
	query := "SELECT " + workflowColumns + ` FROM workflows
        WHERE is_active AND trigger=$1
        ORDER BY priority ASC, created_at ASC`
	return r.listQuery(ctx, query, trigger)
}

func (r *workflowRepository) List(ctx context.Context) ([]domain.Workflow, error) {
	query := "SELECT " + workflowColumns + " FROM workflows ORDER BY priority ASC, created_at DESC"
	return r.listQuery(ctx, query)
}

func (r *workflowRepository) listQuery(ctx context.Context, query string, args ...any) ([]domain.Workflow, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workflows := []domain.Workflow{}
	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, *workflow)
	}
	return workflows, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*domain.Workflow, error) {
	var (
		workflow   domain.Workflow
		conditions []byte
		actions    []byte
	)
	if err := row.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Description,
		&workflow.IsActive,
		&workflow.Trigger,
		&conditions,
		&actions,
		&workflow.Priority,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(conditions) > 0 {
		if err := json.Unmarshal(conditions, &workflow.Conditions); err != nil {
			return nil, fmt.Errorf("decode workflow conditions: %w", err)
		}
	}
	if len(actions) > 0 {
		if err := json.Unmarshal(actions, &workflow.Actions); err != nil {
			return nil, fmt.Errorf("decode workflow actions: %w", err)
		}
	}
	return &workflow, nil
}

func marshalRule(workflow *domain.Workflow) ([]byte, []byte, error) {
	conditions := workflow.Conditions
	if conditions == nil {
		conditions = []domain.WorkflowCondition{}
	}
	actions := workflow.Actions
	if actions == nil {
		actions = []domain.WorkflowAction{}
	}
	condJSON, err := json.Marshal(conditions)
	if err != nil {
		return nil, nil, fmt.Errorf("encode workflow conditions: %w", err)
	}
	actJSON, err := json.Marshal(actions)
	if err != nil {
		return nil, nil, fmt.Errorf("encode workflow actions: %w", err)
	}
	return condJSON, actJSON, nil
}
