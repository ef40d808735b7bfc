package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-engine/internal/domain"
)

// AgentRepository is the AgentDirectory collaborator: agents with
// availability, skills, and capacity.
type AgentRepository interface {
	Create(ctx context.Context, agent *domain.Agent) error
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	// FindAvailable returns agents with is_available=true, oldest first.
	// The stable ordering matters: the assignment selector breaks score ties
	// by input position.
	FindAvailable(ctx context.Context) ([]domain.Agent, error)
	List(ctx context.Context) ([]domain.Agent, error)
	SetAvailability(ctx context.Context, id string, available bool) error
}

type agentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository instantiates repository.
func NewAgentRepository(pool *pgxpool.Pool) AgentRepository {
	return &agentRepository{pool: pool}
}

const agentColumns = `id, name, email, is_available, skills, ticket_capacity, created_at, updated_at`

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	const query = `
        INSERT INTO agents (name, email, is_available, skills, ticket_capacity)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		agent.Name,
		agent.Email,
		agent.IsAvailable,
		agent.Skills,
		agent.TicketCapacity,
	).Scan(&agent.ID, &agent.CreatedAt, &agent.UpdatedAt)
}

func (r *agentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	query := "SELECT " + agentColumns + " FROM agents WHERE id=$1"
	var agent domain.Agent
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&agent.ID,
		&agent.Name,
		&agent.Email,
		&agent.IsAvailable,
		&agent.Skills,
		&agent.TicketCapacity,
		&agent.CreatedAt,
		&agent.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *agentRepository) FindAvailable(ctx context.Context) ([]domain.Agent, error) {
	query := "SELECT " + agentColumns + " FROM agents WHERE is_available ORDER BY created_at ASC"
	return r.list(ctx, query)
}

func (r *agentRepository) List(ctx context.Context) ([]domain.Agent, error) {
	query := "SELECT " + agentColumns + " FROM agents ORDER BY created_at ASC"
	return r.list(ctx, query)
}

func (r *agentRepository) list(ctx context.Context, query string) ([]domain.Agent, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	agents := []domain.Agent{}
	for rows.Next() {
		var agent domain.Agent
		if err := rows.Scan(
			&agent.ID,
			&agent.Name,
			&agent.Email,
			&agent.IsAvailable,
			&agent.Skills,
			&agent.TicketCapacity,
			&agent.CreatedAt,
			&agent.UpdatedAt,
		); err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}
	return agents, rows.Err()
}

func (r *agentRepository) SetAvailability(ctx context.Context, id string, available bool) error {
	cmd, err := r.pool.Exec(ctx,
		"UPDATE agents SET is_available=$1, updated_at=NOW() WHERE id=$2", available, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
