package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-engine/internal/domain"
)

// SlaPolicyRepository is the SlaPolicyTable collaborator: admin-editable
// priority -> time-budget rows.
type SlaPolicyRepository interface {
	Create(ctx context.Context, policy *domain.SlaPolicy) error
	Update(ctx context.Context, policy *domain.SlaPolicy) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.SlaPolicy, error)
	// FindByPriority returns the single active policy for the priority, or
	// nil when none exists.
	FindByPriority(ctx context.Context, priority domain.TicketPriority) (*domain.SlaPolicy, error)
	List(ctx context.Context) ([]domain.SlaPolicy, error)
	Count(ctx context.Context) (int, error)
}

type slaPolicyRepository struct {
	pool *pgxpool.Pool
}

// NewSlaPolicyRepository instantiates repository.
func NewSlaPolicyRepository(pool *pgxpool.Pool) SlaPolicyRepository {
	return &slaPolicyRepository{pool: pool}
}

const slaPolicyColumns = `id, name, description, priority, response_time_hours,
               resolution_time_hours, is_active, notify_on_breach, escalation_email,
               created_at, updated_at`

func (r *slaPolicyRepository) Create(ctx context.Context, policy *domain.SlaPolicy) error {
	const query = `
        INSERT INTO sla_policies (name, description, priority, response_time_hours,
                                  resolution_time_hours, is_active, notify_on_breach, escalation_email)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		policy.Name,
		policy.Description,
		policy.Priority,
		policy.ResponseTimeHours,
		policy.ResolutionTimeHours,
		policy.IsActive,
		policy.NotifyOnBreach,
		policy.EscalationEmail,
	).Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt)
}

func (r *slaPolicyRepository) Update(ctx context.Context, policy *domain.SlaPolicy) error {
	const query = `
        UPDATE sla_policies SET name=$1, description=$2, priority=$3, response_time_hours=$4,
            resolution_time_hours=$5, is_active=$6, notify_on_breach=$7, escalation_email=$8,
            updated_at=NOW()
        WHERE id=$9`
	cmd, err := r.pool.Exec(ctx, query,
		policy.Name,
		policy.Description,
		policy.Priority,
		policy.ResponseTimeHours,
		policy.ResolutionTimeHours,
		policy.IsActive,
		policy.NotifyOnBreach,
		policy.EscalationEmail,
		policy.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *slaPolicyRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, "DELETE FROM sla_policies WHERE id=$1", id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *slaPolicyRepository) GetByID(ctx context.Context, id string) (*domain.SlaPolicy, error) {
	query := "SELECT " + slaPolicyColumns + " FROM sla_policies WHERE id=$1"
	return r.fetchSingle(ctx, query, id)
}

func (r *slaPolicyRepository) FindByPriority(ctx context.Context, priority domain.TicketPriority) (*domain.SlaPolicy, error) {
	query := "SELECT " + slaPolicyColumns + " FROM sla_policies WHERE priority=$1 AND is_active"
	policy, err := r.fetchSingle(ctx, query, priority)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return policy, err
}

func (r *slaPolicyRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.SlaPolicy, error) {
	var policy domain.SlaPolicy
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&policy.ID,
		&policy.Name,
		&policy.Description,
		&policy.Priority,
		&policy.ResponseTimeHours,
		&policy.ResolutionTimeHours,
		&policy.IsActive,
		&policy.NotifyOnBreach,
		&policy.EscalationEmail,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *slaPolicyRepository) List(ctx context.Context) ([]domain.SlaPolicy, error) {
	query := "SELECT " + slaPolicyColumns + " FROM sla_policies ORDER BY priority ASC"
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	policies := []domain.SlaPolicy{}
	for rows.Next() {
		var policy domain.SlaPolicy
		if err := rows.Scan(
			&policy.ID,
			&policy.Name,
			&policy.Description,
			&policy.Priority,
			&policy.ResponseTimeHours,
			&policy.ResolutionTimeHours,
			&policy.IsActive,
			&policy.NotifyOnBreach,
			&policy.EscalationEmail,
			&policy.CreatedAt,
			&policy.UpdatedAt,
		); err != nil {
			return nil, err
		}
		policies = append(policies, policy)
	}
	return policies, rows.Err()
}

func (r *slaPolicyRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM sla_policies").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// cachedSlaPolicyRepository adds a redis read-through cache on the
// FindByPriority hot path. Cache failures fall back to the base repository;
// writes invalidate the affected priority (and the previous one on update).
type cachedSlaPolicyRepository struct {
	base   SlaPolicyRepository
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewCachedSlaPolicyRepository wraps base with a redis policy cache.
func NewCachedSlaPolicyRepository(base SlaPolicyRepository, client *redis.Client, logger *zap.Logger) SlaPolicyRepository {
	return &cachedSlaPolicyRepository{
		base:   base,
		client: client,
		logger: logger,
		ttl:    5 * time.Minute,
	}
}

func policyCacheKey(priority domain.TicketPriority) string {
	return fmt.Sprintf("sla:policy:%s", priority)
}

func (r *cachedSlaPolicyRepository) FindByPriority(ctx context.Context, priority domain.TicketPriority) (*domain.SlaPolicy, error) {
	if r.client != nil {
		raw, err := r.client.Get(ctx, policyCacheKey(priority)).Bytes()
		if err == nil {
			var policy domain.SlaPolicy
			if jsonErr := json.Unmarshal(raw, &policy); jsonErr == nil {
				return &policy, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			r.logger.Debug("sla policy cache read failed", zap.Error(err))
		}
	}

	policy, err := r.base.FindByPriority(ctx, priority)
	if err != nil || policy == nil {
		return policy, err
	}
	if r.client != nil {
		if raw, jsonErr := json.Marshal(policy); jsonErr == nil {
			if err := r.client.Set(ctx, policyCacheKey(priority), raw, r.ttl).Err(); err != nil {
				r.logger.Debug("sla policy cache write failed", zap.Error(err))
			}
		}
	}
	return policy, nil
}

func (r *cachedSlaPolicyRepository) invalidate(ctx context.Context, priorities ...domain.TicketPriority) {
	if r.client == nil {
		return
	}
	for _, priority := range priorities {
		if err := r.client.Del(ctx, policyCacheKey(priority)).Err(); err != nil {
			r.logger.Debug("sla policy cache invalidation failed", zap.Error(err))
		}
	}
}

func (r *cachedSlaPolicyRepository) Create(ctx context.Context, policy *domain.SlaPolicy) error {
	if err := r.base.Create(ctx, policy); err != nil {
		return err
	}
	r.invalidate(ctx, policy.Priority)
	return nil
}

func (r *cachedSlaPolicyRepository) Update(ctx context.Context, policy *domain.SlaPolicy) error {
	previous, _ := r.base.GetByID(ctx, policy.ID)
	if err := r.base.Update(ctx, policy); err != nil {
		return err
	}
	if previous != nil && previous.Priority != policy.Priority {
		r.invalidate(ctx, previous.Priority)
	}
	r.invalidate(ctx, policy.Priority)
	return nil
}

func (r *cachedSlaPolicyRepository) Delete(ctx context.Context, id string) error {
	previous, _ := r.base.GetByID(ctx, id)
	if err := r.base.Delete(ctx, id); err != nil {
		return err
	}
	if previous != nil {
		r.invalidate(ctx, previous.Priority)
	}
	return nil
}

func (r *cachedSlaPolicyRepository) GetByID(ctx context.Context, id string) (*domain.SlaPolicy, error) {
	return r.base.GetByID(ctx, id)
}

func (r *cachedSlaPolicyRepository) List(ctx context.Context) ([]domain.SlaPolicy, error) {
	return r.base.List(ctx)
}

func (r *cachedSlaPolicyRepository) Count(ctx context.Context) (int, error) {
	return r.base.Count(ctx)
}
