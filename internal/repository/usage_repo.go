package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"app/internal/model"
)

// UsageRepository is the append-only log of countable user actions.
// Events are never updated or deleted; quotas are derived by counting.
type UsageRepository interface {
	RecordEvent(ctx context.Context, event *model.UsageEvent) error
	CountEventsInPeriod(ctx context.Context, userID string, action model.UsageAction, start, end time.Time) (int, error)
	GetRecentEvents(ctx context.Context, userID string, limit int) ([]model.UsageEvent, error)
}

type usageRepo struct {
	pool *pgxpool.Pool
}

// NewUsageRepo creates a new UsageRepository.
func NewUsageRepo(pool *pgxpool.Pool) UsageRepository {
	return &usageRepo{pool: pool}
}

func (r *usageRepo) RecordEvent(ctx context.Context, event *model.UsageEvent) error {
	var metadata []byte
	if event.Metadata != nil {
		raw, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode event metadata: %w", err)
		}
		metadata = raw
	}

	const query = `
		INSERT INTO usage_events (user_id, action, resource_type, resource_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if err := r.pool.QueryRow(ctx, query,
		event.UserID, event.Action, event.ResourceType, event.ResourceID, metadata, createdAt,
	).Scan(&event.ID); err != nil {
		return fmt.Errorf("failed to record usage event for user %s: %w", event.UserID, err)
	}
	return nil
}

func (r *usageRepo) CountEventsInPeriod(ctx context.Context, userID string, action model.UsageAction, start, end time.Time) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM usage_events
		WHERE user_id = $1
		  AND action = $2
		  AND created_at >= $3
		  AND created_at < $4
	`
	var count int
	if err := r.pool.QueryRow(ctx, query, userID, action, start, end).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s events for user %s: %w", action, userID, err)
	}
	return count, nil
}

func (r *usageRepo) GetRecentEvents(ctx context.Context, userID string, limit int) ([]model.UsageEvent, error) {
	const query = `
		SELECT id, user_id, action, resource_type, resource_id, metadata, created_at
		FROM usage_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage events: %w", err)
	}
	defer rows.Close()

	var events []model.UsageEvent
	for rows.Next() {
		var (
			event    model.UsageEvent
			metadata []byte
		)
		if err := rows.Scan(
			&event.ID,
			&event.UserID,
			&event.Action,
			&event.ResourceType,
			&event.ResourceID,
			&metadata,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan usage event row: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode event metadata: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}
