package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

var schema = []string{
	`CREATE TABLE IF NOT EXISTS admin_events (
	id         BIGSERIAL PRIMARY KEY,
	entity     TEXT NOT NULL,
	entity_id  BIGINT NOT NULL,
	action     TEXT NOT NULL,
	data       JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS admin_events_created_at_idx ON admin_events (created_at DESC)`,
}

// PostgresLogger inserts events into the admin_events table.
type PostgresLogger struct {
	pool *pgxpool.Pool
}

func NewPostgresLogger(pool *pgxpool.Pool) *PostgresLogger {
	return &PostgresLogger{pool: pool}
}

// EnsureSchema creates the admin_events table if it does not exist.
func (l *PostgresLogger) EnsureSchema(ctx context.Context) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("activity logger pool is nil")
	}
	for _, stmt := range schema {
		if _, err := l.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create admin_events: %w", err)
		}
	}
	return nil
}

func (l *PostgresLogger) LogEvent(event Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("activity logger pool is nil")
	}
	if err := validate(event); err != nil {
		return err
	}

	payload := event.Data
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	if _, err := l.pool.Exec(ctx,
		`INSERT INTO admin_events (entity, entity_id, action, data, created_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5)`,
		event.Entity,
		event.EntityID,
		event.Action,
		string(data),
		createdAt,
	); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	slog.Debug("activity logged",
		"entity", event.Entity,
		"entity_id", event.EntityID,
		"action", event.Action,
	)
	return nil
}

func (l *PostgresLogger) Recent(limit int) ([]Event, error) {
	if l == nil || l.pool == nil {
		return nil, fmt.Errorf("activity logger pool is nil")
	}
	if limit <= 0 {
		limit = 20
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	rows, err := l.pool.Query(ctx,
		`SELECT entity, entity_id, action, data, created_at
		 FROM admin_events
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var ev Event
		var raw []byte
		if err := rows.Scan(&ev.Entity, &ev.EntityID, &ev.Action, &raw, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &ev.Data); err != nil {
				return nil, fmt.Errorf("decode event data: %w", err)
			}
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
