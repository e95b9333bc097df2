//go:build integration

package activity_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/p-n-ai/pai-admin/internal/activity"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := t.Context()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("admin"),
		postgres.WithUsername("admin"),
		postgres.WithPassword("admin"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = ctr.Terminate(context.Background())
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("ConnectionString() error = %v", err)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New() error = %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestPostgresLogger_RoundTrip(t *testing.T) {
	pool := startPostgres(t)
	logger := activity.NewPostgresLogger(pool)

	if err := logger.EnsureSchema(t.Context()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	// Second call must be harmless.
	if err := logger.EnsureSchema(t.Context()); err != nil {
		t.Fatalf("EnsureSchema() second call error = %v", err)
	}

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	events := []activity.Event{
		{Entity: "subject", EntityID: 1, Action: "created", Data: map[string]any{"name": "Physics"}, CreatedAt: base},
		{Entity: "quiz", EntityID: 2, Action: "deleted", CreatedAt: base.Add(time.Minute)},
	}
	for _, ev := range events {
		if err := logger.LogEvent(ev); err != nil {
			t.Fatalf("LogEvent() error = %v", err)
		}
	}

	recent, err := logger.Recent(10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len(recent) = %d, want 2", len(recent))
	}
	if recent[0].Entity != "quiz" || recent[0].Action != "deleted" {
		t.Errorf("recent[0] = %+v, want the quiz deletion first", recent[0])
	}
	if recent[1].Data["name"] != "Physics" {
		t.Errorf("recent[1].Data = %v, want name Physics", recent[1].Data)
	}
}
