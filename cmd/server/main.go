package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-admin/internal/activity"
	"github.com/p-n-ai/pai-admin/internal/content"
	"github.com/p-n-ai/pai-admin/internal/dashboard"
	"github.com/p-n-ai/pai-admin/internal/notify"
	"github.com/p-n-ai/pai-admin/internal/platform/cache"
	"github.com/p-n-ai/pai-admin/internal/platform/config"
	"github.com/p-n-ai/pai-admin/internal/platform/database"
	"github.com/p-n-ai/pai-admin/internal/seed"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := config.LoadDotEnv(""); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(os.Stdout, cfg.Log))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	snap, err := seed.Load(cfg.SeedPath)
	if err != nil {
		return err
	}
	store := content.NewStore(snap, content.Options{StrictReferences: cfg.StrictReferences})

	dispatcher := notify.NewDispatcher()
	dispatcher.Register("log", notify.LogSink{})
	hub := notify.NewHub(originPatterns(cfg.CORS.Origins))
	dispatcher.Register("websocket", hub)

	checks := make(map[string]dashboard.HealthCheck)
	var events activity.Logger = activity.NopLogger{}
	var recent activity.Reader

	if cfg.HasDatabase() {
		db, err := database.Open(ctx, database.Options{
			URL:      cfg.Database.URL,
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		pgLog := activity.NewPostgresLogger(db.Pool)
		if err := pgLog.EnsureSchema(ctx); err != nil {
			return err
		}
		events, recent = pgLog, pgLog
		checks["database"] = db.HealthCheck
		slog.Info("activity log enabled", "backend", "postgres")
	}

	if cfg.HasCache() {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return fmt.Errorf("connecting to cache: %w", err)
		}
		defer c.Close()

		sink, err := notify.NewPubSubSink(c, cfg.Notify.Channel)
		if err != nil {
			return err
		}
		dispatcher.Register("redis", sink)
		checks["cache"] = c.HealthCheck
	}

	unsubscribe := store.Subscribe(observeChanges(dispatcher, events))
	defer unsubscribe()

	dash, err := dashboard.NewServer(dashboard.Deps{
		Store:       store,
		Notifier:    dispatcher,
		Hub:         hub,
		Activity:    recent,
		CORSOrigins: cfg.CORS.Origins,
		Checks:      checks,
	})
	if err != nil {
		return err
	}
	defer dash.Close()

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      dash.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "subjects", len(snap.Subjects), "quizzes", len(snap.Quizzes))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// observeChanges turns every committed store change into a notification and
// an activity event.
func observeChanges(n notify.Notifier, events activity.Logger) content.Observer {
	return func(ch content.Change, _ content.Snapshot) {
		sev := notify.SeverityNormal
		if ch.Destructive() {
			sev = notify.SeverityDestructive
		}
		n.Notify(context.Background(), notify.Notification{Message: ch.Message(), Severity: sev})

		ev := activity.Event{
			Entity:   string(ch.Entity),
			EntityID: ch.ID,
			Action:   string(ch.Action),
			Data:     map[string]any{"name": ch.Name},
		}
		if ch.SubjectID != 0 {
			ev.Data["subject_id"] = ch.SubjectID
		}
		if err := events.LogEvent(ev); err != nil {
			slog.Warn("recording activity failed", "entity", ev.Entity, "id", ev.EntityID, "error", err)
		}
	}
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// originPatterns converts CORS origins into the host patterns the websocket
// handshake checks.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimPrefix(o, "https://")
		o = strings.TrimPrefix(o, "http://")
		out = append(out, strings.TrimSuffix(o, "/"))
	}
	return out
}
