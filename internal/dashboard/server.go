// Package dashboard serves the admin dashboard: server-rendered pages with
// edit modals, and a JSON API over the same content operations.
package dashboard

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/p-n-ai/pai-admin/internal/activity"
	"github.com/p-n-ai/pai-admin/internal/content"
	"github.com/p-n-ai/pai-admin/internal/notify"
)

//go:embed templates/*.html
var templateFS embed.FS

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators of the dashboard.
type Deps struct {
	Store *content.Store
	// Notifier receives notifications that do not come from a store change.
	Notifier notify.Notifier
	// Hub serves /ws/notifications when set.
	Hub http.Handler
	// Activity feeds the summary page when set.
	Activity    activity.Reader
	CORSOrigins []string
	// Checks run on /readyz, keyed by dependency name.
	Checks map[string]HealthCheck
}

// Server renders the dashboard from the latest snapshot published by the store.
type Server struct {
	store    *content.Store
	notifier notify.Notifier
	hub      http.Handler
	activity activity.Reader
	origins  []string
	checks   map[string]HealthCheck
	tmpl     *template.Template

	current     atomic.Pointer[content.Snapshot]
	unsubscribe func()
}

// NewServer parses the templates and subscribes to the store.
func NewServer(deps Deps) (*Server, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	s := &Server{
		store:    deps.Store,
		notifier: deps.Notifier,
		hub:      deps.Hub,
		activity: deps.Activity,
		origins:  deps.CORSOrigins,
		checks:   deps.Checks,
		tmpl:     tmpl,
	}
	initial := deps.Store.Snapshot()
	s.current.Store(&initial)
	s.unsubscribe = deps.Store.Subscribe(s.observe)
	return s, nil
}

// Close stops following the store.
func (s *Server) Close() {
	s.unsubscribe()
}

// observe keeps the newest snapshot. Publishes can arrive out of order when
// mutations race, so older versions are ignored.
func (s *Server) observe(_ content.Change, snap content.Snapshot) {
	for {
		cur := s.current.Load()
		if cur != nil && cur.Version >= snap.Version {
			return
		}
		if s.current.CompareAndSwap(cur, &snap) {
			return
		}
	}
}

// snapshot returns the latest snapshot seen by the view layer.
func (s *Server) snapshot() content.Snapshot {
	return *s.current.Load()
}

// Handler builds the gin engine with every route.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.SetHTMLTemplate(s.tmpl)

	r.GET("/healthz", s.handleHealthz)
	r.GET("/readyz", s.handleReadyz)
	if s.hub != nil {
		r.GET("/ws/notifications", gin.WrapH(s.hub))
	}

	s.registerPages(r)

	api := r.Group("/api/v1")
	if len(s.origins) > 0 {
		api.Use(cors.New(cors.Config{
			AllowOrigins:  s.origins,
			AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Content-Type", "If-None-Match"},
			ExposeHeaders: []string{"ETag", requestIDHeader},
			MaxAge:        12 * time.Hour,
		}))
		// Preflight requests only reach the middleware through a matching route.
		api.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	}
	s.registerAPI(api)

	return r
}

const requestIDHeader = "X-Request-Id"

// requestLogger tags each request with an id and logs it once it completes.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()

		attrs := []any{
			"request_id", id,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.String())
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			slog.Error("request", attrs...)
		default:
			slog.Info("request", attrs...)
		}
	}
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleReadyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := make(map[string]string)
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "failed": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
