// Package httpapi exposes the task dialogue and task store over JSON/HTTP.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"taskbot/internal/notifier"
	rtsup "taskbot/internal/runtime/supervisor"
	"taskbot/internal/task"
	"taskbot/internal/task/dialogue"
	"taskbot/internal/task/scheduler"
	logx "taskbot/pkg/logx"
)

// Dialogue is the conversational entry point.
type Dialogue interface {
	Handle(ctx context.Context, sessionID, owner, text string) dialogue.Response
	Cancel(sessionID string) dialogue.Response
}

// Tasks is the task manager surface used by the REST endpoints.
type Tasks interface {
	Create(ctx context.Context, text string, at *time.Time, owner string) (task.Task, error)
	List(ctx context.Context, owner string) ([]task.Task, error)
	Get(ctx context.Context, id int64) (task.Task, error)
	Upcoming(ctx context.Context, owner string, within time.Duration) ([]task.Task, error)
	Update(ctx context.Context, id int64, u task.Update) (task.Task, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// Inbox is the notification inbox.
type Inbox interface {
	List(owner string, unreadOnly bool) []notifier.Item
	Unread(owner string) int
	MarkRead(id string) bool
	Clear(id string) bool
	ClearAll(owner string) int
}

type Deps struct {
	Dialogue Dialogue
	Tasks    Tasks
	Inbox    Inbox
	// Health reports worker counters per component; optional.
	Health func() map[string]rtsup.Counters
	// Scheduler reports reminder and job state; optional.
	Scheduler func() scheduler.Snapshot
}

type Server struct {
	log    logx.Logger
	deps   Deps
	engine *gin.Engine

	mu  sync.Mutex
	srv *http.Server
	ln  net.Listener
}

func New(deps Deps, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	s := &Server{log: log, deps: deps, engine: engine}
	engine.Use(s.requestLog(), gin.CustomRecovery(s.recovered))

	api := engine.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.POST("/command", s.handleCommand)

		api.GET("/tasks", s.handleListTasks)
		api.POST("/tasks", s.handleCreateTask)
		api.GET("/tasks/upcoming", s.handleUpcoming)
		api.GET("/tasks/:id", s.handleGetTask)
		api.PUT("/tasks/:id", s.handleUpdateTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)

		api.GET("/notifications", s.handleListNotifications)
		api.POST("/notifications/clear", s.handleClearNotifications)
		api.POST("/notifications/:id/read", s.handleReadNotification)
		api.DELETE("/notifications/:id", s.handleDeleteNotification)
	}
	return s
}

// Handler returns the routed engine.
func (s *Server) Handler() http.Handler { return s.engine }

// Addr is the bound listen address once Start returned.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Start binds addr and serves in the background under sup.
func (s *Server) Start(sup *rtsup.Supervisor, addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return errors.New("http addr is required")
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Lock()
	s.srv, s.ln = srv, ln
	s.mu.Unlock()

	sup.Go("http.serve", func(context.Context) error {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	s.log.Info("http api listening", logx.String("addr", ln.Addr().String()))
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv, s.ln = nil, nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("http request",
			logx.String("method", c.Request.Method),
			logx.String("path", c.FullPath()),
			logx.Int("status", c.Writer.Status()),
			logx.Duration("took", time.Since(start)),
		)
	}
}

func (s *Server) recovered(c *gin.Context, v any) {
	s.log.Error("http handler panic", logx.String("path", c.Request.URL.Path), logx.Any("panic", v), logx.Stack(string(debug.Stack())))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
