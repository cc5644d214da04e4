package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"taskbot/internal/task"
	logx "taskbot/pkg/logx"
)

type commandRequest struct {
	SessionID string `json:"sessionId"`
	Owner     string `json:"owner"`
	Command   string `json:"command"`
}

type createTaskRequest struct {
	Text         string     `json:"text"`
	ScheduledFor *time.Time `json:"scheduledFor"`
	Owner        string     `json:"owner"`
}

type updateTaskRequest struct {
	Text          *string    `json:"text"`
	Completed     *bool      `json:"completed"`
	ScheduledFor  *time.Time `json:"scheduledFor"`
	ClearSchedule bool       `json:"clearSchedule"`
}

const (
	defaultSession  = "default"
	defaultUpcoming = 24
)

func (s *Server) handleHealth(c *gin.Context) {
	out := gin.H{"status": "ok", "time": time.Now()}
	if s.deps.Health != nil {
		out["components"] = s.deps.Health()
	}
	if s.deps.Scheduler != nil {
		out["scheduler"] = s.deps.Scheduler()
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCommand(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "command is required"})
		return
	}
	session := strings.TrimSpace(req.SessionID)
	if session == "" {
		session = defaultSession
	}
	res := s.deps.Dialogue.Handle(c.Request.Context(), "http:"+session, req.Owner, req.Command)
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleListTasks(c *gin.Context) {
	ts, err := s.deps.Tasks.List(c.Request.Context(), c.Query("owner"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if c.Query("open") == "true" {
		ts = task.Open(ts)
	}
	c.JSON(http.StatusOK, gin.H{"tasks": ts, "count": len(ts)})
}

func (s *Server) handleUpcoming(c *gin.Context) {
	hours, err := strconv.Atoi(c.DefaultQuery("hours", strconv.Itoa(defaultUpcoming)))
	if err != nil || hours <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hours must be a positive integer"})
		return
	}
	ts, err := s.deps.Tasks.Upcoming(c.Request.Context(), c.Query("owner"), time.Duration(hours)*time.Hour)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": ts, "count": len(ts), "hours": hours})
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	t, err := s.deps.Tasks.Create(c.Request.Context(), req.Text, req.ScheduledFor, req.Owner)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"task": t})
	case errors.Is(err, task.ErrScheduleFailed):
		// stored, but no reminder is armed
		c.JSON(http.StatusCreated, gin.H{"task": t, "warning": err.Error()})
	default:
		s.fail(c, err)
	}
}

func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	t, err := s.deps.Tasks.Get(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": t})
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	u := task.Update{Text: req.Text, Completed: req.Completed, ScheduledFor: req.ScheduledFor, ClearSchedule: req.ClearSchedule}
	if u.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}
	t, err := s.deps.Tasks.Update(c.Request.Context(), id, u)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"task": t})
	case errors.Is(err, task.ErrScheduleFailed):
		c.JSON(http.StatusOK, gin.H{"task": t, "warning": err.Error()})
	default:
		s.fail(c, err)
	}
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	deleted, err := s.deps.Tasks.Delete(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": task.ErrNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (s *Server) handleListNotifications(c *gin.Context) {
	owner := c.Query("owner")
	items := s.deps.Inbox.List(owner, c.Query("unread") == "true")
	c.JSON(http.StatusOK, gin.H{
		"notifications": items,
		"count":         len(items),
		"unread":        s.deps.Inbox.Unread(owner),
	})
}

func (s *Server) handleReadNotification(c *gin.Context) {
	if !s.deps.Inbox.MarkRead(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"read": c.Param("id")})
}

func (s *Server) handleDeleteNotification(c *gin.Context) {
	if !s.deps.Inbox.Clear(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}

func (s *Server) handleClearNotifications(c *gin.Context) {
	n := s.deps.Inbox.ClearAll(c.Query("owner"))
	c.JSON(http.StatusOK, gin.H{"cleared": n})
}

func taskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return 0, false
	}
	return id, true
}

// fail maps domain errors onto status codes.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, task.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, task.ErrEmptyText):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.log.Warn("http request failed", logx.String("path", c.FullPath()), logx.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
