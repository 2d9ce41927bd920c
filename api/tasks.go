package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pevans/newsseeker/collector"
	"github.com/pevans/newsseeker/newsfeed"
	"github.com/pevans/newsseeker/runs"
	"github.com/pevans/newsseeker/taskconfig"
)

// TaskResponse is a task's latest status plus the configuration it runs.
type TaskResponse struct {
	collector.StatusEvent
	Config taskconfig.TaskConfig `json:"config"`
}

func taskResponse(task *collector.Task) TaskResponse {
	return TaskResponse{StatusEvent: task.Snapshot(), Config: task.Config()}
}

func runResponse(run *runs.Run) TaskResponse {
	at := run.StartedAt
	if run.FinishedAt != nil {
		at = *run.FinishedAt
	}
	return TaskResponse{
		StatusEvent: collector.StatusEvent{
			TaskID:   run.TaskID,
			State:    run.State,
			Progress: run.Progress,
			Message:  run.Message,
			Reason:   run.Reason,
			At:       at,
		},
		Config: run.Config,
	}
}

// handleValidationError maps validation failures to 400 responses.
func handleValidationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, taskconfig.ErrInvalidDateRange):
		c.JSON(http.StatusBadRequest, errorResponse("invalid_date_range", err.Error()))
	case errors.Is(err, taskconfig.ErrEmptySelection):
		c.JSON(http.StatusBadRequest, errorResponse("empty_selection", err.Error()))
	case errors.Is(err, taskconfig.ErrInvalidRangeMode):
		c.JSON(http.StatusBadRequest, errorResponse("invalid_range_mode", err.Error()))
	default:
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
	}
}

// HandleStartTask handles POST /api/v1/tasks.
func (s *Server) HandleStartTask(c *gin.Context) {
	var raw taskconfig.RawInput
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
		return
	}

	cfg, err := taskconfig.Validate(raw, s.now())
	if err != nil {
		handleValidationError(c, err)
		return
	}

	task, err := s.runner.Start(cfg)
	if errors.Is(err, collector.ErrAlreadyRunning) {
		c.JSON(http.StatusConflict, errorResponse("already_running", err.Error()))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to start task"))
		return
	}

	s.track(task)
	c.JSON(http.StatusAccepted, taskResponse(task))
}

// HandleCurrentTask handles GET /api/v1/tasks/current.
func (s *Server) HandleCurrentTask(c *gin.Context) {
	task := s.runner.Current()
	if task == nil {
		c.JSON(http.StatusNotFound, errorResponse("not_found", "No task has been started"))
		return
	}
	c.JSON(http.StatusOK, taskResponse(task))
}

// HandleGetTask handles GET /api/v1/tasks/{id}. Tasks that are no longer
// current are read from run history.
func (s *Server) HandleGetTask(c *gin.Context) {
	id, ok := parseID(c, "Invalid task ID")
	if !ok {
		return
	}

	if task, ok := s.runner.Lookup(id); ok {
		c.JSON(http.StatusOK, taskResponse(task))
		return
	}

	run, err := s.runs.Get(id)
	if err != nil {
		s.handleRunError(c, err)
		return
	}
	c.JSON(http.StatusOK, runResponse(run))
}

// HandleTaskEvents handles GET /api/v1/tasks/{id}/events as a server-sent
// event stream. The stream starts at the latest event and ends after the
// terminal one.
func (s *Server) HandleTaskEvents(c *gin.Context) {
	id, ok := parseID(c, "Invalid task ID")
	if !ok {
		return
	}

	task, ok := s.runner.Lookup(id)
	if !ok {
		run, err := s.runs.Get(id)
		if err != nil {
			s.handleRunError(c, err)
			return
		}
		c.SSEvent("status", runResponse(run).StatusEvent)
		return
	}

	events := task.Subscribe(c.Request.Context())
	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		c.SSEvent("status", ev)
		return !ev.State.IsTerminal()
	})
}

// HandleCancelTask handles POST /api/v1/tasks/{id}/cancel. Cancelling a
// task that is not running changes nothing.
func (s *Server) HandleCancelTask(c *gin.Context) {
	id, ok := parseID(c, "Invalid task ID")
	if !ok {
		return
	}

	if task, ok := s.runner.Cancel(id); ok {
		c.JSON(http.StatusAccepted, taskResponse(task))
		return
	}

	run, err := s.runs.Get(id)
	if err != nil {
		s.handleRunError(c, err)
		return
	}
	c.JSON(http.StatusOK, runResponse(run))
}

// HandleListRuns handles GET /api/v1/runs.
func (s *Server) HandleListRuns(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", "limit must be a non-negative integer"))
		return
	}

	list, err := s.runs.List(limit)
	if err != nil {
		s.handleRunError(c, err)
		return
	}
	if list == nil {
		list = []runs.Run{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": list, "total": len(list)})
}

// HandleListItems handles GET /api/v1/items.
func (s *Server) HandleListItems(c *gin.Context) {
	opts := newsfeed.ListOptions{Keyword: c.Query("keyword")}

	if taskParam := c.Query("task_id"); taskParam != "" {
		taskID, err := uuid.Parse(taskParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("bad_request", "Invalid task ID"))
			return
		}
		opts.TaskID = &taskID
	}
	if limitParam := c.Query("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, errorResponse("bad_request", "limit must be a non-negative integer"))
			return
		}
		opts.Limit = limit
	}

	result, err := s.feed.List(opts)
	if err != nil {
		s.log.WithError(err).Error("failed to list news items")
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to list items"))
		return
	}
	for _, readErr := range result.Errors {
		s.log.WithError(readErr.Err).WithField("file", readErr.Filename).Warn("skipping unreadable news item")
	}

	items := result.Items
	if items == nil {
		items = []newsfeed.NewsItem{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (s *Server) handleRunError(c *gin.Context, err error) {
	if errors.Is(err, runs.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
		return
	}
	s.log.WithError(err).Error("run history lookup failed")
	c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to process request"))
}

func parseID(c *gin.Context, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("bad_request", message))
		return uuid.Nil, false
	}
	return id, true
}
