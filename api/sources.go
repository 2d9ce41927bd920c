package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pevans/newsseeker/sources"
)

// CreateSourceRequest is the body of POST /api/v1/sources.
type CreateSourceRequest struct {
	SourceType string             `json:"source_type" binding:"required"`
	URL        string             `json:"url" binding:"required,url"`
	Name       string             `json:"name" binding:"required"`
	Selectors  *sources.Selectors `json:"selectors,omitempty"`
	Enabled    *bool              `json:"enabled,omitempty"` // Default: true
}

// handleSourceError maps source store errors to HTTP responses.
func (s *Server) handleSourceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, sources.ErrSourceNotFound):
		c.JSON(http.StatusNotFound, errorResponse("not_found", err.Error()))
	case errors.Is(err, sources.ErrDuplicateURL):
		c.JSON(http.StatusConflict, errorResponse("conflict", err.Error()))
	case errors.Is(err, sources.ErrInvalidSourceType), errors.Is(err, sources.ErrMissingSelectors):
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
	default:
		s.log.WithError(err).Error("source request failed")
		c.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to process request"))
	}
}

// HandleListSources handles GET /api/v1/sources.
func (s *Server) HandleListSources(c *gin.Context) {
	filter := sources.SourceFilter{}

	if typeParam := c.Query("type"); typeParam != "" {
		filter.Type = &typeParam
	}
	if enabledParam := c.Query("enabled"); enabledParam != "" {
		enabled := enabledParam == "true"
		filter.Enabled = &enabled
	}

	list, err := s.sources.ListSources(filter)
	if err != nil {
		s.handleSourceError(c, err)
		return
	}
	if list == nil {
		list = []sources.Source{}
	}

	c.JSON(http.StatusOK, gin.H{"sources": list, "total": len(list)})
}

// HandleGetSource handles GET /api/v1/sources/{id}.
func (s *Server) HandleGetSource(c *gin.Context) {
	id, ok := parseID(c, "Invalid source ID")
	if !ok {
		return
	}

	source, err := s.sources.GetSource(id)
	if err != nil {
		s.handleSourceError(c, err)
		return
	}
	c.JSON(http.StatusOK, source)
}

// HandleCreateSource handles POST /api/v1/sources.
func (s *Server) HandleCreateSource(c *gin.Context) {
	var req CreateSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
		return
	}

	var enabledAt *time.Time
	if req.Enabled == nil || *req.Enabled {
		now := s.now()
		enabledAt = &now
	}

	source, err := s.sources.CreateSource(req.SourceType, req.URL, req.Name, req.Selectors, enabledAt)
	if err != nil {
		s.handleSourceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, source)
}

// HandleDeleteSource handles DELETE /api/v1/sources/{id}.
func (s *Server) HandleDeleteSource(c *gin.Context) {
	id, ok := parseID(c, "Invalid source ID")
	if !ok {
		return
	}

	if err := s.sources.DeleteSource(id); err != nil {
		s.handleSourceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
