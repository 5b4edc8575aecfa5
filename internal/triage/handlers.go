package triage

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/swipeclean/swipeclean/internal/library"
)

// Handlers provides HTTP handlers for the triage surface.
type Handlers struct {
	service *Service
}

// NewHandlers creates a new triage handlers instance.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers triage routes on an Echo group.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/state", h.State)
	g.POST("/keep", h.Keep)
	g.POST("/delete", h.Delete)
	g.POST("/skip", h.Skip)
	g.POST("/reload", h.Reload)
	g.POST("/flush", h.Flush)
	g.POST("/album", h.SelectAlbum)
	g.POST("/filters/date", h.SetDateFilter)
	g.POST("/filters/media", h.SetMediaFilter)
	g.POST("/filters/include-videos", h.SetIncludeVideos)
	g.POST("/filters/randomize", h.SetRandomize)
	g.POST("/stats/reset", h.ResetStats)
	g.POST("/error/clear", h.ClearError)
	g.POST("/notice/clear", h.ClearNotice)
	g.GET("/filters/date/options", h.DateFilterOptions)
}

// State returns the current engine snapshot.
// GET /api/v1/triage/state
func (h *Handlers) State(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.Snapshot())
}

// Keep records a keep decision for the presented item.
// POST /api/v1/triage/keep
func (h *Handlers) Keep(c echo.Context) error {
	h.service.KeepCurrent(c.Request().Context())
	return c.JSON(http.StatusOK, h.service.Snapshot())
}

// Delete records a delete decision for the presented item.
// POST /api/v1/triage/delete
func (h *Handlers) Delete(c echo.Context) error {
	h.service.DeleteCurrent(c.Request().Context())
	return c.JSON(http.StatusOK, h.service.Snapshot())
}

// Skip sends the presented item to the back of the queue.
// POST /api/v1/triage/skip
func (h *Handlers) Skip(c echo.Context) error {
	h.service.SkipCurrent(c.Request().Context())
	return c.JSON(http.StatusOK, h.service.Snapshot())
}

// Reload flushes pending deletions and rebuilds the queue.
// POST /api/v1/triage/reload
func (h *Handlers) Reload(c echo.Context) error {
	resetStats := c.QueryParam("resetStats") == "true"
	h.service.ReloadLibrary(c.Request().Context(), resetStats)
	return c.JSON(http.StatusOK, h.service.Snapshot())
}

// Flush forces an immediate commit of the pending batch.
// POST /api/v1/triage/flush
func (h *Handlers) Flush(c echo.Context) error {
	h.service.FlushPendingDeletes(c.Request().Context())
	return c.JSON(http.StatusOK, h.service.Snapshot())
}

type albumRequest struct {
	AlbumID string `json:"albumId"`
}

// SelectAlbum scopes the queue to one album.
// POST /api/v1/triage/album
func (h *Handlers) SelectAlbum(c echo.Context) error {
	var req albumRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.AlbumID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "albumId is required")
	}
	if err := h.service.SelectAlbum(c.Request().Context(), req.AlbumID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, h.service.Snapshot())
}

type filterRequest struct {
	Filter string `json:"filter"`
}

// SetDateFilter switches the creation-date filter.
// POST /api/v1/triage/filters/date
func (h *Handlers) SetDateFilter(c echo.Context) error {
	var req filterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.service.SetDateFilter(c.Request().Context(), library.DateFilter(req.Filter)); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, h.service.Snapshot())
}

// SetMediaFilter switches the media-type filter.
// POST /api/v1/triage/filters/media
func (h *Handlers) SetMediaFilter(c echo.Context) error {
	var req filterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.service.SetMediaFilter(c.Request().Context(), library.MediaTypeFilter(req.Filter)); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, h.service.Snapshot())
}

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

// SetIncludeVideos toggles video presentation under the unrestricted
// media filter.
// POST /api/v1/triage/filters/include-videos
func (h *Handlers) SetIncludeVideos(c echo.Context) error {
	var req toggleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	h.service.SetIncludeVideos(c.Request().Context(), req.Enabled)
	return c.JSON(http.StatusOK, h.service.Snapshot())
}

// SetRandomize toggles shuffled presentation order.
// POST /api/v1/triage/filters/randomize
func (h *Handlers) SetRandomize(c echo.Context) error {
	var req toggleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	h.service.SetRandomize(c.Request().Context(), req.Enabled)
	return c.JSON(http.StatusOK, h.service.Snapshot())
}

// ResetStats zeroes the session statistics.
// POST /api/v1/triage/stats/reset
func (h *Handlers) ResetStats(c echo.Context) error {
	h.service.ResetStats()
	return c.JSON(http.StatusOK, h.service.Snapshot())
}

// ClearError acknowledges the surfaced error.
// POST /api/v1/triage/error/clear
func (h *Handlers) ClearError(c echo.Context) error {
	h.service.ClearError()
	return c.NoContent(http.StatusNoContent)
}

// ClearNotice dismisses the transient notice.
// POST /api/v1/triage/notice/clear
func (h *Handlers) ClearNotice(c echo.Context) error {
	h.service.ClearNotice()
	return c.NoContent(http.StatusNoContent)
}

type dateFilterOption struct {
	Value    library.DateFilter `json:"value"`
	Title    string             `json:"title"`
	Subtitle string             `json:"subtitle"`
}

// DateFilterOptions lists the selectable date filters with labels.
// GET /api/v1/triage/filters/date/options
func (h *Handlers) DateFilterOptions(c echo.Context) error {
	filters := library.DateFilters()
	options := make([]dateFilterOption, 0, len(filters))
	for _, f := range filters {
		options = append(options, dateFilterOption{Value: f, Title: f.Title(), Subtitle: f.Subtitle()})
	}
	return c.JSON(http.StatusOK, options)
}
