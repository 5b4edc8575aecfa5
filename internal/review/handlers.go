package review

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handlers provides HTTP handlers for review-prompt state.
type Handlers struct {
	service *Service
}

// NewHandlers creates a new review handlers instance.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers review routes on an Echo group.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/eligibility", h.Eligibility)
	g.POST("/prompted", h.Prompted)
	g.POST("/rated", h.Rated)
}

// Eligibility reports whether a review prompt may be shown.
// GET /api/v1/review/eligibility
func (h *Handlers) Eligibility(c echo.Context) error {
	ctx := c.Request().Context()
	return c.JSON(http.StatusOK, map[string]any{
		"eligible":  h.service.CanRequestReview(ctx),
		"processed": h.service.ProcessedCount(ctx),
	})
}

// Prompted records that the prompt was shown.
// POST /api/v1/review/prompted
func (h *Handlers) Prompted(c echo.Context) error {
	if err := h.service.MarkPrompted(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// Rated records that the user rated the app.
// POST /api/v1/review/rated
func (h *Handlers) Rated(c echo.Context) error {
	if err := h.service.MarkRated(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
