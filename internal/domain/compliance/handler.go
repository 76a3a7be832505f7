package compliance

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/caretrack/caretrack/internal/platform/auth"
)

const defaultWindowDays = 30

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	reporting := auth.RequireRole("admin", "compliance", "physician")
	api.GET("/compliance/due", h.Due, reporting)
	api.GET("/compliance/overdue", h.Overdue, reporting)
	api.GET("/compliance/summary", h.Summary, reporting)
}

func (h *Handler) Due(c echo.Context) error {
	instances, err := h.svc.Due(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to compute due set")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"count": len(instances), "data": instances})
}

func (h *Handler) Overdue(c echo.Context) error {
	instances, err := h.svc.Overdue(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to compute overdue set")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"count": len(instances), "data": instances})
}

func (h *Handler) Summary(c echo.Context) error {
	windowDays := defaultWindowDays
	if raw := c.QueryParam("window_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "window_days must be a positive integer")
		}
		windowDays = n
	}
	summary, err := h.svc.Summarize(c.Request().Context(), windowDays)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to compute summary")
	}
	return c.JSON(http.StatusOK, summary)
}
