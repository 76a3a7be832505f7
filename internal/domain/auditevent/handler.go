package auditevent

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/caretrack/caretrack/internal/platform/auth"
	"github.com/caretrack/caretrack/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "compliance"))
	g.GET("/audit-events", h.Search)
	g.GET("/audit-events/:id", h.Get)
}

func (h *Handler) Search(c echo.Context) error {
	params := map[string]string{}
	for _, key := range []string{"kind", "patient", "resource", "actor", "since", "until"} {
		if v := c.QueryParam(key); v != "" {
			params[key] = v
		}
	}

	page := pagination.FromContext(c)
	events, total, err := h.svc.Search(c.Request().Context(), params, page.Limit, page.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "audit search failed")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(events, total, page))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ev, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "audit event not found")
	}
	return c.JSON(http.StatusOK, ev)
}
