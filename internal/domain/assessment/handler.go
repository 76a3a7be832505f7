package assessment

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/caretrack/caretrack/internal/domain/measure"
	"github.com/caretrack/caretrack/internal/platform/auth"
	"github.com/caretrack/caretrack/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires the staff and ops surfaces under the authenticated
// API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	clinical := auth.RequireRole("admin", "physician", "nurse")
	api.POST("/patients/:id/assessments/generate", h.Generate, clinical)
	api.GET("/patients/:id/assessments", h.ListByPatient, clinical)
	api.GET("/assessments/:id", h.Get, clinical)
	api.GET("/assessments/:id/response", h.GetResponse, clinical)
	api.POST("/assessments/:id/send-link", h.SendLink, clinical)
	api.POST("/assessments/:id/cancel", h.Cancel, clinical)

	admin := auth.RequireRole("admin")
	api.POST("/ops/generate-upcoming", h.GenerateUpcoming, admin)
	api.POST("/ops/sweep-expired", h.SweepExpired, admin)
}

// RegisterPublicRoutes wires the unauthenticated token surface. These
// endpoints identify the caller by token possession alone and never serve
// content for expired or closed instances.
func (h *Handler) RegisterPublicRoutes(e *echo.Echo) {
	e.GET("/a/:token", h.Open)
	e.POST("/a/:token", h.Submit)
}

// httpError maps the engine's error taxonomy onto status codes so callers
// can render distinct messages for expired vs. completed vs. unknown links.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "assessment not found")
	case errors.Is(err, ErrLinkExpired):
		return echo.NewHTTPError(http.StatusGone, "this link has expired")
	case errors.Is(err, ErrAlreadyCompleted):
		return echo.NewHTTPError(http.StatusConflict, "this assessment was already completed")
	case errors.Is(err, ErrCancelled):
		return echo.NewHTTPError(http.StatusConflict, "this assessment was cancelled")
	case errors.Is(err, ErrInvalidState):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}

type generateRequest struct {
	EncounterID *uuid.UUID `json:"encounter_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

func (h *Handler) Generate(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := h.svc.GenerateForPatient(c.Request().Context(), patientID, GenerateOptions{
		EncounterID: req.EncounterID,
		DueDate:     req.DueDate,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"created": len(created),
		"data":    created,
	})
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	params := pagination.FromContext(c)
	instances, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list assessments")
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(instances, total, params))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid assessment id")
	}
	inst, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, inst)
}

func (h *Handler) GetResponse(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid assessment id")
	}
	resp, err := h.svc.GetResponse(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) SendLink(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid assessment id")
	}
	if err := h.svc.SendLink(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid assessment id")
	}
	ctx := c.Request().Context()
	if err := h.svc.Cancel(ctx, id, auth.UserIDFromContext(ctx), auth.UserNameFromContext(ctx)); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type generateUpcomingRequest struct {
	DaysAhead int `json:"days_ahead"`
}

func (h *Handler) GenerateUpcoming(c echo.Context) error {
	req := generateUpcomingRequest{DaysAhead: 7}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := h.svc.GenerateUpcoming(c.Request().Context(), req.DaysAhead)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"created": created})
}

func (h *Handler) SweepExpired(c echo.Context) error {
	expired, err := h.svc.SweepExpired(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"expired": expired})
}

// openResponse is the public view of an instance: the question content plus
// deadlines, without internal identifiers beyond what the portal needs.
type openResponse struct {
	Measure   string             `json:"measure"`
	Title     string             `json:"title"`
	Questions []measure.Question `json:"questions"`
	DueDate   time.Time          `json:"due_date"`
	ExpiresAt time.Time          `json:"expires_at"`
	Status    Status             `json:"status"`
}

func (h *Handler) Open(c echo.Context) error {
	inst, m, err := h.svc.Open(c.Request().Context(), c.Param("token"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, openResponse{
		Measure:   m.Name,
		Title:     m.Title,
		Questions: m.Questions,
		DueDate:   inst.DueDate,
		ExpiresAt: inst.ExpiresAt,
		Status:    inst.Status,
	})
}

type submitRequest struct {
	Answers []int `json:"answers"`
}

func (h *Handler) Submit(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	resp, err := h.svc.Submit(c.Request().Context(), c.Param("token"), req.Answers)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"total_score": resp.TotalScore,
		"severity":    resp.Severity,
	})
}
