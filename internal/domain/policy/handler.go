package policy

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/caretrack/caretrack/internal/domain/auditevent"
	"github.com/caretrack/caretrack/internal/platform/auth"
)

type Handler struct {
	svc   *Service
	audit *auditevent.Recorder
}

func NewHandler(svc *Service, audit *auditevent.Recorder) *Handler {
	return &Handler{svc: svc, audit: audit}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/policy", h.Get, auth.RequireRole("admin", "physician", "nurse", "compliance"))
	api.PUT("/policy", h.Update, auth.RequireRole("admin"))
}

func (h *Handler) Get(c echo.Context) error {
	p, err := h.svc.Active(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve policy")
	}
	return c.JSON(http.StatusOK, p)
}

type updateRequest struct {
	CadenceDays      int      `json:"cadence_days"`
	GraceWindowDays  int      `json:"grace_window_days"`
	ExpirationDays   int      `json:"expiration_days"`
	MeasuresRequired []string `json:"measures_required"`
	RequireAtIntake  bool     `json:"require_at_intake"`
}

func (h *Handler) Update(c echo.Context) error {
	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	p := &Policy{
		CadenceDays:      req.CadenceDays,
		GraceWindowDays:  req.GraceWindowDays,
		ExpirationDays:   req.ExpirationDays,
		MeasuresRequired: req.MeasuresRequired,
		RequireAtIntake:  req.RequireAtIntake,
	}
	if err := h.svc.Update(ctx, p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	actorID := auth.UserIDFromContext(ctx)
	h.audit.Record(ctx, &auditevent.AuditEvent{
		Kind:         auditevent.KindPolicyUpdated,
		ActorID:      &actorID,
		ActorDisplay: auth.UserNameFromContext(ctx),
		ResourceType: "Policy",
		Metadata: map[string]interface{}{
			"cadence_days":      req.CadenceDays,
			"grace_window_days": req.GraceWindowDays,
			"expiration_days":   req.ExpirationDays,
			"measures_required": req.MeasuresRequired,
		},
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	})

	updated, err := h.svc.Active(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to reload policy")
	}
	return c.JSON(http.StatusOK, updated)
}
