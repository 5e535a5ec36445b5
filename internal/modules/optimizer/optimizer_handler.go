package optimizer

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"sky-trace/internal/models"
	"sky-trace/internal/modules/dialogue"
)

// Handler exposes the optimize action and the verification pass-through.
type Handler struct {
	svc ServiceInterface
}

// NewHandler creates a new optimizer handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the optimizer routes: the per-session optimize
// action under the JWT-guarded session group, and the verification proxy
// on the open API group (it carries no session state).
func (h *Handler) RegisterRoutes(api *echo.Group, sessions *echo.Group) {
	sessions.POST("/optimize", h.Optimize)
	api.POST("/verify", h.VerifyRoute)
}

// optimizeRequest optionally overrides parts of the search grid.
type optimizeRequest struct {
	GridConfig *models.GridConfig `json:"grid_config,omitempty"`
}

// Optimize runs the route optimization for a finalized session and returns
// the updated session snapshot including route and status.
func (h *Handler) Optimize(c echo.Context) error {
	sessionID, err := dialogue.AuthorizedSessionID(c)
	if err != nil {
		return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "Token does not match this session"})
	}

	// The body is optional; an empty POST runs with default grid config.
	var req optimizeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}

	view, err := h.svc.Optimize(c.Request().Context(), sessionID, req.GridConfig)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// VerifyRoute forwards an optimization payload to the attestation network
// client. Verification is best-effort: an unreachable verifier yields an
// "unverified" result, not a failure.
func (h *Handler) VerifyRoute(c echo.Context) error {
	var payload map[string]interface{}
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}

	result, err := h.svc.VerifyRoute(c.Request().Context(), payload)
	if err != nil {
		c.Logger().Error("Handler.VerifyRoute: ", err)
		return c.JSON(http.StatusBadGateway, models.ErrorResponse{Message: "Verification request failed"})
	}
	return c.JSON(http.StatusOK, result)
}

// errorResponse maps optimize errors onto HTTP statuses. After a transport
// or malformed-response failure the session status is already FAILED; the
// client picks that up on its next snapshot.
func (h *Handler) errorResponse(c echo.Context, err error) error {
	var transportErr *models.TransportError
	var malformedErr *models.MalformedResponseError

	switch {
	case errors.Is(err, models.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Session not found or expired"})
	case errors.Is(err, models.ErrRecordNotFinalized):
		return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "Confirm your flight details before optimizing"})
	case errors.Is(err, models.ErrOptimizeInFlight):
		return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "A route optimization is already in progress"})
	case errors.As(err, &transportErr), errors.As(err, &malformedErr):
		c.Logger().Error("Handler.Optimize: ", err)
		return c.JSON(http.StatusBadGateway, models.ErrorResponse{Message: "Failed to optimize route"})
	default:
		c.Logger().Error("Handler.Optimize: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Internal error"})
	}
}
