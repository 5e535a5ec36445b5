package dialogue

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"sky-trace/internal/models"
)

// sessionTokenTTL bounds how long a minted session token stays valid. It
// is deliberately longer than the store's idle TTL; the store remains the
// authority on whether a session still exists.
const sessionTokenTTL = 24 * time.Hour

// Handler exposes the dialogue controller over HTTP: session creation plus
// the sendText / confirm / setLambda commands of the rendering layer.
type Handler struct {
	svc       ServiceInterface
	validate  *validator.Validate // For request body validation
	jwtSecret []byte
}

// NewHandler creates a new dialogue handler.
func NewHandler(svc ServiceInterface, jwtSecret []byte) *Handler {
	return &Handler{
		svc:       svc,
		validate:  validator.New(),
		jwtSecret: jwtSecret,
	}
}

// RegisterRoutes mounts the dialogue routes. Session creation is public;
// everything below /sessions/:sessionId sits behind the JWT middleware set
// up by the caller.
func (h *Handler) RegisterRoutes(api *echo.Group, sessions *echo.Group) {
	api.POST("/sessions", h.CreateSession)
	sessions.GET("", h.GetSession)
	sessions.POST("/messages", h.SendMessage)
	sessions.POST("/confirm", h.Confirm)
	sessions.PUT("/lambda", h.SetLambda)
}

// CreateSession opens a fresh dialogue session and mints the token the
// client must present on every subsequent call for it.
func (h *Handler) CreateSession(c echo.Context) error {
	sess := h.svc.CreateSession(c.Request().Context())

	token, err := MintSessionToken(h.jwtSecret, sess.ID, sessionTokenTTL)
	if err != nil {
		c.Logger().Error("Handler.CreateSession: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Failed to create session"})
	}

	return c.JSON(http.StatusCreated, models.CreateSessionResponse{
		SessionID: sess.ID,
		Token:     token,
		View:      sess.View(),
	})
}

// GetSession returns the current session snapshot for the rendering layer.
func (h *Handler) GetSession(c echo.Context) error {
	sessionID, err := h.authorizedSessionID(c)
	if err != nil {
		return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "Token does not match this session"})
	}

	view, err := h.svc.View(sessionID)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// SendMessage runs one dialogue turn and returns the updated snapshot.
func (h *Handler) SendMessage(c echo.Context) error {
	sessionID, err := h.authorizedSessionID(c)
	if err != nil {
		return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "Token does not match this session"})
	}

	var req models.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	view, err := h.svc.SendMessage(c.Request().Context(), sessionID, req.Text)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// Confirm forwards the Yes/No answer bound to a confirmation offer.
func (h *Handler) Confirm(c echo.Context) error {
	sessionID, err := h.authorizedSessionID(c)
	if err != nil {
		return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "Token does not match this session"})
	}

	var req models.ConfirmRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	view, err := h.svc.Confirm(c.Request().Context(), sessionID, *req.Confirmed)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// SetLambda stores the fuel-vs-contrail trade-off weight for the session.
func (h *Handler) SetLambda(c echo.Context) error {
	sessionID, err := h.authorizedSessionID(c)
	if err != nil {
		return c.JSON(http.StatusForbidden, models.ErrorResponse{Message: "Token does not match this session"})
	}

	var req models.LambdaUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body"})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Validation failed: " + err.Error()})
	}

	view, err := h.svc.SetLambda(sessionID, *req.Lambda)
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// errorResponse maps domain errors onto HTTP statuses.
func (h *Handler) errorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, models.ErrorResponse{Message: "Session not found or expired"})
	case errors.Is(err, models.ErrTurnInFlight):
		return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "A dialogue turn is already in progress"})
	case errors.Is(err, models.ErrNotAwaitingConfirmation):
		return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "There is no pending confirmation for this session"})
	case errors.Is(err, models.ErrSessionFinalized):
		return c.JSON(http.StatusConflict, models.ErrorResponse{Message: "Flight record is already finalized"})
	case errors.Is(err, models.ErrLambdaOutOfRange):
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Lambda must be between 0 and 2"})
	case errors.Is(err, models.ErrExtractionFailed):
		return c.JSON(http.StatusBadGateway, models.ErrorResponse{Message: "Could not extract the flight details, please confirm again"})
	default:
		c.Logger().Error("dialogue handler: ", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Internal error"})
	}
}

// authorizedSessionID returns the :sessionId path param after checking it
// against the sid claim of the presented token.
func (h *Handler) authorizedSessionID(c echo.Context) (string, error) {
	return AuthorizedSessionID(c)
}

// AuthorizedSessionID verifies that the JWT validated by the middleware was
// minted for the session named in the path. Shared with the optimizer
// handler, which mounts routes under the same group.
func AuthorizedSessionID(c echo.Context) (string, error) {
	sessionID := c.Param("sessionId")

	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return "", errors.New("missing session token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("unexpected token claims")
	}
	sid, _ := claims["sid"].(string)
	if sid == "" || sid != sessionID {
		return "", errors.New("token does not match session")
	}
	return sessionID, nil
}

// MintSessionToken signs a token bound to one session id. Also used by the
// misc/mint-token helper for curl testing.
func MintSessionToken(secret []byte, sessionID string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sid": sessionID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
