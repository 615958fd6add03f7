package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type passcodeRequest struct {
	Passcode string `json:"passcode"`
}

type sessionResponse struct {
	Valid     bool      `json:"valid"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// VerifyPasscode checks the shared admin secret and returns a session token the
// admin UI sends as a bearer token afterwards.
func (h *Handler) VerifyPasscode(c echo.Context) error {
	var req passcodeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.Passcode = strings.TrimSpace(req.Passcode)
	if req.Passcode == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "passcode is required")
	}

	if !h.passcode.Verify(req.Passcode) {
		h.log.Warn("admin passcode rejected", zap.String("ip", c.RealIP()))
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid passcode")
	}

	token, expiresAt, err := h.sessions.Issue()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, sessionResponse{Valid: true, Token: token, ExpiresAt: expiresAt})
}
