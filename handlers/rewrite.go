package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/padraicbc/trainerpages/ai"
	"github.com/padraicbc/trainerpages/models"
)

type rewriteRequest struct {
	Bio      string           `json:"bio"`
	Tagline  string           `json:"tagline"`
	Programs []models.Program `json:"programs"`
}

// Rewrite polishes trainer copy with the configured AI provider. Nothing is stored.
func (h *Handler) Rewrite(c echo.Context) error {
	if h.rewriter == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, ai.ErrDisabled.Error())
	}
	var req rewriteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	in := ai.Content{
		Bio:      strings.TrimSpace(req.Bio),
		Tagline:  strings.TrimSpace(req.Tagline),
		Programs: cleanPrograms(req.Programs),
	}
	if in.Bio == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "bio is required")
	}
	if err := validatePrograms(in.Programs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	out, err := h.rewriter.Rewrite(c.Request().Context(), in)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	if out.Programs == nil {
		out.Programs = []models.Program{}
	}
	return c.JSON(http.StatusOK, out)
}
