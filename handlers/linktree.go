package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/padraicbc/trainerpages/scraper"
)

type linktreeRequest struct {
	URL string `json:"url"`
}

// Linktree imports a trainer's link page so the intake form can be prefilled.
func (h *Handler) Linktree(c echo.Context) error {
	var req linktreeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "url is required")
	}
	if _, err := scraper.ValidateURL(req.URL); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.scraper.Scrape(c.Request().Context(), req.URL)
	if err != nil {
		if errors.Is(err, scraper.ErrInvalidURL) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		h.log.Warn("linktree import failed", zap.String("url", req.URL), zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}
