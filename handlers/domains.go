package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/padraicbc/trainerpages/db"
	"github.com/padraicbc/trainerpages/models"
)

type domainRequest struct {
	Hostname    string `json:"hostname"`
	TrainerSlug string `json:"trainerSlug"`
	IsPrimary   bool   `json:"isPrimary"`
}

// ListDomains returns domain mappings, optionally for a single trainer.
func (h *Handler) ListDomains(c echo.Context) error {
	domains := make([]models.DomainMapping, 0)
	q := h.db.NewSelect().Model(&domains).
		OrderExpr("d.trainer_slug ASC").
		OrderExpr("d.hostname ASC")
	if slug := strings.TrimSpace(c.QueryParam("slug")); slug != "" {
		q = q.Where("d.trainer_slug = ?", slug)
	}
	if err := q.Scan(c.Request().Context()); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, domains)
}

// CreateDomain maps a hostname to a trainer. A primary mapping clears the
// primary flag on the trainer's other hostnames.
func (h *Handler) CreateDomain(c echo.Context) error {
	var req domainRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Hostname) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "hostname is required")
	}
	host, err := models.NormalizeHostname(req.Hostname)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	slug := strings.TrimSpace(req.TrainerSlug)
	if slug == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "trainerSlug is required")
	}

	d := &models.DomainMapping{Hostname: host, TrainerSlug: slug, IsPrimary: req.IsPrimary}
	err = db.AddDomain(c.Request().Context(), h.db, d)
	switch {
	case errors.Is(err, db.ErrHostnameTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, sql.ErrNoRows):
		return echo.NewHTTPError(http.StatusNotFound, "no trainer with slug "+slug)
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.log.Info("domain mapped", zap.String("hostname", host), zap.String("slug", slug), zap.Bool("primary", d.IsPrimary))
	return c.JSON(http.StatusCreated, d)
}

// SetPrimaryDomain makes one mapping the trainer's primary hostname.
func (h *Handler) SetPrimaryDomain(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}

	d, err := db.SetPrimaryDomain(c.Request().Context(), h.db, id)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, d)
}

// DeleteDomain removes a mapping.
func (h *Handler) DeleteDomain(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	res, err := h.db.NewDelete().Model((*models.DomainMapping)(nil)).
		Where("id = ?", id).
		Exec(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// lookupDomain finds the mapping for a request host.
func (h *Handler) lookupDomain(ctx context.Context, rawHost string) (*models.DomainMapping, error) {
	host, err := models.NormalizeHostname(rawHost)
	if err != nil {
		return nil, err
	}
	d := new(models.DomainMapping)
	if err := h.db.NewSelect().Model(d).Where("d.hostname = ?", host).Scan(ctx); err != nil {
		return nil, err
	}
	return d, nil
}
