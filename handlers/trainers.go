package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/padraicbc/trainerpages/blob"
	"github.com/padraicbc/trainerpages/models"
	"github.com/padraicbc/trainerpages/site"
)

type resolveResponse struct {
	Slug        string `json:"slug"`
	DocumentURL string `json:"documentUrl"`
	IsPrimary   bool   `json:"isPrimary"`
}

// loadDocument reads a trainer's published document from object storage.
func (h *Handler) loadDocument(ctx context.Context, slug string) (*site.Document, []byte, error) {
	if slug == "" || site.Slugify(slug) != slug {
		return nil, nil, blob.ErrNotFound
	}
	raw, err := h.blob.Get(ctx, blob.DocumentKey(slug))
	if err != nil {
		return nil, nil, err
	}
	doc := new(site.Document)
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, nil, err
	}
	return doc, raw, nil
}

func documentError(err error) error {
	if errors.Is(err, blob.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "trainer page not found")
	}
	return echo.NewHTTPError(http.StatusBadGateway, err.Error())
}

// TrainerDocument returns the published JSON document for a trainer.
func (h *Handler) TrainerDocument(c echo.Context) error {
	_, raw, err := h.loadDocument(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return documentError(err)
	}
	return c.JSONBlob(http.StatusOK, raw)
}

// TrainerSite renders a trainer's microsite from the published document.
func (h *Handler) TrainerSite(c echo.Context) error {
	return h.renderSite(c, c.Param("slug"))
}

func (h *Handler) renderSite(c echo.Context, slug string) error {
	doc, _, err := h.loadDocument(c.Request().Context(), slug)
	if err != nil {
		return documentError(err)
	}
	page, err := h.renderer.Render(doc)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.HTMLBlob(http.StatusOK, page)
}

// Resolve maps a hostname to the trainer it serves.
func (h *Handler) Resolve(c echo.Context) error {
	host := strings.TrimSpace(c.QueryParam("host"))
	if host == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "host is required")
	}
	ctx := c.Request().Context()
	d, err := h.lookupDomain(ctx, host)
	if err != nil {
		if errors.Is(err, models.ErrInvalidHostname) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return storeError(err)
	}
	docURL, err := h.blob.URL(ctx, blob.DocumentKey(d.TrainerSlug))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, resolveResponse{Slug: d.TrainerSlug, DocumentURL: docURL, IsPrimary: d.IsPrimary})
}

// HostSite serves a trainer's microsite at "/" when the request Host is one of
// their mapped domains. Hosts in own are the app's domains and are never looked up.
func (h *Handler) HostSite(own []string) echo.MiddlewareFunc {
	skip := make(map[string]bool, len(own))
	for _, o := range own {
		if n, err := models.NormalizeHostname(o); err == nil {
			skip[n] = true
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodGet || req.URL.Path != "/" {
				return next(c)
			}
			host, err := models.NormalizeHostname(req.Host)
			if err != nil || skip[host] {
				return next(c)
			}
			d, err := h.lookupDomain(req.Context(), host)
			if err != nil {
				if !errors.Is(err, sql.ErrNoRows) {
					h.log.Warn("domain lookup failed", zap.String("host", host), zap.Error(err))
				}
				return next(c)
			}
			return h.renderSite(c, d.TrainerSlug)
		}
	}
}

// HostMapped returns nil when host is mapped to a trainer.
func (h *Handler) HostMapped(ctx context.Context, host string) error {
	_, err := h.lookupDomain(ctx, host)
	return err
}
