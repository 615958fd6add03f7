package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/padraicbc/trainerpages/ai"
	"github.com/padraicbc/trainerpages/blob"
	"github.com/padraicbc/trainerpages/mailer"
	mw "github.com/padraicbc/trainerpages/middleware"
	"github.com/padraicbc/trainerpages/scraper"
	"github.com/padraicbc/trainerpages/site"
)

// Scraper imports a link page.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*scraper.Result, error)
}

// Handler holds shared dependencies used by all route handlers.
type Handler struct {
	db        *bun.DB
	blob      blob.Store
	notifier  *mailer.Notifier
	rewriter  ai.Rewriter
	scraper   Scraper
	renderer  *site.Renderer
	generator *site.Generator
	passcode  *mw.Passcode
	sessions  *mw.Sessions
	log       *zap.Logger
}

// Options are the collaborators a Handler is built from. Rewriter may be nil.
type Options struct {
	DB       *bun.DB
	Blob     blob.Store
	Notifier *mailer.Notifier
	Rewriter ai.Rewriter
	Scraper  Scraper
	Passcode *mw.Passcode
	Sessions *mw.Sessions
	Logger   *zap.Logger
	Now      func() time.Time
}

// New creates a Handler from its collaborators.
func New(o Options) (*Handler, error) {
	renderer, err := site.NewRenderer()
	if err != nil {
		return nil, err
	}
	log := o.Logger
	if log == nil {
		log = zap.L()
	}
	return &Handler{
		db:       o.DB,
		blob:     o.Blob,
		notifier: o.Notifier,
		rewriter: o.Rewriter,
		scraper:  o.Scraper,
		renderer: renderer,
		generator: &site.Generator{
			DB:       o.DB,
			Blob:     o.Blob,
			Renderer: renderer,
			Rewriter: o.Rewriter,
			Now:      o.Now,
		},
		passcode: o.Passcode,
		sessions: o.Sessions,
		log:      log.Named("handlers"),
	}, nil
}

// storeError maps a store failure onto an HTTP error.
func storeError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func idParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// Health pings the store.
func (h *Handler) Health(c echo.Context) error {
	if err := h.db.PingContext(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
