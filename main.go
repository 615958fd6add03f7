package main

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/time/rate"

	"github.com/padraicbc/trainerpages/ai"
	"github.com/padraicbc/trainerpages/blob"
	"github.com/padraicbc/trainerpages/config"
	"github.com/padraicbc/trainerpages/db"
	"github.com/padraicbc/trainerpages/handlers"
	applog "github.com/padraicbc/trainerpages/logger"
	"github.com/padraicbc/trainerpages/mailer"
	mw "github.com/padraicbc/trainerpages/middleware"
	"github.com/padraicbc/trainerpages/scraper"
	"github.com/padraicbc/trainerpages/telemetry"
)

//go:embed all:build/*
var embeddedFiles embed.FS

func main() {
	cfg := config.Load()
	logger, err := applog.New(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx := context.Background()

	shutdownTracing, err := telemetry.Init(cfg.TracingBackend)
	if err != nil {
		logger.Fatal("tracing setup failed", zap.Error(err))
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	bdb := db.Setup(cfg)
	defer bdb.Close()

	if err := db.CreateTables(ctx, bdb); err != nil {
		logger.Fatal("create tables failed", zap.Error(err))
	}

	store, err := blob.New(ctx, cfg.Blob)
	if err != nil {
		logger.Fatal("blob store setup failed", zap.Error(err))
	}

	rewriter, err := ai.New(ctx, cfg.AI)
	switch {
	case errors.Is(err, ai.ErrDisabled):
		logger.Info("AI rewriting disabled")
	case err != nil:
		logger.Fatal("AI provider setup failed", zap.Error(err))
	}

	h, err := handlers.New(handlers.Options{
		DB:   bdb,
		Blob: store,
		Notifier: &mailer.Notifier{
			Mailer:   mailer.New(cfg.Mail, applog.Component("mailer")),
			From:     cfg.Mail.From,
			AdminTo:  cfg.Mail.AdminTo,
			AdminURL: cfg.PublicBaseURL + "/admin",
		},
		Rewriter: rewriter,
		Scraper:  scraper.New(cfg.Scraper),
		Passcode: mw.NewPasscode(cfg.AdminPasscode, cfg.AdminPasscodeHash),
		Sessions: mw.NewSessions(cfg.SessionKey(), cfg.SessionTTL),
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("handler setup failed", zap.Error(err))
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogError:  true,
		LogHost:   true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.Int("status", v.Status),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.String("host", v.Host),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			switch {
			case v.Status >= 500:
				logger.Error("http request", fields...)
			case v.Status >= 400:
				logger.Warn("http request", fields...)
			default:
				logger.Info("http request", fields...)
			}
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(telemetry.Middleware())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, mw.PasscodeHeader},
	}))
	e.Use(h.HostSite(ownHosts(cfg)))

	throttle := echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(cfg.IntakeRateRPS),
			Burst:     5,
			ExpiresIn: 3 * time.Minute,
		}),
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, slow down")
		},
	})
	h.Register(e, throttle)
	e.GET("/metrics", echo.WrapHandler(telemetry.Handler()))

	// Local blob driver: serve stored uploads and documents directly
	if fsStore, ok := store.(*blob.FilesystemStore); ok {
		e.Static("/files", fsStore.Dir())
	}

	// Strip the "build/" prefix so URLs work correctly
	subFS, err := fs.Sub(embeddedFiles, "build")
	if err != nil {
		logger.Fatal("open embedded build fs failed", zap.Error(err))
	}
	fileServer := http.FileServer(http.FS(subFS))
	e.GET("/*", func(c echo.Context) error {
		path := c.Request().URL.Path

		// If request is for a static file, serve it
		if strings.Contains(path, ".") {
			http.StripPrefix("/", fileServer).ServeHTTP(c.Response(), c.Request())
			return nil
		}
		// Otherwise, serve `index.html` for client-side routing (SPA fallback)
		indexFile, err := subFS.Open("index.html")
		if err != nil {
			return c.NoContent(http.StatusNotFound)
		}
		defer indexFile.Close()

		return c.Stream(http.StatusOK, "text/html", indexFile)
	})

	var handler http.Handler = e
	if cfg.TracingBackend != "none" {
		handler = telemetry.Wrap(e)
	}

	if cfg.Debug {
		logger.Info("starting server", zap.String("mode", "debug"), zap.String("addr", cfg.Port))
		s := &http.Server{Addr: cfg.Port, Handler: handler}
		if err := s.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server exited", zap.Error(err))
		}
		return
	}

	autoTLS := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		Cache:      autocert.DirCache(".cache"),
		HostPolicy: hostPolicy(cfg, h),
	}

	s := &http.Server{
		Addr:         ":443",
		Handler:      handler,
		TLSConfig:    autoTLS.TLSConfig(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// ACME http-01 challenges and http->https redirects
	go func() {
		if err := http.ListenAndServe(":80", autoTLS.HTTPHandler(nil)); err != nil {
			logger.Error("http challenge server exited", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("mode", "tls"), zap.Strings("domains", cfg.TLSDomains))
	if err := s.ListenAndServeTLS("", ""); err != http.ErrServerClosed {
		logger.Error("tls server exited", zap.Error(err))
		os.Exit(1)
	}
}

// ownHosts are the app's own hostnames, which never resolve to a trainer page.
func ownHosts(cfg *config.Config) []string {
	hosts := append([]string{"localhost"}, cfg.TLSDomains...)
	if u, err := url.Parse(cfg.PublicBaseURL); err == nil && u.Host != "" {
		hosts = append(hosts, u.Host)
	}
	return hosts
}

// hostPolicy admits certificates for the app's domains and any mapped trainer domain.
func hostPolicy(cfg *config.Config, h *handlers.Handler) autocert.HostPolicy {
	own := autocert.HostWhitelist(cfg.TLSDomains...)
	return func(ctx context.Context, host string) error {
		if err := own(ctx, host); err == nil {
			return nil
		}
		return h.HostMapped(ctx, host)
	}
}
