package handlers

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	mw "github.com/padraicbc/trainerpages/middleware"
)

// Register mounts the API and trainer page routes. throttle is applied to the
// public write endpoints.
func (h *Handler) Register(e *echo.Echo, throttle ...echo.MiddlewareFunc) {
	api := e.Group("/api")

	// Public
	api.POST("/submissions", h.CreateSubmission, throttle...)
	api.POST("/uploads", h.Upload, append([]echo.MiddlewareFunc{echomw.BodyLimit("11M")}, throttle...)...)
	api.POST("/linktree", h.Linktree, throttle...)
	api.POST("/admin/verify-passcode", h.VerifyPasscode, throttle...)
	api.GET("/trainers/:slug", h.TrainerDocument)
	api.GET("/resolve", h.Resolve)

	// Admin – passcode header or bearer session token
	admin := api.Group("/admin", mw.AdminAuth(h.passcode, h.sessions))
	admin.GET("/submissions", h.ListSubmissions)
	admin.GET("/submissions/:id", h.GetSubmission)
	admin.PATCH("/submissions/:id", h.UpdateSubmission)
	admin.PUT("/submissions/:id/status", h.SetStatus)
	admin.POST("/submissions/:id/generate", h.Generate)
	admin.GET("/domains", h.ListDomains)
	admin.POST("/domains", h.CreateDomain)
	admin.PUT("/domains/:id/primary", h.SetPrimaryDomain)
	admin.DELETE("/domains/:id", h.DeleteDomain)
	admin.POST("/ai/rewrite", h.Rewrite)

	e.GET("/t/:slug", h.TrainerSite)
	e.GET("/healthz", h.Health)
}
