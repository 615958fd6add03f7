package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/padraicbc/trainerpages/models"
	"github.com/padraicbc/trainerpages/site"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type submissionList struct {
	Items []models.Submission `json:"items"`
	Total int                 `json:"total"`
}

// ListSubmissions returns submissions newest first, optionally filtered by
// status and a case-insensitive search over name, business, email and slug.
func (h *Handler) ListSubmissions(c echo.Context) error {
	limit, err := intParam(c, "limit", defaultListLimit)
	if err != nil {
		return err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	offset, err := intParam(c, "offset", 0)
	if err != nil {
		return err
	}
	if offset < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "offset must not be negative")
	}

	var status models.Status
	if s := c.QueryParam("status"); s != "" {
		if status, err = models.ParseStatus(s); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	q := strings.ToLower(strings.TrimSpace(c.QueryParam("q")))

	filter := func(sq *bun.SelectQuery) *bun.SelectQuery {
		if status != "" {
			sq = sq.Where("s.status = ?", status)
		}
		if q != "" {
			like := "%" + q + "%"
			sq = sq.WhereGroup(" AND ", func(g *bun.SelectQuery) *bun.SelectQuery {
				return g.Where("LOWER(s.full_name) LIKE ?", like).
					WhereOr("LOWER(s.business_name) LIKE ?", like).
					WhereOr("LOWER(s.email) LIKE ?", like).
					WhereOr("s.slug LIKE ?", like)
			})
		}
		return sq
	}

	ctx := c.Request().Context()
	total, err := filter(h.db.NewSelect().Model((*models.Submission)(nil))).Count(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	items := make([]models.Submission, 0)
	err = filter(h.db.NewSelect().Model(&items)).
		OrderExpr("s.created_at DESC").
		OrderExpr("s.id ASC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, submissionList{Items: items, Total: total})
}

// GetSubmission returns one submission.
func (h *Handler) GetSubmission(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	sub := new(models.Submission)
	if err := h.db.NewSelect().Model(sub).Where("s.id = ?", id).Scan(c.Request().Context()); err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, sub)
}

// submissionPatch holds an admin edit. Nil fields are left unchanged.
type submissionPatch struct {
	FullName        *string               `json:"fullName"`
	BusinessName    *string               `json:"businessName"`
	Email           *string               `json:"email"`
	Phone           *string               `json:"phone"`
	Location        *string               `json:"location"`
	Instagram       *string               `json:"instagram"`
	LinktreeURL     *string               `json:"linktreeUrl"`
	WebsiteURL      *string               `json:"websiteUrl"`
	Bio             *string               `json:"bio"`
	Tagline         *string               `json:"tagline"`
	Specialties     *[]string             `json:"specialties"`
	Certifications  *[]string             `json:"certifications"`
	Programs        *[]models.Program     `json:"programs"`
	Testimonials    *[]models.Testimonial `json:"testimonials"`
	ProfileImageURL *string               `json:"profileImageUrl"`
	CoverImageURL   *string               `json:"coverImageUrl"`
	GalleryURLs     *[]string             `json:"galleryUrls"`
	Features        *models.Features      `json:"features"`
	BrandColor      *string               `json:"brandColor"`
	AdminNotes      *string               `json:"adminNotes"`
}

// apply copies set fields onto s and returns the columns it touched.
func (p *submissionPatch) apply(s *models.Submission) []string {
	var cols []string
	str := func(col string, src *string, dst *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
			cols = append(cols, col)
		}
	}
	str("full_name", p.FullName, &s.FullName)
	str("business_name", p.BusinessName, &s.BusinessName)
	str("email", p.Email, &s.Email)
	str("phone", p.Phone, &s.Phone)
	str("location", p.Location, &s.Location)
	str("instagram", p.Instagram, &s.Instagram)
	str("linktree_url", p.LinktreeURL, &s.LinktreeURL)
	str("website_url", p.WebsiteURL, &s.WebsiteURL)
	str("bio", p.Bio, &s.Bio)
	str("tagline", p.Tagline, &s.Tagline)
	str("profile_image_url", p.ProfileImageURL, &s.ProfileImageURL)
	str("cover_image_url", p.CoverImageURL, &s.CoverImageURL)
	str("brand_color", p.BrandColor, &s.BrandColor)
	str("admin_notes", p.AdminNotes, &s.AdminNotes)

	if p.Specialties != nil {
		s.Specialties = cleanStrings(*p.Specialties)
		cols = append(cols, "specialties")
	}
	if p.Certifications != nil {
		s.Certifications = cleanStrings(*p.Certifications)
		cols = append(cols, "certifications")
	}
	if p.Programs != nil {
		s.Programs = cleanPrograms(*p.Programs)
		cols = append(cols, "programs")
	}
	if p.Testimonials != nil {
		s.Testimonials = cleanTestimonials(*p.Testimonials)
		cols = append(cols, "testimonials")
	}
	if p.GalleryURLs != nil {
		s.GalleryURLs = cleanStrings(*p.GalleryURLs)
		cols = append(cols, "gallery_urls")
	}
	if p.Features != nil {
		s.Features = *p.Features
		cols = append(cols, "features")
	}
	return cols
}

// UpdateSubmission applies a partial edit to a submission's content fields.
func (h *Handler) UpdateSubmission(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var patch submissionPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	sub := new(models.Submission)
	if err := h.db.NewSelect().Model(sub).Where("s.id = ?", id).Scan(ctx); err != nil {
		return storeError(err)
	}

	cols := patch.apply(sub)
	if len(cols) == 0 {
		return c.JSON(http.StatusOK, sub)
	}
	if err := validateSubmission(sub); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	_, err = h.db.NewUpdate().Model(sub).
		Column(append(cols, "updated_at")...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sub)
}

type statusRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes"`
}

// SetStatus moves a submission through review. Re-applying the current status
// succeeds without changing review timestamps.
func (h *Handler) SetStatus(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Status) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "status is required")
	}
	next, err := models.ParseStatus(strings.TrimSpace(req.Status))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	sub := new(models.Submission)
	if err := h.db.NewSelect().Model(sub).Where("s.id = ?", id).Scan(ctx); err != nil {
		return storeError(err)
	}
	current := sub.Status
	if !current.CanTransition(next) {
		return echo.NewHTTPError(http.StatusConflict, "cannot move submission from "+string(current)+" to "+string(next))
	}

	cols := []string{"updated_at"}
	if req.Notes != nil {
		sub.AdminNotes = strings.TrimSpace(*req.Notes)
		cols = append(cols, "admin_notes")
	}
	if next != current {
		sub.Status = next
		cols = append(cols, "status")
		if next == models.StatusApproved || next == models.StatusRejected {
			now := time.Now().UTC()
			sub.ReviewedAt = &now
			cols = append(cols, "reviewed_at")
		}
	}
	if len(cols) == 1 {
		return c.JSON(http.StatusOK, sub)
	}

	// compare-and-set on the status read above
	res, err := h.db.NewUpdate().Model(sub).
		Column(cols...).
		WherePK().
		Where("status = ?", current).
		Exec(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return echo.NewHTTPError(http.StatusConflict, "submission status changed concurrently, reload and retry")
	}

	h.log.Info("submission status set",
		zap.String("id", sub.ID.String()),
		zap.String("from", string(current)),
		zap.String("to", string(sub.Status)),
	)
	return c.JSON(http.StatusOK, sub)
}

type generateRequest struct {
	Enhance bool `json:"enhance"`
}

// Generate builds and publishes the trainer document and microsite.
func (h *Handler) Generate(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.generator.Generate(c.Request().Context(), id, req.Enhance)
	if err != nil {
		return generateError(err)
	}
	h.log.Info("document generated",
		zap.String("id", id.String()),
		zap.String("slug", res.Document.Slug),
		zap.Bool("enhanced", req.Enhance),
	)
	return c.JSON(http.StatusOK, res)
}

func generateError(err error) error {
	var stageErr *site.StageError
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, site.ErrNotGeneratable):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, site.ErrRewriteDisabled):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &stageErr):
		switch stageErr.Stage {
		case site.StageRewrite, site.StageUpload:
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		case site.StageValidate:
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func intParam(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be an integer")
	}
	return n, nil
}
