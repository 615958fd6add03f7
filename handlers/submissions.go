package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/padraicbc/trainerpages/models"
	"github.com/padraicbc/trainerpages/scraper"
	"github.com/padraicbc/trainerpages/site"
	"github.com/padraicbc/trainerpages/telemetry"
)

const maxSlugAttempts = 100

type submissionRequest struct {
	FullName        string               `json:"fullName"`
	BusinessName    string               `json:"businessName"`
	Email           string               `json:"email"`
	Phone           string               `json:"phone"`
	Location        string               `json:"location"`
	Instagram       string               `json:"instagram"`
	LinktreeURL     string               `json:"linktreeUrl"`
	WebsiteURL      string               `json:"websiteUrl"`
	Bio             string               `json:"bio"`
	Tagline         string               `json:"tagline"`
	Specialties     []string             `json:"specialties"`
	Certifications  []string             `json:"certifications"`
	Programs        []models.Program     `json:"programs"`
	Testimonials    []models.Testimonial `json:"testimonials"`
	ProfileImageURL string               `json:"profileImageUrl"`
	CoverImageURL   string               `json:"coverImageUrl"`
	GalleryURLs     []string             `json:"galleryUrls"`
	Features        models.Features      `json:"features"`
	BrandColor      string               `json:"brandColor"`
}

type submissionCreated struct {
	ID     uuid.UUID     `json:"id"`
	Slug   string        `json:"slug"`
	Status models.Status `json:"status"`
}

func (r *submissionRequest) toModel() *models.Submission {
	return &models.Submission{
		FullName:        strings.TrimSpace(r.FullName),
		BusinessName:    strings.TrimSpace(r.BusinessName),
		Email:           strings.TrimSpace(r.Email),
		Phone:           strings.TrimSpace(r.Phone),
		Location:        strings.TrimSpace(r.Location),
		Instagram:       strings.TrimSpace(r.Instagram),
		LinktreeURL:     strings.TrimSpace(r.LinktreeURL),
		WebsiteURL:      strings.TrimSpace(r.WebsiteURL),
		Bio:             strings.TrimSpace(r.Bio),
		Tagline:         strings.TrimSpace(r.Tagline),
		Specialties:     cleanStrings(r.Specialties),
		Certifications:  cleanStrings(r.Certifications),
		Programs:        cleanPrograms(r.Programs),
		Testimonials:    cleanTestimonials(r.Testimonials),
		ProfileImageURL: strings.TrimSpace(r.ProfileImageURL),
		CoverImageURL:   strings.TrimSpace(r.CoverImageURL),
		GalleryURLs:     cleanStrings(r.GalleryURLs),
		Features:        r.Features,
		BrandColor:      strings.TrimSpace(r.BrandColor),
	}
}

// validateSubmission reports the first missing or malformed required field.
func validateSubmission(s *models.Submission) error {
	switch {
	case s.FullName == "":
		return fmt.Errorf("fullName is required")
	case s.Email == "":
		return fmt.Errorf("email is required")
	case !validEmail(s.Email):
		return fmt.Errorf("email is invalid")
	case s.Bio == "":
		return fmt.Errorf("bio is required")
	}
	if err := validatePrograms(s.Programs); err != nil {
		return err
	}
	return validateURLs(s)
}

// validatePrograms requires a title on every program; the published document does too.
func validatePrograms(programs []models.Program) error {
	for i, p := range programs {
		if p.Title == "" {
			return fmt.Errorf("programs[%d].title is required", i)
		}
	}
	return nil
}

// validateURLs requires every link and image field to be an absolute http(s) URL.
func validateURLs(s *models.Submission) error {
	fields := []struct {
		name, value string
	}{
		{"linktreeUrl", s.LinktreeURL},
		{"websiteUrl", s.WebsiteURL},
		{"profileImageUrl", s.ProfileImageURL},
		{"coverImageUrl", s.CoverImageURL},
	}
	for i, g := range s.GalleryURLs {
		fields = append(fields, struct{ name, value string }{fmt.Sprintf("galleryUrls[%d]", i), g})
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if _, err := scraper.ValidateURL(f.value); err != nil {
			return fmt.Errorf("%s must be an http(s) URL", f.name)
		}
	}
	return nil
}

// CreateSubmission stores a trainer's intake form and sends the follow-up emails.
func (h *Handler) CreateSubmission(c echo.Context) error {
	var req submissionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	sub := req.toModel()
	if err := validateSubmission(sub); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	base := sub.BusinessName
	if site.Slugify(base) == "" {
		base = sub.FullName
	}
	if err := insertWithSlug(ctx, h.db, sub, base); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	telemetry.SubmissionStored()
	h.log.Info("submission stored", zap.String("id", sub.ID.String()), zap.String("slug", sub.Slug))

	if h.notifier != nil {
		if err := h.notifier.SubmissionReceived(ctx, sub); err != nil {
			telemetry.EmailFailed()
			h.log.Warn("submission email failed", zap.String("id", sub.ID.String()), zap.Error(err))
		}
	}

	return c.JSON(http.StatusCreated, submissionCreated{ID: sub.ID, Slug: sub.Slug, Status: sub.Status})
}

// insertWithSlug stores s under the first free slug derived from name: name,
// name-2, name-3... A slug taken by a concurrent insert is skipped, not reported.
func insertWithSlug(ctx context.Context, db bun.IDB, s *models.Submission, name string) error {
	base := site.Slugify(name)
	if base == "" {
		base = "trainer"
	}
	for n := 1; n <= maxSlugAttempts; n++ {
		s.Slug = site.WithSuffix(base, n)
		res, err := db.NewInsert().Model(s).
			On("CONFLICT (slug) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return err
		}
		if inserted, err := res.RowsAffected(); err == nil && inserted > 0 {
			return nil
		}
	}
	return fmt.Errorf("no free slug for %q", base)
}

// validEmail accepts a single bare address with a dotted domain.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Name != "" || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	domain := s[at+1:]
	return strings.Contains(domain, ".") && !strings.HasSuffix(domain, ".")
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func cleanPrograms(in []models.Program) []models.Program {
	out := make([]models.Program, 0, len(in))
	for _, p := range in {
		p.Title = strings.TrimSpace(p.Title)
		p.Description = strings.TrimSpace(p.Description)
		p.Duration = strings.TrimSpace(p.Duration)
		p.Price = strings.TrimSpace(p.Price)
		if p.Title == "" && p.Description == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func cleanTestimonials(in []models.Testimonial) []models.Testimonial {
	out := make([]models.Testimonial, 0, len(in))
	for _, t := range in {
		t.Name = strings.TrimSpace(t.Name)
		t.Quote = strings.TrimSpace(t.Quote)
		if t.Quote == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}
