// Package site turns a reviewed submission into the trainer document the
// microsite template is rendered from.
package site

import (
	"time"

	"github.com/padraicbc/trainerpages/models"
)

// DocumentVersion is bumped when the document shape changes incompatibly.
const DocumentVersion = 1

// Document is the JSON consumed by the trainer page template.
type Document struct {
	Version        int                  `json:"version"`
	Slug           string               `json:"slug"`
	Name           string               `json:"name"`
	BusinessName   string               `json:"businessName,omitempty"`
	Tagline        string               `json:"tagline,omitempty"`
	Bio            string               `json:"bio"`
	Location       string               `json:"location,omitempty"`
	Contact        Contact              `json:"contact"`
	Specialties    []string             `json:"specialties"`
	Certifications []string             `json:"certifications"`
	Programs       []models.Program     `json:"programs"`
	Testimonials   []models.Testimonial `json:"testimonials"`
	Media          Media                `json:"media"`
	Features       models.Features      `json:"features"`
	BrandColor     string               `json:"brandColor,omitempty"`
	GeneratedAt    time.Time            `json:"generatedAt"`
}

type Contact struct {
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Website   string `json:"website,omitempty"`
	Linktree  string `json:"linktree,omitempty"`
}

type Media struct {
	ProfileImage string   `json:"profileImage,omitempty"`
	CoverImage   string   `json:"coverImage,omitempty"`
	Gallery      []string `json:"gallery"`
}

// FromSubmission copies every content field of s into a new document. Workflow
// fields (status, notes, review timestamps) stay behind.
func FromSubmission(s *models.Submission, now time.Time) *Document {
	return &Document{
		Version:      DocumentVersion,
		Slug:         s.Slug,
		Name:         s.FullName,
		BusinessName: s.BusinessName,
		Tagline:      s.Tagline,
		Bio:          s.Bio,
		Location:     s.Location,
		Contact: Contact{
			Email:     s.Email,
			Phone:     s.Phone,
			Instagram: s.Instagram,
			Website:   s.WebsiteURL,
			Linktree:  s.LinktreeURL,
		},
		Specialties:    nonNil(s.Specialties),
		Certifications: nonNil(s.Certifications),
		Programs:       nonNil(s.Programs),
		Testimonials:   nonNil(s.Testimonials),
		Media: Media{
			ProfileImage: s.ProfileImageURL,
			CoverImage:   s.CoverImageURL,
			Gallery:      nonNil(s.GalleryURLs),
		},
		Features:    s.Features,
		BrandColor:  s.BrandColor,
		GeneratedAt: now.UTC(),
	}
}

// DisplayName is the business name when set, else the trainer's name.
func (d *Document) DisplayName() string {
	if d.BusinessName != "" {
		return d.BusinessName
	}
	return d.Name
}

// nonNil keeps empty lists as [] rather than null in the JSON output.
func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
