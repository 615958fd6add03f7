package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Program is one coaching offer a trainer lists on their page.
type Program struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Duration    string `json:"duration,omitempty"`
	Price       string `json:"price,omitempty"`
}

// Testimonial is a client quote.
type Testimonial struct {
	Name  string `json:"name"`
	Quote string `json:"quote"`
}

// Features are the add-ons a trainer said they are interested in.
type Features struct {
	OnlineCoaching bool `json:"onlineCoaching"`
	InPerson       bool `json:"inPerson"`
	Nutrition      bool `json:"nutrition"`
	Booking        bool `json:"booking"`
	Shop           bool `json:"shop"`
	Newsletter     bool `json:"newsletter"`
}

// Submission is a trainer intake-form record and its review state.
type Submission struct {
	bun.BaseModel `bun:"table:trainer_submissions,alias:s"`

	ID   uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Slug string    `bun:"slug,notnull,unique" json:"slug"`

	FullName     string `bun:"full_name,notnull" json:"fullName"`
	BusinessName string `bun:"business_name" json:"businessName"`
	Email        string `bun:"email,notnull" json:"email"`
	Phone        string `bun:"phone" json:"phone"`
	Location     string `bun:"location" json:"location"`
	Instagram    string `bun:"instagram" json:"instagram"`
	LinktreeURL  string `bun:"linktree_url" json:"linktreeUrl"`
	WebsiteURL   string `bun:"website_url" json:"websiteUrl"`

	Bio            string        `bun:"bio,notnull" json:"bio"`
	Tagline        string        `bun:"tagline" json:"tagline"`
	Specialties    []string      `bun:"specialties,type:jsonb" json:"specialties"`
	Certifications []string      `bun:"certifications,type:jsonb" json:"certifications"`
	Programs       []Program     `bun:"programs,type:jsonb" json:"programs"`
	Testimonials   []Testimonial `bun:"testimonials,type:jsonb" json:"testimonials"`

	ProfileImageURL string   `bun:"profile_image_url" json:"profileImageUrl"`
	CoverImageURL   string   `bun:"cover_image_url" json:"coverImageUrl"`
	GalleryURLs     []string `bun:"gallery_urls,type:jsonb" json:"galleryUrls"`

	Features   Features `bun:"features,type:jsonb" json:"features"`
	BrandColor string   `bun:"brand_color" json:"brandColor"`

	Status      Status     `bun:"status,notnull" json:"status"`
	AdminNotes  string     `bun:"admin_notes" json:"adminNotes"`
	AIEnhanced  bool       `bun:"ai_enhanced,notnull" json:"aiEnhanced"`
	DocumentURL string     `bun:"document_url" json:"documentUrl"`
	SiteURL     string     `bun:"site_url" json:"siteUrl"`
	CreatedAt   time.Time  `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull" json:"updatedAt"`
	ReviewedAt  *time.Time `bun:"reviewed_at" json:"reviewedAt,omitempty"`
	GeneratedAt *time.Time `bun:"generated_at" json:"generatedAt,omitempty"`
}

var _ bun.BeforeAppendModelHook = (*Submission)(nil)

// BeforeAppendModel fills the id and timestamps bun does not manage itself.
func (s *Submission) BeforeAppendModel(_ context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		if s.Status == "" {
			s.Status = StatusPending
		}
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		s.UpdatedAt = now
	case *bun.UpdateQuery:
		s.UpdatedAt = now
	}
	return nil
}
