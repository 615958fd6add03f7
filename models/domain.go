package models

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DomainMapping points a hostname at a trainer's page.
type DomainMapping struct {
	bun.BaseModel `bun:"table:domain_mappings,alias:d"`

	ID          uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Hostname    string    `bun:"hostname,notnull,unique" json:"hostname"`
	TrainerSlug string    `bun:"trainer_slug,notnull" json:"trainerSlug"`
	IsPrimary   bool      `bun:"is_primary,notnull" json:"isPrimary"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"createdAt"`
}

var _ bun.BeforeAppendModelHook = (*DomainMapping)(nil)

func (d *DomainMapping) BeforeAppendModel(_ context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok {
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
		if d.CreatedAt.IsZero() {
			d.CreatedAt = time.Now().UTC()
		}
	}
	return nil
}

var ErrInvalidHostname = errors.New("invalid hostname")

// NormalizeHostname lower-cases a host, strips any port, scheme or trailing dot
// and checks that what is left looks like a DNS name.
func NormalizeHostname(raw string) (string, error) {
	h := strings.ToLower(strings.TrimSpace(raw))
	h = strings.TrimPrefix(h, "https://")
	h = strings.TrimPrefix(h, "http://")
	if i := strings.IndexByte(h, '/'); i >= 0 {
		h = h[:i]
	}
	if host, _, err := net.SplitHostPort(h); err == nil {
		h = host
	}
	h = strings.TrimSuffix(h, ".")

	if h == "" || len(h) > 253 || !strings.Contains(h, ".") && h != "localhost" {
		return "", ErrInvalidHostname
	}
	for _, label := range strings.Split(h, ".") {
		if label == "" || len(label) > 63 || label[0] == '-' || label[len(label)-1] == '-' {
			return "", ErrInvalidHostname
		}
		for _, r := range label {
			if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
				return "", ErrInvalidHostname
			}
		}
	}
	return h, nil
}
