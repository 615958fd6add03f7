package site

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/padraicbc/trainerpages/ai"
	"github.com/padraicbc/trainerpages/blob"
	"github.com/padraicbc/trainerpages/models"
	"github.com/padraicbc/trainerpages/telemetry"
)

var (
	// ErrNotGeneratable means the submission has not been approved.
	ErrNotGeneratable = errors.New("submission must be approved before generating")
	// ErrRewriteDisabled means enhancement was requested without an AI provider.
	ErrRewriteDisabled = errors.New("AI rewriting is not configured")
)

// Stage names the step of generation that failed.
type Stage string

const (
	StageRewrite  Stage = "rewrite"
	StageValidate Stage = "validate"
	StageRender   Stage = "render"
	StageUpload   Stage = "upload"
)

// StageError wraps a failure in one of the external steps of generation.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Generator builds, stores and records a trainer's document and microsite.
type Generator struct {
	DB       *bun.DB
	Blob     blob.Store
	Renderer *Renderer
	// Rewriter is nil when no AI provider is configured.
	Rewriter ai.Rewriter
	Now      func() time.Time
}

// Result is what a successful generation produced.
type Result struct {
	Document    *Document `json:"document"`
	DocumentURL string    `json:"documentUrl"`
	SiteURL     string    `json:"siteUrl"`
}

// Generate runs submission -> optional rewrite -> document -> render -> upload
// and marks the submission generated. Rewritten copy is saved back to the row so
// the stored submission and its document stay in step.
func (g *Generator) Generate(ctx context.Context, id uuid.UUID, enhance bool) (*Result, error) {
	sub := new(models.Submission)
	if err := g.DB.NewSelect().Model(sub).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, err
	}
	if !sub.Status.Generatable() {
		return nil, ErrNotGeneratable
	}

	if enhance {
		if g.Rewriter == nil {
			return nil, ErrRewriteDisabled
		}
		out, err := g.Rewriter.Rewrite(ctx, ai.Content{Bio: sub.Bio, Tagline: sub.Tagline, Programs: sub.Programs})
		if err != nil {
			return nil, &StageError{StageRewrite, err}
		}
		sub.Bio, sub.Tagline, sub.Programs = out.Bio, out.Tagline, out.Programs
		sub.AIEnhanced = true
	}

	now := g.now()
	doc := FromSubmission(sub, now)
	raw, err := Marshal(doc)
	if err != nil {
		return nil, &StageError{StageValidate, err}
	}
	page, err := g.Renderer.Render(doc)
	if err != nil {
		return nil, &StageError{StageRender, err}
	}

	docURL, err := g.Blob.Put(ctx, blob.DocumentKey(sub.Slug), raw, "application/json")
	if err != nil {
		return nil, &StageError{StageUpload, err}
	}
	siteURL, err := g.Blob.Put(ctx, blob.SiteKey(sub.Slug), page, "text/html; charset=utf-8")
	if err != nil {
		return nil, &StageError{StageUpload, err}
	}

	sub.Status = models.StatusGenerated
	sub.DocumentURL = docURL
	sub.SiteURL = siteURL
	sub.GeneratedAt = &now
	_, err = g.DB.NewUpdate().Model(sub).
		Column("bio", "tagline", "programs", "ai_enhanced", "status", "document_url", "site_url", "generated_at", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("record generation: %w", err)
	}
	telemetry.DocumentGenerated(sub.AIEnhanced)

	return &Result{Document: doc, DocumentURL: docURL, SiteURL: siteURL}, nil
}

func (g *Generator) now() time.Time {
	if g.Now != nil {
		return g.Now().UTC()
	}
	return time.Now().UTC()
}
