// Package ai rewrites trainer-supplied copy into polished page text through a
// chat-completion model.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/padraicbc/trainerpages/config"
	"github.com/padraicbc/trainerpages/models"
)

// Content is the subset of a submission the rewriter may change.
type Content struct {
	Bio      string           `json:"bio"`
	Tagline  string           `json:"tagline"`
	Programs []models.Program `json:"programs"`
}

// Rewriter returns an improved version of c with the same structure.
type Rewriter interface {
	Rewrite(ctx context.Context, c Content) (Content, error)
}

// ErrDisabled is returned by New when no provider is configured.
var ErrDisabled = errors.New("ai: no provider configured")

// New returns the Rewriter for cfg.Provider.
func New(ctx context.Context, cfg config.AIConfig) (Rewriter, error) {
	switch cfg.Provider {
	case "", "none":
		return nil, ErrDisabled
	case "gemini":
		return NewGemini(ctx, cfg.APIKey, cfg.Model)
	case "openai":
		return NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL)
	}
	return nil, fmt.Errorf("ai: unsupported provider %q", cfg.Provider)
}

const systemPrompt = `You are a copywriter for personal trainers' websites.
Rewrite the trainer's bio, tagline and program descriptions so they read clearly and
confidently in the first person. Keep every fact, name, price and duration exactly as
given. Do not invent credentials, results or testimonials. Keep the tagline under 80
characters. Return only JSON with the keys "bio", "tagline" and "programs", where
"programs" has one entry per input program, in the same order, each with "title",
"description", "duration" and "price".`

// userPrompt renders the input content as the JSON the model is asked to rewrite.
func userPrompt(c Content) (string, error) {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err
	}
	return "Rewrite this content:\n" + string(b), nil
}

// parseResponse decodes the model's JSON answer and merges it onto the original.
// Titles, prices and durations always come from the original; a program the model
// dropped keeps its original description; empty answers keep the original text.
func parseResponse(text string, orig Content) (Content, error) {
	text = stripFence(text)
	var got Content
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		return Content{}, fmt.Errorf("ai: decode response: %w", err)
	}

	out := Content{
		Bio:      pick(got.Bio, orig.Bio),
		Tagline:  pick(got.Tagline, orig.Tagline),
		Programs: make([]models.Program, len(orig.Programs)),
	}
	for i, p := range orig.Programs {
		out.Programs[i] = p
		if i < len(got.Programs) {
			out.Programs[i].Description = pick(got.Programs[i].Description, p.Description)
		}
	}
	return out, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func pick(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return strings.TrimSpace(v)
}
