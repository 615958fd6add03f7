package site

import (
	_ "embed"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"
	"sync"

	pongo2 "github.com/flosch/pongo2/v6"
)

//go:embed templates/trainer.html.j2
var trainerTemplate string

const defaultBrandColor = "#1f6feb"

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}){1,2}$`)

var registerFilters sync.Once

// Renderer renders trainer documents into standalone HTML pages.
type Renderer struct {
	tpl *pongo2.Template
}

// NewRenderer compiles the embedded microsite template.
func NewRenderer() (*Renderer, error) {
	registerFilters.Do(func() {
		_ = pongo2.RegisterFilter("instagram_url", filterInstagramURL)
		_ = pongo2.RegisterFilter("handle", filterHandle)
		_ = pongo2.RegisterFilter("paragraphs", filterParagraphs)
		_ = pongo2.RegisterFilter("safe_url", filterSafeURL)
	})
	tpl, err := pongo2.FromString(trainerTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse trainer template: %w", err)
	}
	return &Renderer{tpl: tpl}, nil
}

// Render produces the HTML page for d.
func (r *Renderer) Render(d *Document) ([]byte, error) {
	color := d.BrandColor
	if !hexColor.MatchString(color) {
		color = defaultBrandColor
	}
	out, err := r.tpl.ExecuteBytes(pongo2.Context{
		"doc":         d,
		"displayName": d.DisplayName(),
		"brandColor":  color,
	})
	if err != nil {
		return nil, fmt.Errorf("render trainer page: %w", err)
	}
	return out, nil
}

func filterHandle(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue("@" + instagramHandle(in.String())), nil
}

func filterInstagramURL(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue("https://instagram.com/" + instagramHandle(in.String())), nil
}

// filterParagraphs escapes the text and turns blank-line separated blocks into
// paragraphs and single newlines into <br>.
func filterParagraphs(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	text := strings.ReplaceAll(strings.TrimSpace(in.String()), "\r\n", "\n")
	var b strings.Builder
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(block), "\n", "<br>"))
		b.WriteString("</p>")
	}
	return pongo2.AsSafeValue(b.String()), nil
}

// filterSafeURL passes absolute http(s) URLs through and blanks everything else,
// so stored values can never produce script or data links.
func filterSafeURL(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(safeURL(in.String())), nil
}

func safeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return u.String()
}

// instagramHandle accepts "@name", "name" or a profile URL.
func instagramHandle(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "instagram.com/"); i >= 0 {
		s = s[i+len("instagram.com/"):]
	}
	s = strings.TrimPrefix(s, "@")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	return s
}
