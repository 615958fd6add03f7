package scraper

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Page is the parsed content of one HTML page.
type Page struct {
	Markdown string
	Links    []string
	Metadata Metadata
}

// ParseHTML extracts metadata, absolute http(s) links and a plain markdown
// rendering of the text from an HTML document. Relative links resolve against base.
func ParseHTML(r io.Reader, base *url.URL) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	p := &pageBuilder{base: base, seen: map[string]bool{}, links: []string{}}
	p.walk(doc)

	meta := p.meta
	if meta.Title == "" {
		meta.Title = p.ogTitle
	}
	if meta.Description == "" {
		meta.Description = p.ogDescription
	}
	return &Page{
		Markdown: tidy(p.md.String()),
		Links:    p.links,
		Metadata: meta,
	}, nil
}

type pageBuilder struct {
	base  *url.URL
	seen  map[string]bool
	links []string
	meta  Metadata
	md    strings.Builder

	ogTitle       string
	ogDescription string
}

func (p *pageBuilder) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Svg:
			return
		case atom.Title:
			if p.meta.Title == "" {
				p.meta.Title = strings.TrimSpace(textOf(n))
			}
			return
		case atom.Meta:
			p.readMeta(n)
			return
		case atom.A:
			href := p.resolve(attr(n, "href"))
			text := strings.Join(strings.Fields(textOf(n)), " ")
			if href != "" {
				if !p.seen[href] {
					p.seen[href] = true
					p.links = append(p.links, href)
				}
				if text == "" {
					text = href
				}
				p.md.WriteString("[" + text + "](" + href + ")\n")
			} else if text != "" {
				p.md.WriteString(text + "\n")
			}
			return
		case atom.H1, atom.H2, atom.H3:
			if text := strings.Join(strings.Fields(textOf(n)), " "); text != "" {
				level := int(n.Data[1] - '0')
				p.md.WriteString("\n" + strings.Repeat("#", level) + " " + text + "\n\n")
			}
			return
		case atom.P, atom.Li:
			if text := strings.Join(strings.Fields(textOf(n)), " "); text != "" && !hasLink(n) {
				p.md.WriteString(text + "\n\n")
				return
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.walk(c)
	}
}

func (p *pageBuilder) readMeta(n *html.Node) {
	content := strings.TrimSpace(attr(n, "content"))
	if content == "" {
		return
	}
	switch strings.ToLower(attr(n, "name") + attr(n, "property")) {
	case "description":
		p.meta.Description = content
	case "og:description":
		p.ogDescription = content
	case "og:title":
		p.ogTitle = content
	case "og:image":
		p.meta.OGImage = p.resolve(content)
	}
}

func (p *pageBuilder) resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if p.base != nil {
		u = p.base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	u.Fragment = ""
	return u.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			return
		}
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return sb.String()
}

func hasLink(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.A {
			return true
		}
		if hasLink(c) {
			return true
		}
	}
	return false
}

// tidy collapses runs of blank lines.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := true
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, l)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
