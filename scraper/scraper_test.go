package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padraicbc/trainerpages/config"
)

const linkPage = `<!doctype html>
<html><head>
<title>@samrivera | Linktree</title>
<meta name="description" content="Strength coach in Leeds">
<meta property="og:image" content="/img/sam.jpg">
<script>var x = "<a href='https://evil.test'>"</script>
</head><body>
<h1>Sam Rivera</h1>
<p>Helping busy people get strong.</p>
<ul>
<li><a href="https://www.instagram.com/samrivera/">Instagram</a></li>
<li><a href="https://www.tiktok.com/@samrivera">TikTok</a></li>
<li><a href="https://calendly.com/samrivera/intro">Book a call</a></li>
<li><a href="https://strongwithsam.com#top">Website</a></li>
<li><a href="https://strongwithsam.com">Website again</a></li>
<li><a href="https://facebook.com/samrivera">Facebook</a></li>
<li><a href="/privacy">Privacy</a></li>
<li><a href="mailto:sam@example.com">Email</a></li>
</ul>
</body></html>`

func TestParseHTML(t *testing.T) {
	base, _ := url.Parse("https://linktr.ee/samrivera")
	page, err := ParseHTML(strings.NewReader(linkPage), base)
	require.NoError(t, err)

	assert.Equal(t, "@samrivera | Linktree", page.Metadata.Title)
	assert.Equal(t, "Strength coach in Leeds", page.Metadata.Description)
	assert.Equal(t, "https://linktr.ee/img/sam.jpg", page.Metadata.OGImage)
	assert.Equal(t, []string{
		"https://www.instagram.com/samrivera/",
		"https://www.tiktok.com/@samrivera",
		"https://calendly.com/samrivera/intro",
		"https://strongwithsam.com",
		"https://facebook.com/samrivera",
		"https://linktr.ee/privacy",
	}, page.Links)
	assert.Contains(t, page.Markdown, "# Sam Rivera")
	assert.Contains(t, page.Markdown, "Helping busy people get strong.")
	assert.Contains(t, page.Markdown, "[Book a call](https://calendly.com/samrivera/intro)")
	assert.NotContains(t, page.Markdown, "evil.test")
}

func TestBuildProfile(t *testing.T) {
	p := BuildProfile(Metadata{Title: "@samrivera | Linktree", Description: "Coach", OGImage: "https://x/a.jpg"}, []string{
		"https://linktr.ee/privacy",
		"https://www.instagram.com/samrivera/",
		"https://instagram.com/samrivera_two",
		"https://youtu.be/abc",
		"https://book.example.com/sam",
		"https://strongwithsam.com",
		"https://shop.example.com",
		"https://x.com/sam",
	})
	assert.Equal(t, "samrivera", p.Name)
	assert.Equal(t, "Coach", p.Bio)
	assert.Equal(t, "https://x/a.jpg", p.AvatarURL)
	assert.Equal(t, "https://www.instagram.com/samrivera/", p.Instagram)
	assert.Equal(t, "https://youtu.be/abc", p.YouTube)
	assert.Equal(t, "https://book.example.com/sam", p.Booking)
	assert.Equal(t, "https://strongwithsam.com", p.Website)
	assert.Empty(t, p.TikTok)
	assert.Equal(t, []string{"https://instagram.com/samrivera_two", "https://shop.example.com", "https://x.com/sam"}, p.Other)
}

func TestValidateURL(t *testing.T) {
	for _, bad := range []string{"", "linktr.ee/sam", "ftp://linktr.ee/sam", "https://", "javascript:alert(1)"} {
		_, err := ValidateURL(bad)
		assert.ErrorIs(t, err, ErrInvalidURL, bad)
	}
	u, err := ValidateURL("  https://linktr.ee/sam ")
	require.NoError(t, err)
	assert.Equal(t, "linktr.ee", u.Host)
}

func TestScrapeAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/scrape", r.URL.Path)
		assert.Equal(t, "Bearer fc-key", r.Header.Get("Authorization"))
		var body scrapeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://linktr.ee/samrivera", body.URL)
		assert.Equal(t, []string{"markdown", "links"}, body.Formats)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"markdown":"# Sam","links":["https://instagram.com/sam","https://sam.fit"],"metadata":{"title":"Sam | Linktree","description":"Coach","ogImage":"https://cdn/sam.jpg"}}}`))
	}))
	defer srv.Close()

	c := New(config.ScraperConfig{APIKey: "fc-key", BaseURL: srv.URL + "/"})
	res, err := c.Scrape(context.Background(), "https://linktr.ee/samrivera")
	require.NoError(t, err)
	assert.Equal(t, "# Sam", res.Markdown)
	assert.Equal(t, "Sam", res.Profile.Name)
	assert.Equal(t, "https://instagram.com/sam", res.Profile.Instagram)
	assert.Equal(t, "https://sam.fit", res.Profile.Website)
	assert.Equal(t, "https://cdn/sam.jpg", res.Profile.AvatarURL)
}

func TestScrapeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"success":false,"error":"Insufficient credits"}`))
	}))
	defer srv.Close()

	c := New(config.ScraperConfig{APIKey: "fc-key", BaseURL: srv.URL})
	_, err := c.Scrape(context.Background(), "https://linktr.ee/samrivera")
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusPaymentRequired, upstream.Status)
	assert.Equal(t, "Insufficient credits", upstream.Message)
}

func TestScrapeDirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/samrivera" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(linkPage))
	}))
	defer srv.Close()

	c := New(config.ScraperConfig{RPS: 100})
	res, err := c.Scrape(context.Background(), srv.URL+"/samrivera")
	require.NoError(t, err)
	assert.Equal(t, "samrivera", res.Profile.Name)
	assert.Equal(t, "https://calendly.com/samrivera/intro", res.Profile.Booking)
	assert.Equal(t, "https://strongwithsam.com", res.Profile.Website)
	assert.Contains(t, res.Profile.Other, srv.URL+"/privacy")

	_, err = c.Scrape(context.Background(), srv.URL+"/missing")
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusNotFound, upstream.Status)
}

func TestScrapeHonoursContext(t *testing.T) {
	c := New(config.ScraperConfig{RPS: 0.001})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// the first token is available immediately, so drain it
	c.limiter.Allow()
	_, err := c.Scrape(ctx, "https://linktr.ee/sam")
	assert.Error(t, err)
}
