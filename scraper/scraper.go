// Package scraper imports a trainer's public link page (Linktree and similar)
// through a Firecrawl-compatible scraping API, or by fetching the page directly
// when no API key is configured.
package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/padraicbc/trainerpages/config"
)

const maxPageBytes = 2 << 20

// ErrInvalidURL is returned for anything that is not an absolute http(s) URL.
var ErrInvalidURL = errors.New("url must be an absolute http or https URL")

// UpstreamError is a failure reported by the scraping API or the fetched site.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return "scrape failed: " + e.Message
	}
	return fmt.Sprintf("scrape failed (%d): %s", e.Status, e.Message)
}

// Metadata is page-level information the scraper extracted.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	OGImage     string `json:"ogImage"`
}

// Result is a scraped page.
type Result struct {
	Markdown string   `json:"markdown"`
	Links    []string `json:"links"`
	Profile  Profile  `json:"profile"`
}

// Client scrapes pages, one request at a time per limiter token.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter
}

// New builds a client from config. A non-positive RPS disables throttling.
func New(cfg config.ScraperConfig) *Client {
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	return &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// ValidateURL checks that raw is an absolute http(s) URL.
func ValidateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidURL
	}
	return u, nil
}

// Scrape fetches the page at raw and classifies its links into a profile.
func (c *Client) Scrape(ctx context.Context, raw string) (*Result, error) {
	u, err := ValidateURL(raw)
	if err != nil {
		return nil, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var page *Page
	if c.apiKey != "" {
		page, err = c.scrapeAPI(ctx, u.String())
	} else {
		page, err = c.fetchDirect(ctx, u)
	}
	if err != nil {
		return nil, err
	}

	return &Result{
		Markdown: page.Markdown,
		Links:    page.Links,
		Profile:  BuildProfile(page.Metadata, page.Links),
	}, nil
}

type scrapeRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
}

type scrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		Markdown string   `json:"markdown"`
		Links    []string `json:"links"`
		Metadata Metadata `json:"metadata"`
	} `json:"data"`
}

func (c *Client) scrapeAPI(ctx context.Context, target string) (*Page, error) {
	body, err := json.Marshal(scrapeRequest{URL: target, Formats: []string{"markdown", "links"}})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/scrape", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UpstreamError{Message: err.Error()}
	}
	defer resp.Body.Close()

	var out scrapeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPageBytes)).Decode(&out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &UpstreamError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, &UpstreamError{Status: resp.StatusCode, Message: "decode response: " + err.Error()}
	}
	if resp.StatusCode != http.StatusOK || !out.Success {
		msg := out.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &UpstreamError{Status: resp.StatusCode, Message: msg}
	}

	links := out.Data.Links
	if links == nil {
		links = []string{}
	}
	return &Page{Markdown: out.Data.Markdown, Links: links, Metadata: out.Data.Metadata}, nil
}

func (c *Client) fetchDirect(ctx context.Context, u *url.URL) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "trainerpages-import/1.0")
	req.Header.Set("Accept", "text/html")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UpstreamError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return ParseHTML(io.LimitReader(resp.Body, maxPageBytes), resp.Request.URL)
}
