package scraper

import (
	"net/url"
	"strings"
)

// Profile is what a link page tells us about a trainer.
type Profile struct {
	Name      string   `json:"name"`
	Bio       string   `json:"bio"`
	AvatarURL string   `json:"avatarUrl"`
	Instagram string   `json:"instagram"`
	TikTok    string   `json:"tiktok"`
	YouTube   string   `json:"youtube"`
	Website   string   `json:"website"`
	Booking   string   `json:"booking"`
	Other     []string `json:"other"`
}

var (
	// link-page hosts whose own links are navigation, not the trainer's
	ignoredHosts = []string{"linktr.ee", "linktree.com", "beacons.ai", "stan.store"}

	bookingHosts = []string{
		"calendly.com", "acuityscheduling.com", "as.me", "mindbodyonline.com",
		"setmore.com", "simplybook.me", "vagaro.com", "trainerize.me", "glofox.com",
	}

	socialHosts = []string{
		"facebook.com", "fb.com", "twitter.com", "x.com", "linkedin.com", "threads.net",
		"pinterest.com", "snapchat.com", "spotify.com", "apple.com", "wa.me", "t.me",
	}
)

// BuildProfile classifies links into known slots. The first link of each kind
// wins; the first unclassified non-social link is taken as the website.
func BuildProfile(meta Metadata, links []string) Profile {
	p := Profile{
		Name:      profileName(meta.Title),
		Bio:       meta.Description,
		AvatarURL: meta.OGImage,
		Other:     []string{},
	}

	for _, link := range links {
		u, err := url.Parse(link)
		if err != nil || u.Host == "" {
			continue
		}
		host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		switch {
		case matchHost(host, ignoredHosts):
			continue
		case matchHost(host, []string{"instagram.com"}):
			if !fill(&p.Instagram, link) {
				p.Other = append(p.Other, link)
			}
		case matchHost(host, []string{"tiktok.com"}):
			if !fill(&p.TikTok, link) {
				p.Other = append(p.Other, link)
			}
		case matchHost(host, []string{"youtube.com", "youtu.be"}):
			if !fill(&p.YouTube, link) {
				p.Other = append(p.Other, link)
			}
		case isBooking(host, u.Path):
			if !fill(&p.Booking, link) {
				p.Other = append(p.Other, link)
			}
		case matchHost(host, socialHosts):
			p.Other = append(p.Other, link)
		default:
			if !fill(&p.Website, link) {
				p.Other = append(p.Other, link)
			}
		}
	}
	return p
}

func profileName(title string) string {
	title = strings.TrimSpace(title)
	if i := strings.Index(title, " | "); i >= 0 {
		title = title[:i]
	}
	return strings.TrimSpace(strings.TrimPrefix(title, "@"))
}

func matchHost(host string, list []string) bool {
	for _, h := range list {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func isBooking(host, path string) bool {
	if matchHost(host, bookingHosts) {
		return true
	}
	if strings.HasPrefix(host, "book.") || strings.HasPrefix(host, "booking.") {
		return true
	}
	path = strings.ToLower(path)
	return strings.Contains(path, "/book") || strings.Contains(path, "/appointments")
}

func fill(slot *string, v string) bool {
	if *slot != "" {
		return false
	}
	*slot = v
	return true
}
