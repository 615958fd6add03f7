package blob

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padraicbc/trainerpages/config"
)

func TestCleanKey(t *testing.T) {
	k, err := CleanKey("/trainers//jo.json")
	require.NoError(t, err)
	assert.Equal(t, "trainers/jo.json", k)

	for _, bad := range []string{"", "/", "../etc/passwd", "a/../../b"} {
		_, err := CleanKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "trainers/jo-fit.json", DocumentKey("jo-fit"))
	assert.Equal(t, "trainers/jo-fit/index.html", SiteKey("jo-fit"))
}

func TestFilesystemRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFilesystemStore(t.TempDir(), "http://localhost:9000/files")
	require.NoError(t, err)

	url, err := store.Put(ctx, "trainers/jo/index.html", []byte("<h1>Jo</h1>"), "text/html")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/files/trainers/jo/index.html", url)

	got, err := store.Get(ctx, "trainers/jo/index.html")
	require.NoError(t, err)
	assert.Equal(t, "<h1>Jo</h1>", string(got))

	_, err = store.Get(ctx, "trainers/missing.json")
	assert.ErrorIs(t, err, ErrNotFound)

	// overwrite leaves no temp file behind
	_, err = store.Put(ctx, "trainers/jo/index.html", []byte("v2"), "text/html")
	require.NoError(t, err)
	entries, err := os.ReadDir(store.Dir() + "/trainers/jo")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, strings.HasSuffix(entries[0].Name(), ".tmp"))
}

func TestNewSelectsDriver(t *testing.T) {
	s, err := New(context.Background(), config.BlobConfig{Driver: "filesystem", Directory: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FilesystemStore{}, s)

	_, err = New(context.Background(), config.BlobConfig{Driver: "gcs"})
	assert.ErrorContains(t, err, "unsupported")

	_, err = New(context.Background(), config.BlobConfig{Driver: "s3"})
	assert.ErrorContains(t, err, "bucket and region")
}

func TestS3PublicAndSignedURLs(t *testing.T) {
	ctx := context.Background()
	base := config.BlobConfig{
		Driver: "s3", Bucket: "pages", Region: "eu-west-1",
		AccessKey: "AKIDEXAMPLE", SecretKey: "secret",
	}

	s, err := NewS3Store(ctx, base)
	require.NoError(t, err)
	url, err := s.URL(ctx, "trainers/jo.json")
	require.NoError(t, err)
	assert.Equal(t, "https://pages.s3.eu-west-1.amazonaws.com/trainers/jo.json", url)

	withBase := base
	withBase.BaseURL = "https://cdn.example.com"
	s, err = NewS3Store(ctx, withBase)
	require.NoError(t, err)
	url, err = s.URL(ctx, "trainers/jo.json")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/trainers/jo.json", url)

	signed := base
	signed.SignedURLTTL = 10 * time.Minute
	s, err = NewS3Store(ctx, signed)
	require.NoError(t, err)
	url, err = s.URL(ctx, "trainers/jo.json")
	require.NoError(t, err)
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "trainers/jo.json")
}

func TestS3RoundTrip(t *testing.T) {
	bucket := os.Getenv("S3_TEST_BUCKET")
	region := os.Getenv("S3_TEST_REGION")
	if bucket == "" || region == "" {
		t.Skip("S3_TEST_BUCKET or S3_TEST_REGION not set")
	}
	ctx := context.Background()
	s, err := NewS3Store(ctx, config.BlobConfig{Bucket: bucket, Region: region})
	require.NoError(t, err)

	_, err = s.Put(ctx, "test/roundtrip.txt", []byte("test-data"), "text/plain")
	require.NoError(t, err)
	got, err := s.Get(ctx, "test/roundtrip.txt")
	require.NoError(t, err)
	assert.Equal(t, "test-data", string(got))
}
