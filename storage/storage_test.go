package storage

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/blogicum/config"
)

func TestImageKey(t *testing.T) {
	pattern := regexp.MustCompile(`^posts_images/[0-9a-f-]{36}\.jpg$`)
	assert.Regexp(t, pattern, ImageKey("Holiday.JPG"))
	assert.Regexp(t, pattern, ImageKey(`C:\Users\me\holiday.jpg`))
	assert.NotEqual(t, ImageKey("a.jpg"), ImageKey("a.jpg"))

	noExt := ImageKey("README")
	assert.True(t, strings.HasPrefix(noExt, ImagePrefix+"/"))
	assert.NotContains(t, noExt, ".")
}

func TestLocalStorageSaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "/media/")
	require.NoError(t, err)

	ctx := context.Background()
	url, err := s.Save(ctx, "posts_images/a.png", strings.NewReader("png-bytes"), 9, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "/media/posts_images/a.png", url)

	b, err := os.ReadFile(filepath.Join(dir, "posts_images", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(b))

	require.NoError(t, s.Delete(ctx, "posts_images/a.png"))
	_, err = os.Stat(filepath.Join(dir, "posts_images", "a.png"))
	assert.True(t, os.IsNotExist(err))

	// deleting twice is fine
	assert.NoError(t, s.Delete(ctx, "posts_images/a.png"))
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "/media")
	require.NoError(t, err)

	_, err = s.Save(context.Background(), "../outside.png", strings.NewReader("x"), 1, "image/png")
	assert.Error(t, err)
	assert.Error(t, s.Delete(context.Background(), "../../etc/passwd"))
}

func TestNewSelectsBackend(t *testing.T) {
	cfg := config.Defaults()
	cfg.StorageLocalPath = t.TempDir()

	s, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	cfg.StorageDriver = "s3"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err, "missing bucket")

	cfg.StorageDriver = "ftp"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)
}
