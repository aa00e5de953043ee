package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetLoaded(t *testing.T) {
	t.Helper()
	mu.Lock()
	prev, prevLoaded := cfg, loaded
	loaded = false
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		cfg, loaded = prev, prevLoaded
		mu.Unlock()
	})
}

func TestDefaults(t *testing.T) {
	c := Defaults()
	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, 10, c.PostsPerPage)
	assert.Equal(t, "/auth/login/", c.LoginURL)
	assert.Equal(t, "mysql", c.DBDriver)
	assert.Equal(t, "local", c.StorageDriver)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
	assert.False(t, c.RedisEnabled)
	assert.Empty(t, c.NATSURL)
}

func TestLoadPrecedence(t *testing.T) {
	resetLoaded(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"app": {"JWTSecret": "from-file", "PostsPerPage": 5, "AdminUsernames": ["root"]},
		"database": {"Driver": "sqlite", "DBName": "blog"},
		"storage": {"Driver": "s3", "S3Bucket": "images"},
		"nats": {"URL": "nats://file:4222"}
	}`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("POSTS_PER_PAGE", "20")
	t.Setenv("ADMIN_USERNAMES", "alice, bob ,")
	t.Setenv("JWT_SECRET", "")

	c := Load()
	assert.Equal(t, "from-file", c.JWTSecret)
	assert.Equal(t, 20, c.PostsPerPage)
	assert.Equal(t, []string{"alice", "bob"}, c.AdminUsernames)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, "blog", c.DBName)
	assert.Equal(t, "s3", c.StorageDriver)
	assert.Equal(t, "images", c.S3Bucket)
	assert.Equal(t, "nats://file:4222", c.NATSURL)
	// untouched values fall back to defaults
	assert.Equal(t, "8080", c.AppPort)

	assert.Equal(t, c, Get())
}

func TestSetReplacesConfig(t *testing.T) {
	resetLoaded(t)
	c := Defaults()
	c.JWTSecret = "set"
	Set(c)
	assert.Equal(t, "set", Get().JWTSecret)
}

func TestIsAdmin(t *testing.T) {
	c := AppConfig{AdminUsernames: []string{"Alice", " bob "}}
	assert.True(t, c.IsAdmin("alice"))
	assert.True(t, c.IsAdmin("bob"))
	assert.False(t, c.IsAdmin("carol"))
	assert.False(t, c.IsAdmin(""))
}

func TestOpenDatabaseSQLite(t *testing.T) {
	c := Defaults()
	c.DBDriver = "sqlite"
	c.DatabaseURI = ":memory:"
	c.LogLevel = "silent"

	conn, err := OpenDatabase(c)
	require.NoError(t, err)
	type widget struct {
		ID   uint
		Name string
	}
	require.NoError(t, Migrate(conn, &widget{}))
	require.NoError(t, conn.Create(&widget{Name: "w"}).Error)

	var n int64
	require.NoError(t, conn.Model(&widget{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestOpenDatabaseUnknownDriver(t *testing.T) {
	c := Defaults()
	c.DBDriver = "oracle"
	_, err := OpenDatabase(c)
	assert.Error(t, err)
}
