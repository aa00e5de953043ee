package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/blogicum/config"
	"github.com/cppla/blogicum/middleware"
	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	cfg := config.Defaults()
	cfg.JWTSecret = "middleware-secret"
	cfg.DBDriver = "sqlite"
	cfg.DatabaseURI = ":memory:"
	cfg.LogLevel = "silent"
	cfg.RateLimitPerMinute = 2
	cfg.AdminUsernames = []string{"root"}
	config.Set(cfg)
	os.Exit(m.Run())
}

func whoami(ctx *gin.Context) {
	id, ok := middleware.UserID(ctx)
	ctx.JSON(http.StatusOK, gin.H{"id": id, "ok": ok, "username": ctx.GetString(middleware.ContextUsernameKey)})
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(middleware.CurrentUser())
	r.Any("/*path", append(handlers, whoami)...)
	return r
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCurrentUser(t *testing.T) {
	r := newEngine()
	tok, err := utils.GenerateToken(7, "grace", time.Hour)
	require.NoError(t, err)

	t.Run("anonymous", func(t *testing.T) {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.JSONEq(t, `{"id":0,"ok":false,"username":""}`, w.Body.String())
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := serve(r, req)
		assert.JSONEq(t, `{"id":7,"ok":true,"username":"grace"}`, w.Body.String())
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.AddCookie(&http.Cookie{Name: middleware.TokenCookieName, Value: tok})
		w := serve(r, req)
		assert.JSONEq(t, `{"id":7,"ok":true,"username":"grace"}`, w.Body.String())
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		w := serve(r, req)
		assert.JSONEq(t, `{"id":0,"ok":false,"username":""}`, w.Body.String())
	})

	t.Run("revoked token", func(t *testing.T) {
		revoked, err := utils.GenerateToken(8, "revoked", time.Hour)
		require.NoError(t, err)
		utils.BlacklistToken(revoked, time.Now().Add(time.Hour))
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Authorization", "Bearer "+revoked)
		w := serve(r, req)
		assert.JSONEq(t, `{"id":0,"ok":false,"username":""}`, w.Body.String())
	})
}

func TestAuthRequiredRedirectsToLogin(t *testing.T) {
	r := newEngine(middleware.AuthRequired())

	w := serve(r, httptest.NewRequest(http.MethodGet, "/posts/create/?draft=1", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/auth/login/?next=%2Fposts%2Fcreate%2F%3Fdraft%3D1", w.Header().Get("Location"))

	tok, err := utils.GenerateToken(3, "ada", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/posts/create/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	assert.Equal(t, http.StatusOK, serve(r, req).Code)
}

func TestAdminRequired(t *testing.T) {
	db, err := config.OpenDatabase(config.Get())
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db, models.All()...))
	root := models.User{Username: "root"}
	plain := models.User{Username: "plain"}
	require.NoError(t, db.Create(&root).Error)
	require.NoError(t, db.Create(&plain).Error)

	r := newEngine(middleware.AdminRequired(db))
	call := func(u models.User) int {
		tok, err := utils.GenerateToken(u.ID, u.Username, time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/admin/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		return serve(r, req).Code
	}

	assert.Equal(t, http.StatusOK, call(root))
	assert.Equal(t, http.StatusForbidden, call(plain))
	// a token whose username claims admin does not help a non-admin account
	assert.Equal(t, http.StatusForbidden, call(models.User{ID: plain.ID, Username: "root"}))
	assert.Equal(t, http.StatusUnauthorized, serve(r, httptest.NewRequest(http.MethodGet, "/admin/", nil)).Code)
}

func TestRateLimitCountsWritesOnly(t *testing.T) {
	r := newEngine(middleware.RateLimitMiddleware())

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/feed", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		assert.Equal(t, http.StatusOK, serve(r, req).Code)
	}

	// burst is RateLimitPerMinute/2 = 1
	req := httptest.NewRequest(http.MethodPost, "/write", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	assert.Equal(t, http.StatusOK, serve(r, req).Code)
	req = httptest.NewRequest(http.MethodPost, "/write", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	assert.Equal(t, http.StatusTooManyRequests, serve(r, req).Code)
}
