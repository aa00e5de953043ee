package utils_test

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/clause"

	"github.com/cppla/blogicum/config"
	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/utils"
)

func TestMain(m *testing.M) {
	cfg := config.Defaults()
	cfg.JWTSecret = "utils-test-secret"
	cfg.DBDriver = "sqlite"
	cfg.DatabaseURI = ":memory:"
	cfg.LogLevel = "silent"
	config.Set(cfg)
	os.Exit(m.Run())
}

func TestNewPage(t *testing.T) {
	cases := []struct {
		name      string
		param     string
		total     int64
		wantPage  int
		wantPages int
	}{
		{"missing", "", 25, 1, 3},
		{"first", "1", 25, 1, 3},
		{"middle", "2", 25, 2, 3},
		{"last", "3", 25, 3, 3},
		{"beyond last", "4", 25, 3, 3},
		{"zero", "0", 25, 1, 3},
		{"negative", "-2", 25, 1, 3},
		{"not a number", "two", 25, 1, 3},
		{"empty collection", "5", 0, 1, 1},
		{"exact multiple", "2", 20, 2, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := utils.NewPage(tc.param, 10, tc.total)
			assert.Equal(t, tc.wantPage, p.Number)
			assert.Equal(t, tc.wantPages, p.NumPages)
			assert.Equal(t, tc.wantPage < tc.wantPages, p.HasNext)
			assert.Equal(t, tc.wantPage > 1, p.HasPrevious)
			assert.Equal(t, (tc.wantPage-1)*10, p.Offset())
		})
	}
}

func TestPaginate(t *testing.T) {
	db, err := config.OpenDatabase(config.Get())
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db, models.All()...))

	author := models.User{Username: "writer"}
	require.NoError(t, db.Create(&author).Error)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		p := models.Post{Title: "p", Text: "t", PubDate: base.Add(time.Duration(i) * time.Hour), IsPublished: true, AuthorID: author.ID}
		require.NoError(t, db.Omit(clause.Associations).Create(&p).Error)
	}

	query := db.Model(&models.Post{}).Scopes(models.PublicPosts(base.Add(24 * time.Hour)))

	var posts []models.Post
	page, err := utils.Paginate(query, "3", 3, &posts, models.WithCommentCount, models.NewestFirst)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Number)
	assert.Equal(t, int64(7), page.Total)
	require.Len(t, posts, 1)
	assert.True(t, posts[0].PubDate.Equal(base))

	posts = nil
	page, err = utils.Paginate(query, "1", 3, &posts, models.WithCommentCount, models.NewestFirst)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Number)
	require.Len(t, posts, 3)
	assert.True(t, posts[0].PubDate.Equal(base.Add(6*time.Hour)))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := utils.HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, utils.CheckPassword(hash, "correct horse"))
	assert.False(t, utils.CheckPassword(hash, "wrong horse"))

	_, err = utils.HashPassword(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, utils.ErrPasswordTooLong)
}

func TestTokenRoundTrip(t *testing.T) {
	tok, err := utils.GenerateToken(42, "ann", time.Hour)
	require.NoError(t, err)

	claims, err := utils.ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "ann", claims.Username)
	assert.WithinDuration(t, time.Now().Add(time.Hour), utils.TokenExpiry(claims, time.Time{}), 5*time.Second)

	_, err = utils.ParseToken(tok + "tampered")
	assert.Error(t, err)

	expired, err := utils.GenerateToken(42, "ann", -time.Minute)
	require.NoError(t, err)
	_, err = utils.ParseToken(expired)
	assert.Error(t, err)
}

func TestTokenBlacklistInMemory(t *testing.T) {
	utils.BlacklistToken("revoked-token", time.Now().Add(time.Hour))
	assert.True(t, utils.IsTokenBlacklisted("revoked-token"))
	assert.False(t, utils.IsTokenBlacklisted("other-token"))

	// already expired tokens are not stored
	utils.BlacklistToken("stale-token", time.Now().Add(-time.Minute))
	assert.False(t, utils.IsTokenBlacklisted("stale-token"))
}

func TestCacheWithoutRedisMisses(t *testing.T) {
	utils.CacheSetJSON("cache:test", map[string]int{"a": 1})
	var v map[string]int
	assert.False(t, utils.CacheGetJSON("cache:test", &v))
	utils.InvalidateByPrefix("cache:")
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "hello", utils.SanitizePlain("  <b>hello</b> "))
	assert.Equal(t, "Tom & Jerry", utils.SanitizePlain(" Tom & Jerry "))
	assert.Equal(t, "a < b", utils.SanitizePlain("a < b"))
	assert.Equal(t, "<b>bold</b>", utils.Sanitize("<b>bold</b><script>alert(1)</script>"))
}

type sampleForm struct {
	Title string `json:"title" binding:"required,max=5"`
	Email string `json:"email" binding:"omitempty,email"`
}

func TestValidationErrors(t *testing.T) {
	err := binding.Validator.ValidateStruct(&sampleForm{Email: "nope"})
	errs := utils.ValidationErrors(err)
	assert.Equal(t, "This field is required.", errs["title"])
	assert.Equal(t, "Enter a valid email address.", errs["email"])

	err = binding.Validator.ValidateStruct(&sampleForm{Title: "too long"})
	assert.Equal(t, "Ensure this value has at most 5 characters.", utils.ValidationErrors(err)["title"])

	assert.Equal(t, map[string]string{"__all__": "boom"}, utils.ValidationErrors(errors.New("boom")))
	assert.Empty(t, utils.ValidationErrors(nil))
}
