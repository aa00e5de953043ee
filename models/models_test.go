package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/blogicum/config"
	"github.com/cppla/blogicum/models"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := config.Defaults()
	cfg.DBDriver = "sqlite"
	cfg.DatabaseURI = ":memory:"
	cfg.LogLevel = "silent"
	db, err := config.OpenDatabase(cfg)
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db, models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func mustCreate(t *testing.T, db *gorm.DB, v interface{}) {
	t.Helper()
	require.NoError(t, db.Omit(clause.Associations).Create(v).Error)
}

func publicIDs(t *testing.T, db *gorm.DB, now time.Time) []uint {
	t.Helper()
	var posts []models.Post
	err := db.Model(&models.Post{}).
		Scopes(models.PublicPosts(now), models.WithCommentCount, models.NewestFirst).
		Find(&posts).Error
	require.NoError(t, err)
	out := []uint{}
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}

func TestPublicPostsPredicate(t *testing.T) {
	db := openDB(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	author := models.User{Username: "author"}
	mustCreate(t, db, &author)
	open := models.Category{Title: "Open", Slug: "open", IsPublished: true}
	closed := models.Category{Title: "Closed", Slug: "closed", IsPublished: false}
	mustCreate(t, db, &open)
	mustCreate(t, db, &closed)

	type row struct {
		published bool
		pubDate   time.Time
		category  *models.Category
		visible   bool
	}
	rows := []row{
		{true, now.Add(-time.Hour), &open, true},
		{true, now, &open, true},
		{true, now.Add(-2 * time.Hour), nil, true},
		{false, now.Add(-time.Hour), &open, false},
		{true, now.Add(time.Second), &open, false},
		{true, now.Add(-time.Hour), &closed, false},
		{false, now.Add(time.Hour), &closed, false},
	}

	var want []uint
	for _, r := range rows {
		p := models.Post{Title: "p", Text: "t", PubDate: r.pubDate, IsPublished: r.published, AuthorID: author.ID}
		if r.category != nil {
			p.CategoryID = &r.category.ID
		}
		mustCreate(t, db, &p)
		if r.visible {
			want = append(want, p.ID)
		}
	}

	got := publicIDs(t, db, now)
	assert.ElementsMatch(t, want, got)

	// a later clock reveals the post scheduled one second ahead
	assert.Len(t, publicIDs(t, db, now.Add(time.Minute)), len(want)+1)
}

func TestNewestFirstBreaksTiesByID(t *testing.T) {
	db := openDB(t)
	author := models.User{Username: "author"}
	mustCreate(t, db, &author)
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var created []uint
	for i := 0; i < 3; i++ {
		p := models.Post{Title: "same time", Text: "t", PubDate: at, IsPublished: true, AuthorID: author.ID}
		mustCreate(t, db, &p)
		created = append(created, p.ID)
	}
	older := models.Post{Title: "older", Text: "t", PubDate: at.Add(-time.Hour), IsPublished: true, AuthorID: author.ID}
	mustCreate(t, db, &older)

	assert.Equal(t, []uint{created[2], created[1], created[0], older.ID}, publicIDs(t, db, at.Add(time.Hour)))
}

func TestWithCommentCount(t *testing.T) {
	db := openDB(t)
	author := models.User{Username: "author"}
	mustCreate(t, db, &author)
	busy := models.Post{Title: "busy", Text: "t", PubDate: time.Now(), IsPublished: true, AuthorID: author.ID}
	quiet := models.Post{Title: "quiet", Text: "t", PubDate: time.Now(), IsPublished: true, AuthorID: author.ID}
	mustCreate(t, db, &busy)
	mustCreate(t, db, &quiet)
	for i := 0; i < 3; i++ {
		mustCreate(t, db, &models.Comment{Text: "c", PostID: busy.ID, AuthorID: author.ID})
	}

	var posts []models.Post
	require.NoError(t, db.Model(&models.Post{}).Scopes(models.WithCommentCount).Order("posts.id").Find(&posts).Error)
	require.Len(t, posts, 2)
	assert.Equal(t, int64(3), posts[0].CommentCount)
	assert.Equal(t, int64(0), posts[1].CommentCount)

	// the count is read-only and never written back
	posts[1].Title = "renamed"
	require.NoError(t, db.Omit(clause.Associations).Save(&posts[1]).Error)
}

func TestDeletingPostDeletesComments(t *testing.T) {
	db := openDB(t)
	author := models.User{Username: "author"}
	mustCreate(t, db, &author)
	doomed := models.Post{Title: "doomed", Text: "t", PubDate: time.Now(), IsPublished: true, AuthorID: author.ID}
	kept := models.Post{Title: "kept", Text: "t", PubDate: time.Now(), IsPublished: true, AuthorID: author.ID}
	mustCreate(t, db, &doomed)
	mustCreate(t, db, &kept)
	mustCreate(t, db, &models.Comment{Text: "a", PostID: doomed.ID, AuthorID: author.ID})
	mustCreate(t, db, &models.Comment{Text: "b", PostID: doomed.ID, AuthorID: author.ID})
	mustCreate(t, db, &models.Comment{Text: "c", PostID: kept.ID, AuthorID: author.ID})

	require.NoError(t, db.Delete(&doomed).Error)

	var remaining []models.Comment
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, kept.ID, remaining[0].PostID)
}

func TestDeletingCategoryOrLocationDetachesPosts(t *testing.T) {
	db := openDB(t)
	author := models.User{Username: "author"}
	mustCreate(t, db, &author)
	cat := models.Category{Title: "c", Slug: "c", IsPublished: true}
	loc := models.Location{Name: "l", IsPublished: true}
	mustCreate(t, db, &cat)
	mustCreate(t, db, &loc)
	p := models.Post{Title: "p", Text: "t", PubDate: time.Now().Add(-time.Hour), IsPublished: true, AuthorID: author.ID, CategoryID: &cat.ID, LocationID: &loc.ID}
	mustCreate(t, db, &p)

	require.NoError(t, db.Delete(&cat).Error)
	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, p.ID).Error)
	assert.Nil(t, reloaded.CategoryID)
	require.NotNil(t, reloaded.LocationID)

	require.NoError(t, db.Delete(&loc).Error)
	require.NoError(t, db.First(&reloaded, p.ID).Error)
	assert.Nil(t, reloaded.LocationID)

	assert.Equal(t, []uint{p.ID}, publicIDs(t, db, time.Now()))
}

func TestValidSlug(t *testing.T) {
	for _, s := range []string{"travel", "my-trip_2", "A-Z"} {
		assert.True(t, models.ValidSlug(s), s)
	}
	for _, s := range []string{"", "with space", "slash/", "ünïcode"} {
		assert.False(t, models.ValidSlug(s), s)
	}
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", models.User{Username: "ada", FirstName: "Ada", LastName: "Lovelace"}.FullName())
	assert.Equal(t, "Ada", models.User{Username: "ada", FirstName: "Ada"}.FullName())
	assert.Equal(t, "ada", models.User{Username: "ada"}.FullName())
}
