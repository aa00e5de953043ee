package models

import (
	"time"

	"gorm.io/gorm"
)

// PublicPosts restricts a posts query to entries visible to everyone at now:
// published, pub_date reached, and either uncategorised or in a published category.
func PublicPosts(now time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Joins("LEFT JOIN categories ON categories.id = posts.category_id").
			Where("posts.is_published = ?", true).
			Where("posts.pub_date <= ?", now.UTC()).
			Where("(posts.category_id IS NULL OR categories.is_published = ?)", true)
	}
}

// WithCommentCount selects the post columns plus the number of comments as comment_count.
func WithCommentCount(db *gorm.DB) *gorm.DB {
	return db.Select("posts.*, (SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comment_count")
}

// NewestFirst is the default post ordering.
func NewestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("posts.pub_date DESC").Order("posts.id DESC")
}

// WithRelations preloads the author, category and location of each post.
func WithRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").Preload("Category").Preload("Location")
}

// OldestFirst is the default comment ordering.
func OldestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("comments.created_at ASC").Order("comments.id ASC")
}

// All lists every model that needs a table.
func All() []interface{} {
	return []interface{}{&User{}, &Category{}, &Location{}, &Post{}, &Comment{}}
}
