package models

import (
	"regexp"
	"time"

	"gorm.io/gorm"
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// Category groups posts under a URL slug. Unpublished categories hide their posts from the public.
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:256;not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Slug        string    `gorm:"size:64;uniqueIndex;not null" json:"slug"`
	IsPublished bool      `gorm:"not null" json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
}

// ValidSlug reports whether s only contains latin letters, digits, hyphens and underscores.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// BeforeDelete detaches the category's posts instead of deleting them.
func (c *Category) BeforeDelete(tx *gorm.DB) error {
	return tx.Model(&Post{}).Where("category_id = ?", c.ID).UpdateColumn("category_id", nil).Error
}
