package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is a blog entry. A post with a pub_date in the future stays hidden until that time.
type Post struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:256;not null" json:"title"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	Image       string    `gorm:"size:1024" json:"image"`
	ImageKey    string    `gorm:"size:512" json:"-"`
	PubDate     time.Time `gorm:"index;not null" json:"pub_date"`
	IsPublished bool      `gorm:"not null" json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	AuthorID    uint      `gorm:"index;not null" json:"author_id"`
	CategoryID  *uint     `gorm:"index" json:"category_id"`
	LocationID  *uint     `gorm:"index" json:"location_id"`
	Author      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Category    *Category `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"category"`
	Location    *Location `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"location"`
	Comments    []Comment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	// CommentCount is filled by WithCommentCount and never written back.
	CommentCount int64 `gorm:"->;-:migration" json:"comment_count"`
}

// BeforeSave stores pub_date in UTC so it compares consistently with the current time.
func (p *Post) BeforeSave(tx *gorm.DB) error {
	p.PubDate = p.PubDate.UTC()
	return nil
}

// BeforeDelete removes the post's comments in the same transaction.
func (p *Post) BeforeDelete(tx *gorm.DB) error {
	if p.ID == 0 {
		return nil
	}
	return tx.Where("post_id = ?", p.ID).Delete(&Comment{}).Error
}
