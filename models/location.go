package models

import (
	"time"

	"gorm.io/gorm"
)

// Location is an optional place a post refers to.
type Location struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:256;not null" json:"name"`
	IsPublished bool      `gorm:"not null" json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
}

// BeforeDelete detaches the location's posts instead of deleting them.
func (l *Location) BeforeDelete(tx *gorm.DB) error {
	return tx.Model(&Post{}).Where("location_id = ?", l.ID).UpdateColumn("location_id", nil).Error
}
