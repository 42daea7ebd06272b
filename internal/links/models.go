package links

import (
	"time"

	"gorm.io/gorm"
)

type Link struct {
	ID          uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerUserID uint64         `gorm:"index;not null" json:"owner_user_id"`
	Slug        string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"slug"`
	Label       string         `gorm:"type:varchar(255);not null" json:"label"`
	Prompt      *string        `gorm:"type:text" json:"prompt,omitempty"`
	IsActive    bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Link) TableName() string { return "links" }
