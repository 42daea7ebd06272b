package users

import (
	"strings"
	"time"
)

type User struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ExternalID int64     `gorm:"uniqueIndex;not null" json:"external_id"`
	Username   string    `gorm:"type:varchar(64)" json:"username"`
	FirstName  string    `gorm:"type:varchar(128)" json:"first_name"`
	LastName   string    `gorm:"type:varchar(128)" json:"last_name"`
	Language   string    `gorm:"type:varchar(8)" json:"language"`
	IsBlocked  bool      `gorm:"not null;default:false" json:"is_blocked"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// DisplayName prefers the username, then "first last". Empty when neither is set.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Profile is what the transport knows about the person behind an event.
type Profile struct {
	ExternalID int64  `json:"external_id"`
	Username   string `json:"username,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Language   string `json:"language,omitempty"`
}
