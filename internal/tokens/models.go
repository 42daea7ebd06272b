package tokens

import (
	"time"

	"gorm.io/datatypes"
)

type Action string

const (
	ActionOpenMessage  Action = "OPEN_MESSAGE"
	ActionReply        Action = "REPLY"
	ActionRevealAuthor Action = "REVEAL_AUTHOR"
	ActionPaginate     Action = "PAGINATE"
	ActionLinkToggle   Action = "LINK_TOGGLE"
	ActionLinkCreate   Action = "LINK_CREATE"
)

func (a Action) Valid() bool {
	switch a {
	case ActionOpenMessage, ActionReply, ActionRevealAuthor,
		ActionPaginate, ActionLinkToggle, ActionLinkCreate:
		return true
	}
	return false
}

type CallbackToken struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Token     string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"token"`
	Action    Action         `gorm:"type:varchar(32);not null" json:"action"`
	EntityID  uint64         `gorm:"not null" json:"entity_id"`
	Payload   datatypes.JSON `json:"payload,omitempty"`
	ExpiresAt *time.Time     `gorm:"index" json:"expires_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func (CallbackToken) TableName() string { return "callback_tokens" }

// Expired reports whether the token is past its expiry at now.
// Tokens without an expiry never expire.
func (t *CallbackToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}
