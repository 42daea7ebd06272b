package messages

import (
	"strings"
	"time"
)

type Status string

const (
	StatusNew       Status = "NEW"
	StatusDelivered Status = "DELIVERED"
	StatusRead      Status = "READ"
	StatusBlocked   Status = "BLOCKED"
)

// ParseStatus accepts the upper-case status names, case-insensitively.
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusNew:
		return StatusNew, true
	case StatusDelivered:
		return StatusDelivered, true
	case StatusRead:
		return StatusRead, true
	case StatusBlocked:
		return StatusBlocked, true
	}
	return "", false
}

type Message struct {
	ID              uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	LinkID          uint64     `gorm:"index;not null" json:"link_id"`
	RecipientUserID uint64     `gorm:"index:idx_msg_recipient_created,priority:1;not null" json:"recipient_user_id"`
	SenderUserID    *uint64    `gorm:"index" json:"-"`
	Text            string     `gorm:"type:text;not null" json:"text"`
	IsRevealAllowed bool       `gorm:"not null;default:false" json:"is_reveal_allowed"`
	IsRevealed      bool       `gorm:"not null;default:false" json:"is_revealed"`
	Status          Status     `gorm:"type:varchar(16);not null;default:NEW;index" json:"status"`
	IsReported      bool       `gorm:"not null;default:false" json:"is_reported"`
	CreatedAt       time.Time  `gorm:"index:idx_msg_recipient_created,priority:2" json:"created_at"`
	DeliveredAt     *time.Time `json:"delivered_at,omitempty"`
	ReadAt          *time.Time `json:"read_at,omitempty"`
}

func (Message) TableName() string { return "messages" }

type Thread struct {
	ID            uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RootMessageID uint64     `gorm:"uniqueIndex;not null" json:"root_message_id"`
	CreatedAt     time.Time  `json:"created_at"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
}

func (Thread) TableName() string { return "threads" }

type ThreadMessage struct {
	ID         uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ThreadID   uint64     `gorm:"index;not null" json:"thread_id"`
	FromUserID uint64     `gorm:"index;not null" json:"from_user_id"`
	ToUserID   uint64     `gorm:"index;not null" json:"to_user_id"`
	Text       string     `gorm:"type:text;not null" json:"text"`
	CreatedAt  time.Time  `json:"created_at"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
}

func (ThreadMessage) TableName() string { return "thread_messages" }

// LinkStats is the per-link slice of UserStats.
type LinkStats struct {
	LinkID        uint64 `json:"link_id"`
	Label         string `json:"label"`
	MessagesCount int64  `json:"messages_count"`
	UniqueSenders int64  `json:"unique_senders"`
}

type UserStats struct {
	TotalMessages int64       `json:"total_messages"`
	TotalReplies  int64       `json:"total_replies"`
	TotalRevealed int64       `json:"total_revealed"`
	TotalReported int64       `json:"total_reported"`
	TotalLinks    int64       `json:"total_links"`
	Links         []LinkStats `json:"links"`
}
