package messages

import (
	"context"
	"errors"
	"time"

	"github.com/suPer8Hu/whisperbox/internal/links"
	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// FindByID returns nil when the message does not exist.
func (r *Repo) FindByID(ctx context.Context, id uint64) (*Message, error) {
	var m Message
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Query filters a recipient's inbox. Nil filters are not applied.
type Query struct {
	RecipientID uint64
	Status      *Status
	LinkID      *uint64
	From        *time.Time
	Limit       int
	Offset      int
}

// List returns messages newest first.
func (r *Repo) List(ctx context.Context, q Query) ([]Message, error) {
	tx := r.db.WithContext(ctx).
		Where("recipient_user_id = ?", q.RecipientID)
	if q.Status != nil {
		tx = tx.Where("status = ?", *q.Status)
	}
	if q.LinkID != nil {
		tx = tx.Where("link_id = ?", *q.LinkID)
	}
	if q.From != nil {
		tx = tx.Where("created_at >= ?", *q.From)
	}

	var out []Message
	if err := tx.Order("created_at DESC").Order("id DESC").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// MarkRead moves NEW or DELIVERED to READ. READ and BLOCKED rows are left alone,
// so read_at is written at most once.
func (r *Repo) MarkRead(ctx context.Context, id uint64, now time.Time) error {
	return markRead(r.db.WithContext(ctx), id, now)
}

func markRead(tx *gorm.DB, id uint64, now time.Time) error {
	return tx.Model(&Message{}).
		Where("id = ? AND status IN ?", id, []Status{StatusNew, StatusDelivered}).
		Updates(map[string]any{
			"status":  StatusRead,
			"read_at": now,
		}).Error
}

// MarkDelivered moves NEW to DELIVERED and reports whether the row changed.
func (r *Repo) MarkDelivered(ctx context.Context, id uint64, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&Message{}).
		Where("id = ? AND status = ?", id, StatusNew).
		Updates(map[string]any{
			"status":       StatusDelivered,
			"delivered_at": now,
		})
	return res.RowsAffected == 1, res.Error
}

// MarkRevealed only ever sets the flag.
func (r *Repo) MarkRevealed(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Model(&Message{}).
		Where("id = ? AND is_revealed = ?", id, false).
		Update("is_revealed", true).Error
}

func (r *Repo) GetThreadByRoot(ctx context.Context, rootID uint64) (*Thread, error) {
	return getThread(r.db.WithContext(ctx), rootID)
}

func getThread(tx *gorm.DB, rootID uint64) (*Thread, error) {
	var t Thread
	if err := tx.
		Where("root_message_id = ?", rootID).
		First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateThreadOrGetExisting inserts a thread for rootID, or returns the one a
// concurrent reply created first. created reports which happened.
func (r *Repo) CreateThreadOrGetExisting(ctx context.Context, rootID uint64) (*Thread, bool, error) {
	return threadForRoot(r.db.WithContext(ctx), rootID)
}

func threadForRoot(tx *gorm.DB, rootID uint64) (*Thread, bool, error) {
	existing, err := getThread(tx, rootID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	t := &Thread{RootMessageID: rootID}
	// savepoint, so a lost unique race does not abort an enclosing transaction
	createErr := tx.Transaction(func(stx *gorm.DB) error {
		return stx.Create(t).Error
	})
	if createErr == nil {
		return t, true, nil
	}

	existing, getErr := getThread(tx, rootID)
	if getErr == nil {
		return existing, false, nil
	}
	if errors.Is(getErr, gorm.ErrRecordNotFound) {
		return nil, false, createErr
	}
	return nil, false, getErr
}

// AppendReply finds or creates the thread for rootID, stores tm in it and marks
// the root message read, all in one transaction. A failed append leaves no
// thread behind.
func (r *Repo) AppendReply(ctx context.Context, rootID uint64, tm *ThreadMessage) (*Thread, error) {
	var thread *Thread
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, _, err := threadForRoot(tx, rootID)
		if err != nil {
			return err
		}
		tm.ThreadID = t.ID
		if err := tx.Create(tm).Error; err != nil {
			return err
		}
		if err := markRead(tx, rootID, tm.CreatedAt); err != nil {
			return err
		}
		thread = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return thread, nil
}

func (r *Repo) CountThreadMessages(ctx context.Context, threadID uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&ThreadMessage{}).
		Where("thread_id = ?", threadID).
		Count(&n).Error
	return n, err
}

// Stats runs read-only aggregates for userID as a recipient.
func (r *Repo) Stats(ctx context.Context, userID uint64) (*UserStats, error) {
	db := r.db.WithContext(ctx)
	out := &UserStats{Links: []LinkStats{}}

	if err := db.Model(&Message{}).
		Where("recipient_user_id = ?", userID).
		Count(&out.TotalMessages).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&Message{}).
		Where("recipient_user_id = ? AND is_revealed = ?", userID, true).
		Count(&out.TotalRevealed).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&Message{}).
		Where("recipient_user_id = ? AND is_reported = ?", userID, true).
		Count(&out.TotalReported).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&ThreadMessage{}).
		Where("from_user_id = ?", userID).
		Count(&out.TotalReplies).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&links.Link{}).
		Where("owner_user_id = ?", userID).
		Count(&out.TotalLinks).Error; err != nil {
		return nil, err
	}

	// soft-deleted links drop out of the per-link view
	if err := db.Table("links").
		Select("links.id AS link_id, links.label AS label, " +
			"COUNT(messages.id) AS messages_count, " +
			"COUNT(DISTINCT messages.sender_user_id) AS unique_senders").
		Joins("LEFT JOIN messages ON messages.link_id = links.id").
		Where("links.owner_user_id = ? AND links.deleted_at IS NULL", userID).
		Group("links.id, links.label").
		Order("links.id ASC").
		Scan(&out.Links).Error; err != nil {
		return nil, err
	}
	return out, nil
}
