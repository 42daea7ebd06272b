package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// State is the stored row: one per user.
type State struct {
	UserID    uint64         `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Tag       Tag            `gorm:"column:state;type:varchar(32);not null" json:"state"`
	Data      datatypes.JSON `json:"data"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (State) TableName() string { return "dialog_states" }

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Get returns the user's current step, or nil when there is none.
func (s *Store) Get(ctx context.Context, userID uint64) (Step, error) {
	return getStep(s.db.WithContext(ctx), userID, false)
}

// Set replaces the user's state and payload.
func (s *Store) Set(ctx context.Context, userID uint64, step Step) error {
	return setStep(s.db.WithContext(ctx), userID, step)
}

func (s *Store) Clear(ctx context.Context, userID uint64) error {
	return s.db.WithContext(ctx).Delete(&State{}, "user_id = ?", userID).Error
}

// Update reads the user's step, passes it to fn and persists what fn returns,
// all in one transaction. A nil step from fn clears the state. If fn fails
// nothing is written.
func (s *Store) Update(ctx context.Context, userID uint64, fn func(cur Step) (Step, error)) (Step, error) {
	var next Step
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur, err := getStep(tx, userID, true)
		if err != nil {
			return err
		}
		next, err = fn(cur)
		if err != nil {
			return err
		}
		if next == nil {
			return tx.Delete(&State{}, "user_id = ?", userID).Error
		}
		return setStep(tx, userID, next)
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

func getStep(tx *gorm.DB, userID uint64, lock bool) (Step, error) {
	if lock {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row State
	err := tx.Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeStep(row.Tag, row.Data), nil
}

func setStep(tx *gorm.DB, userID uint64, step Step) error {
	if step == nil {
		return errors.New("session: nil step")
	}
	data, err := json.Marshal(step)
	if err != nil {
		return err
	}
	row := State{
		UserID:    userID,
		Tag:       step.Tag(),
		Data:      data,
		UpdatedAt: time.Now(),
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "data", "updated_at"}),
	}).Create(&row).Error
}
