package users

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// Upsert inserts the user or overwrites its profile fields.
func (r *Repo) Upsert(ctx context.Context, p Profile) (*User, error) {
	now := time.Now()
	u := &User{
		ExternalID: p.ExternalID,
		Username:   p.Username,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Language:   p.Language,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "first_name", "last_name", "language", "updated_at"}),
	}).Create(u).Error
	if err != nil {
		return nil, err
	}
	return r.GetByExternalID(ctx, p.ExternalID)
}

func (r *Repo) GetByID(ctx context.Context, id uint64) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) GetByExternalID(ctx context.Context, externalID int64) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByID is GetByID with a missing row reported as nil.
func (r *Repo) FindByID(ctx context.Context, id uint64) (*User, error) {
	u, err := r.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return u, err
}
