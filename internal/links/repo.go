package links

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, l *Link) error {
	return r.db.WithContext(ctx).Create(l).Error
}

// SlugExists also sees soft-deleted links: a slug is never handed out twice.
func (r *Repo) SlugExists(ctx context.Context, slug string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).Unscoped().
		Model(&Link{}).
		Where("slug = ?", slug).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

// FindBySlug returns nil when no live link has the slug.
func (r *Repo) FindBySlug(ctx context.Context, slug string) (*Link, error) {
	var l Link
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// FindByID returns nil when no live link has the id.
func (r *Repo) FindByID(ctx context.Context, id uint64) (*Link, error) {
	var l Link
	err := r.db.WithContext(ctx).First(&l, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ListByOwner returns the owner's live links, oldest first.
func (r *Repo) ListByOwner(ctx context.Context, ownerID uint64) ([]Link, error) {
	var out []Link
	if err := r.db.WithContext(ctx).
		Where("owner_user_id = ?", ownerID).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) SetActive(ctx context.Context, id uint64, active bool) error {
	return r.db.WithContext(ctx).Model(&Link{}).
		Where("id = ?", id).
		Update("is_active", active).Error
}

func (r *Repo) SoftDelete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&Link{}, "id = ?", id).Error
}
