package tokens

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Repo is the gorm Store.
type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Exists(ctx context.Context, token string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).Model(&CallbackToken{}).
		Where("token = ?", token).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *Repo) Create(ctx context.Context, rec *CallbackToken) error {
	err := r.db.WithContext(ctx).Create(rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateToken
	}
	return err
}

func (r *Repo) Get(ctx context.Context, token string) (*CallbackToken, error) {
	return getToken(r.db.WithContext(ctx), token)
}

// Take selects the row and deletes it by token inside one transaction. Only the
// caller whose delete removed the row gets the record back.
func (r *Repo) Take(ctx context.Context, token string) (*CallbackToken, error) {
	var out *CallbackToken
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := getToken(tx, token)
		if err != nil || rec == nil {
			return err
		}
		res := tx.Where("token = ?", token).Delete(&CallbackToken{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			out = rec
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) Delete(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).
		Where("token = ?", token).
		Delete(&CallbackToken{}).Error
}

func getToken(tx *gorm.DB, token string) (*CallbackToken, error) {
	var rec CallbackToken
	err := tx.Where("token = ?", token).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
