package links

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/suPer8Hu/whisperbox/internal/common"
	"gorm.io/gorm"
)

const (
	slugLength   = 10
	slugAttempts = 5
	maxLabelLen  = 255
)

type Service struct {
	repo    *Repo
	newSlug func() (string, error)
}

func NewService(repo *Repo) *Service {
	return &Service{repo: repo, newSlug: randomSlug}
}

// generate a 10 char random alphanumeric slug
func randomSlug() (string, error) {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	out := make([]byte, slugLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		if err != nil {
			return "", err
		}
		out[i] = letters[n.Int64()]
	}
	return string(out), nil
}

// Create allocates a fresh slug and stores an active link for ownerID.
// prompt may be nil.
func (s *Service) Create(ctx context.Context, ownerID uint64, label string, prompt *string) (*Link, error) {
	label = strings.TrimSpace(label)
	if label == "" || len([]rune(label)) > maxLabelLen {
		return nil, fmt.Errorf("link label: %w", common.ErrValidation)
	}

	for i := 0; i < slugAttempts; i++ {
		slug, err := s.newSlug()
		if err != nil {
			return nil, err
		}
		taken, err := s.repo.SlugExists(ctx, slug)
		if err != nil {
			return nil, err
		}
		if taken {
			continue
		}

		l := &Link{
			OwnerUserID: ownerID,
			Slug:        slug,
			Label:       label,
			Prompt:      prompt,
			IsActive:    true,
		}
		err = s.repo.Create(ctx, l)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// lost a race for the slug
			continue
		}
		if err != nil {
			return nil, err
		}
		return l, nil
	}
	return nil, errors.New("failed to allocate link slug")
}

func (s *Service) ListByOwner(ctx context.Context, ownerID uint64) ([]Link, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// FindBySlug returns nil when the slug is unknown.
func (s *Service) FindBySlug(ctx context.Context, slug string) (*Link, error) {
	return s.repo.FindBySlug(ctx, slug)
}

func (s *Service) FindByID(ctx context.Context, id uint64) (*Link, error) {
	return s.repo.FindByID(ctx, id)
}

// Toggle flips is_active on a link owned by ownerID. Links that are missing or
// owned by someone else are both reported as not found.
func (s *Service) Toggle(ctx context.Context, ownerID, linkID uint64) (*Link, error) {
	l, err := s.repo.FindByID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if l == nil || l.OwnerUserID != ownerID {
		return nil, fmt.Errorf("link %d: %w", linkID, common.ErrNotFound)
	}
	if err := s.repo.SetActive(ctx, l.ID, !l.IsActive); err != nil {
		return nil, err
	}
	l.IsActive = !l.IsActive
	return l, nil
}

// Delete soft-deletes an owned link; its slug stays reserved.
func (s *Service) Delete(ctx context.Context, ownerID, linkID uint64) error {
	l, err := s.repo.FindByID(ctx, linkID)
	if err != nil {
		return err
	}
	if l == nil || l.OwnerUserID != ownerID {
		return fmt.Errorf("link %d: %w", linkID, common.ErrNotFound)
	}
	return s.repo.SoftDelete(ctx, l.ID)
}
