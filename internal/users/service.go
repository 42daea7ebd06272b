package users

import (
	"context"
	"fmt"

	"github.com/suPer8Hu/whisperbox/internal/common"
)

type Service struct {
	repo *Repo
}

func NewService(repo *Repo) *Service {
	return &Service{repo: repo}
}

// Touch records a contact: the user is created on first sight and its profile
// is overwritten on every later one.
func (s *Service) Touch(ctx context.Context, p Profile) (*User, error) {
	if p.ExternalID == 0 {
		return nil, fmt.Errorf("external id required: %w", common.ErrValidation)
	}
	return s.repo.Upsert(ctx, p)
}

// Find returns the user or nil when the id is unknown.
func (s *Service) Find(ctx context.Context, id uint64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}
