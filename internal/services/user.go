package services

import (
	"context"

	"github.com/brandpick/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByServiceOrEmail(ctx context.Context, service, externalID, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	ListByRole(ctx context.Context, role string, offset, limit int) ([]types.User, int, error)
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id string) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

// AddProfile attaches profile to the user, replacing any previous one.
func (s *UserService) AddProfile(ctx context.Context, userID string, profile types.BrandProfile) (types.BrandProfile, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return types.BrandProfile{}, err
	}
	user.Profile = &profile
	if _, err := s.repo.Update(ctx, user); err != nil {
		return types.BrandProfile{}, err
	}
	return profile, nil
}

// ListBrands returns one page of brand users and the number of brands.
func (s *UserService) ListBrands(ctx context.Context, page, limit int) ([]types.User, int, error) {
	page, limit = normalizePage(page, limit)
	return s.repo.ListByRole(ctx, types.RoleBrand, (page-1)*limit, limit)
}
