package service

import (
	"context"
	"strings"

	"earn_webapp/internal/domain"
	"earn_webapp/internal/repository"
)

const (
	defaultUserPageSize = 50
	maxUserPageSize     = 200
)

// AdminService provides admin statistics and listings
type AdminService struct {
	store repository.Store
}

func NewAdminService(store repository.Store) *AdminService {
	return &AdminService{store: store}
}

// GetStats returns platform statistics
func (s *AdminService) GetStats(ctx context.Context) (*domain.AdminStats, error) {
	return s.store.AdminStats(ctx)
}

// ListUsers pages through users, newest first
func (s *AdminService) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	if limit <= 0 {
		limit = defaultUserPageSize
	}
	if limit > maxUserPageSize {
		limit = maxUserPageSize
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.store.ListUsers(ctx, limit, offset)
	if users == nil && err == nil {
		users = []domain.User{}
	}
	return users, err
}

// FindUser looks a user up by id or, when identifier contains '@', by email
func (s *AdminService) FindUser(ctx context.Context, identifier string) (*domain.User, error) {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return s.store.GetUserByEmail(ctx, identifier)
	}
	return s.store.GetUser(ctx, identifier)
}
