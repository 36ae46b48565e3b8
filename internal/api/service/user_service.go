package service

import (
	"context"
	"log/slog"

	"github.com/banking-transfer-engine/internal/domain/user"
	"github.com/google/uuid"
)

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	userRepo user.Repository
	logger   *slog.Logger
}

// NewUserService creates a new user service
func NewUserService(logger *slog.Logger, userRepo user.Repository) UserService {
	return &UserServiceImpl{
		userRepo: userRepo,
		logger:   logger,
	}
}

// CreateUser registers a new user, rejecting duplicate emails
func (s *UserServiceImpl) CreateUser(ctx context.Context, firstName, lastName, email string) (*user.User, error) {
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, user.ErrDuplicateEmail{Email: email}
	}

	u, err := user.NewUser(firstName, lastName, email)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("Created user", "user_id", u.ID.String())
	return u, nil
}

// GetUserByID retrieves a user by its ID
func (s *UserServiceImpl) GetUserByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return s.userRepo.GetByID(ctx, id)
}
