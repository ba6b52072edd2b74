package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskhub/core/internal/domain/entities"
	"github.com/taskhub/core/internal/infrastructure/logger"
	"github.com/taskhub/core/internal/ports"
)

// UserService handles user account operations
type UserService struct {
	userRepo ports.UserRepository
	logger   *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo ports.UserRepository, logger *logger.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// GetMe returns the profile of the authenticated user.
func (s *UserService) GetMe(ctx context.Context, actorID uuid.UUID) (*entities.User, error) {
	if actorID == uuid.Nil {
		return nil, entities.ErrNotAuthenticated
	}

	user, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, entities.ErrUserNotFound) {
			return nil, entities.ErrNotAuthenticated
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// Create registers an account without issuing tokens. Used by the CLI.
func (s *UserService) Create(ctx context.Context, req ports.RegisterRequest) (*entities.User, error) {
	user, err := createUser(ctx, s.userRepo, req)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("User created", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// createUser checks uniqueness, hashes the password, and stores the account.
func createUser(ctx context.Context, repo ports.UserRepository, req ports.RegisterRequest) (*entities.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := repo.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("email %s already registered: %w", email, entities.ErrConflict)
	} else if !errors.Is(err, entities.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	if _, err := repo.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("username %s already taken: %w", req.Username, entities.ErrConflict)
	} else if !errors.Is(err, entities.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entities.User{
		ID:           uuid.New(),
		Email:        email,
		Username:     req.Username,
		Name:         req.Name,
		PasswordHash: string(hashedPassword),
		IsActive:     true,
	}

	if err := repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}
