package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/deniz/learnstack/internal/app/models/dto"
	"github.com/deniz/learnstack/internal/app/repositories"
)

// userService implements UserService
type userService struct {
	userRepo       repositories.IUserRepository
	tokenRepo      repositories.ITokenRepository
	sessionService SessionService
	logger         zerolog.Logger
}

// NewUserService creates a new UserService
func NewUserService(
	userRepo repositories.IUserRepository,
	tokenRepo repositories.ITokenRepository,
	sessionService SessionService,
	logger zerolog.Logger,
) UserService {
	return &userService{
		userRepo:       userRepo,
		tokenRepo:      tokenRepo,
		sessionService: sessionService,
		logger:         logger,
	}
}

// GetProfile returns the profile of a user
func (s *userService) GetProfile(ctx context.Context, userID int64) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := dto.NewUserResponse(user)
	return &resp, nil
}

// UpdateProfile updates the name fields of a user and returns the result
func (s *userService) UpdateProfile(ctx context.Context, userID int64, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	if err := s.userRepo.UpdateProfile(ctx, userID, req.FirstName, req.LastName); err != nil {
		return nil, err
	}

	return s.GetProfile(ctx, userID)
}

// GetUserByID returns a user by ID for admin views
func (s *userService) GetUserByID(ctx context.Context, id int64) (*dto.UserResponse, error) {
	return s.GetProfile(ctx, id)
}

// ListUsers returns a page of users
func (s *userService) ListUsers(ctx context.Context, page, pageSize int) (*dto.UserListResponse, error) {
	users, total, err := s.userRepo.ListUsers(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}

	resp := &dto.UserListResponse{
		Users:      make([]dto.UserResponse, 0, len(users)),
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
	}
	for i := range users {
		resp.Users = append(resp.Users, dto.NewUserResponse(&users[i]))
	}

	return resp, nil
}

// SetUserActive enables or disables a user account. Disabling also kills the
// user's device sessions and refresh tokens, so access stops immediately
// rather than at token expiry.
func (s *userService) SetUserActive(ctx context.Context, id int64, active bool) error {
	if err := s.userRepo.SetActive(ctx, id, active); err != nil {
		return err
	}

	if !active {
		if _, err := s.sessionService.InvalidateUserSessions(ctx, id); err != nil {
			return fmt.Errorf("failed to invalidate sessions of disabled user: %w", err)
		}
		if err := s.tokenRepo.RevokeAllUserTokens(ctx, id); err != nil {
			return fmt.Errorf("failed to revoke tokens of disabled user: %w", err)
		}
	}

	s.logger.Info().Int64("userID", id).Bool("active", active).Msg("User active flag updated")
	return nil
}
