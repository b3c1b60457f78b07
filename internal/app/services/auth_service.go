package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	"github.com/deniz/learnstack/internal/app/models"
	"github.com/deniz/learnstack/internal/app/models/dto"
	"github.com/deniz/learnstack/internal/app/repositories"
	"github.com/deniz/learnstack/internal/pkg/apperrors"
	"github.com/deniz/learnstack/internal/pkg/auth"
)

// authService implements AuthService
type authService struct {
	userRepo       repositories.IUserRepository
	tokenRepo      repositories.ITokenRepository
	sessionService SessionService
	jwtService     *auth.JWTService
	logger         zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo repositories.IUserRepository,
	tokenRepo repositories.ITokenRepository,
	sessionService SessionService,
	jwtService *auth.JWTService,
	logger zerolog.Logger,
) AuthService {
	return &authService{
		userRepo:       userRepo,
		tokenRepo:      tokenRepo,
		sessionService: sessionService,
		jwtService:     jwtService,
		logger:         logger,
	}
}

// ValidatePassword checks if password meets requirements
func (s *authService) ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("%w: password cannot be empty", apperrors.ErrInvalidPassword)
	}

	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters long", apperrors.ErrInvalidPassword)
	}

	hasLetter := false
	hasDigit := false
	for _, char := range password {
		if unicode.IsLetter(char) {
			hasLetter = true
		}
		if unicode.IsDigit(char) {
			hasDigit = true
		}
	}
	if !hasLetter {
		return fmt.Errorf("%w: password must contain at least one letter", apperrors.ErrInvalidPassword)
	}
	if !hasDigit {
		return fmt.Errorf("%w: password must contain at least one digit", apperrors.ErrInvalidPassword)
	}

	return nil
}

// Register registers a new student account and logs it in from the
// registering device
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest, deviceInfo, ipAddress string) (*dto.AuthResponse, error) {
	if err := s.ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.userRepo.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("error checking if email exists: %w", err)
	}
	if exists {
		return nil, apperrors.ErrEmailAlreadyExists
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	// Self-registration always creates a student; staff accounts are
	// provisioned by an admin
	user := &models.User{
		Email:     email,
		Password:  hashedPassword,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		RoleType:  models.RoleStudent,
		IsActive:  true,
	}

	userID, err := s.userRepo.CreateUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("user creation error: %w", err)
	}
	user.ID = userID

	s.logger.Info().Int64("userID", userID).Str("email", email).Msg("Student registered")

	return s.issueTokens(ctx, user, deviceInfo, ipAddress)
}

// Login authenticates a user and issues a new single-device session.
// Any session the user held on another device is invalidated here.
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest, deviceInfo, ipAddress string) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			// Same response as a wrong password; do not leak account existence
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}

	if !auth.CheckPassword(user.Password, req.Password) {
		s.logger.Warn().Str("email", email).Str("ip", ipAddress).Msg("Login failed: wrong password")
		return nil, apperrors.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	resp, err := s.issueTokens(ctx, user, deviceInfo, ipAddress)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn().Err(err).Int64("userID", user.ID).Msg("Failed to record last login")
	}

	s.logger.Info().
		Int64("userID", user.ID).
		Str("roleType", string(user.RoleType)).
		Str("ip", ipAddress).
		Msg("User logged in")

	return resp, nil
}

// issueTokens creates the device session, the bound access token and a
// persisted refresh token
func (s *authService) issueTokens(ctx context.Context, user *models.User, deviceInfo, ipAddress string) (*dto.AuthResponse, error) {
	sessionToken, err := s.sessionService.IssueSession(ctx, user, deviceInfo, ipAddress)
	if err != nil {
		return nil, err
	}

	accessToken, refreshToken, expiresIn, refreshExpiresIn, err := s.jwtService.GenerateTokenPair(user, sessionToken)
	if err != nil {
		return nil, fmt.Errorf("error generating token pair: %w", err)
	}

	err = s.tokenRepo.CreateToken(ctx, &models.RefreshToken{
		Token:        refreshToken,
		UserID:       user.ID,
		SessionToken: sessionToken,
		ExpiryDate:   s.jwtService.GetRefreshTokenExpiry(),
	})
	if err != nil {
		return nil, fmt.Errorf("error persisting refresh token: %w", err)
	}

	return &dto.AuthResponse{
		Token: dto.TokenResponse{
			AccessToken:           accessToken,
			TokenType:             "Bearer",
			ExpiresIn:             int64(expiresIn),
			RefreshToken:          refreshToken,
			RefreshTokenExpiresIn: int64(refreshExpiresIn),
		},
		User: dto.NewUserResponse(user),
	}, nil
}

// RefreshToken rotates a refresh token and returns a new access token bound
// to the SAME device session. A refresh is not a new device login: if the
// session was superseded by a login elsewhere, the refresh fails.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, apperrors.ErrTokenInvalid
	}

	stored, err := s.tokenRepo.GetTokenByValue(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetUserByID(ctx, stored.UserID)
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	// The device session must still be the active one
	if err := s.sessionService.ValidateSession(ctx, stored.SessionToken, user.ID, user.RoleType); err != nil {
		return nil, err
	}

	accessToken, newRefreshToken, expiresIn, refreshExpiresIn, err := s.jwtService.GenerateTokenPair(user, stored.SessionToken)
	if err != nil {
		return nil, fmt.Errorf("error generating token pair: %w", err)
	}

	err = s.tokenRepo.RotateToken(ctx, refreshToken, &models.RefreshToken{
		Token:        newRefreshToken,
		UserID:       user.ID,
		SessionToken: stored.SessionToken,
		ExpiryDate:   s.jwtService.GetRefreshTokenExpiry(),
	})
	if err != nil {
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:           accessToken,
		TokenType:             "Bearer",
		ExpiresIn:             int64(expiresIn),
		RefreshToken:          newRefreshToken,
		RefreshTokenExpiresIn: int64(refreshExpiresIn),
	}, nil
}

// Logout invalidates the current device session and revokes the user's
// refresh tokens
func (s *authService) Logout(ctx context.Context, userID int64, sessionToken string) error {
	if sessionToken != "" {
		if err := s.sessionService.InvalidateSession(ctx, sessionToken); err != nil {
			if !errors.Is(err, apperrors.ErrSessionNotFound) {
				return err
			}
			// Already inactive; logout is idempotent
		}
	}

	if err := s.tokenRepo.RevokeAllUserTokens(ctx, userID); err != nil {
		return err
	}

	s.logger.Info().Int64("userID", userID).Msg("User logged out")
	return nil
}
