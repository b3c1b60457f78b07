// Package controllers handles HTTP request handling
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/deniz/learnstack/internal/app/models"
	"github.com/deniz/learnstack/internal/app/models/dto"
	"github.com/deniz/learnstack/internal/app/services"
	"github.com/deniz/learnstack/internal/middleware"
	"github.com/deniz/learnstack/internal/pkg/auth"
)

// AuthController handles authentication related operations
type AuthController struct {
	authService    services.AuthService
	sessionService services.SessionService
	jwtService     *auth.JWTService
	logger         zerolog.Logger
}

// NewAuthController creates a new AuthController
func NewAuthController(authService services.AuthService, sessionService services.SessionService, jwtService *auth.JWTService, logger zerolog.Logger) *AuthController {
	return &AuthController{
		authService:    authService,
		sessionService: sessionService,
		jwtService:     jwtService,
		logger:         logger,
	}
}

// Register handles student self-registration
// @Summary Register a new student
// @Description Creates a new student account and logs it in from the registering device
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration information"
// @Success 201 {object} dto.APIResponse{data=dto.AuthResponse} "Account created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request format or weak password"
// @Failure 409 {object} dto.ErrorResponse "Email already exists"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req dto.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.logger.Warn().Err(err).Msg("Invalid registration request payload")
		errorDetail := dto.HandleValidationError(err)
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	authResponse, err := c.authService.Register(ctx.Request.Context(), &req, ctx.Request.UserAgent(), ctx.ClientIP())
	if err != nil {
		c.logger.Warn().Err(err).Str("email", req.Email).Msg("Registration failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Str("email", req.Email).Int64("userID", authResponse.User.ID).Msg("Student registered")

	ctx.JSON(http.StatusCreated, dto.APIResponse{
		Data: authResponse,
	})
}

// Login handles user login with single-device enforcement
// @Summary User login
// @Description Authenticates a user, invalidates sessions on other devices and returns a token bound to this device
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.APIResponse{data=dto.AuthResponse} "Login successful"
// @Failure 400 {object} dto.ErrorResponse "Invalid request format"
// @Failure 401 {object} dto.ErrorResponse "Invalid credentials"
// @Failure 403 {object} dto.ErrorResponse "Account disabled"
// @Failure 429 {object} dto.ErrorResponse "Too many login attempts"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.logger.Warn().Err(err).Msg("Invalid login request payload")
		errorDetail := dto.HandleValidationError(err)
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	authResponse, err := c.authService.Login(ctx.Request.Context(), &req, ctx.Request.UserAgent(), ctx.ClientIP())
	if err != nil {
		c.logger.Warn().Err(err).Str("email", req.Email).Msg("Login failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data: authResponse,
	})
}

// RefreshToken handles refresh token request
// @Summary Refresh access token
// @Description Rotates the refresh token and returns a new access token bound to the same device session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.APIResponse{data=dto.TokenResponse} "Token refreshed successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid request format"
// @Failure 401 {object} dto.ErrorResponse "Invalid refresh token or superseded device session"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/refresh [post]
func (c *AuthController) RefreshToken(ctx *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.logger.Warn().Err(err).Msg("Invalid refresh token request payload")
		errorDetail := dto.HandleValidationError(err)
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	tokenResponse, err := c.authService.RefreshToken(ctx.Request.Context(), req.RefreshToken)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Refresh token failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data: tokenResponse,
	})
}

// Logout invalidates the current device session
// @Summary Logout
// @Description Invalidates the current device session and revokes the user's refresh tokens
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse} "Logged out"
// @Failure 401 {object} dto.ErrorResponse "Authentication required"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /auth/logout [post]
func (c *AuthController) Logout(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
		ctx.JSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
		return
	}

	sessionToken := middleware.CurrentSessionToken(ctx)

	if err := c.authService.Logout(ctx.Request.Context(), userID, sessionToken); err != nil {
		c.logger.Error().Err(err).Int64("userID", userID).Msg("Logout failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data: dto.SuccessResponse{Message: "Logged out successfully"},
	})
}

// SessionStatus reports whether the presented token's device session is valid
// @Summary Check session status
// @Description Reports whether the device session embedded in the presented token is still the active one. Clients poll this to detect logins from other devices.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.SessionStatusResponse} "Session status"
// @Router /auth/session-status [get]
func (c *AuthController) SessionStatus(ctx *gin.Context) {
	tokenString, err := auth.ExtractBearerToken(ctx.GetHeader("Authorization"))
	if err != nil {
		ctx.JSON(http.StatusOK, dto.APIResponse{
			Data: dto.SessionStatusResponse{Valid: false, Message: "No token provided"},
		})
		return
	}

	claims, err := c.jwtService.ValidateAndExtractClaims(tokenString)
	if err != nil {
		ctx.JSON(http.StatusOK, dto.APIResponse{
			Data: dto.SessionStatusResponse{Valid: false, Message: "Invalid token"},
		})
		return
	}

	if claims.SessionToken == "" {
		// Tokens without a device session bypass the single-device rule
		ctx.JSON(http.StatusOK, dto.APIResponse{
			Data: dto.SessionStatusResponse{Valid: true, Message: "Token valid (no session management)"},
		})
		return
	}

	err = c.sessionService.ValidateSession(ctx.Request.Context(), claims.SessionToken, claims.UserID, models.RoleType(claims.RoleType))
	if err != nil {
		ctx.JSON(http.StatusOK, dto.APIResponse{
			Data: dto.SessionStatusResponse{Valid: false, Message: "Session invalid"},
		})
		return
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{
		Data: dto.SessionStatusResponse{Valid: true, Message: "Session valid"},
	})
}
