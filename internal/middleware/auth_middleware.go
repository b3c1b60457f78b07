package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/deniz/learnstack/internal/app/models"
	"github.com/deniz/learnstack/internal/app/models/dto"
	"github.com/deniz/learnstack/internal/app/services"
	"github.com/deniz/learnstack/internal/pkg/apperrors"
	"github.com/deniz/learnstack/internal/pkg/auth"
	"github.com/deniz/learnstack/internal/pkg/logger"
)

// Context keys set by JWTAuth
const (
	ContextUserID       = "userID"
	ContextEmail        = "email"
	ContextRoleType     = "roleType"
	ContextSessionToken = "sessionToken"
)

// SessionInvalidMessage is returned when the single-device rule rejects a
// request. Clients key off this message to prompt a fresh login.
const SessionInvalidMessage = "Your session has expired or you have been logged in from another device. Please login again."

// AuthMiddleware for authentication and authorization
type AuthMiddleware struct {
	jwtService     *auth.JWTService
	sessionService services.SessionService
	enforcedRoles  map[string]bool
}

// NewAuthMiddleware creates a new AuthMiddleware. enforcedRoles lists the
// role types subject to single-device session validation.
func NewAuthMiddleware(jwtService *auth.JWTService, sessionService services.SessionService, enforcedRoles map[string]bool) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService:     jwtService,
		sessionService: sessionService,
		enforcedRoles:  enforcedRoles,
	}
}

// JWTAuth validates the bearer token and, for enforced roles, checks that
// the token's device session is still the active one for the user.
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
			errorDetail = errorDetail.WithDetails("Authorization header missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
			return
		}

		tokenString, err := auth.ExtractBearerToken(authHeader)
		if err != nil {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
			errorDetail = errorDetail.WithDetails("Invalid token format")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
			return
		}

		claims, err := m.jwtService.ValidateAndExtractClaims(tokenString)
		if err != nil {
			errorCode := dto.ErrorCodeInvalidToken
			errorDetails := "Invalid token"

			if errors.Is(err, auth.ErrExpiredToken) {
				errorCode = dto.ErrorCodeExpiredToken
				errorDetails = "Token has expired"
			} else if errors.Is(err, auth.ErrInvalidFormat) {
				errorDetails = "Invalid token format"
			}

			errorDetail := dto.NewErrorDetail(errorCode, "Authentication failed")
			errorDetail = errorDetail.WithDetails(errorDetails)
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
			return
		}

		// Single-device enforcement. Tokens for roles outside the enforced
		// set pass on JWT validity alone.
		if m.enforcedRoles[claims.RoleType] && claims.SessionToken != "" {
			err := m.sessionService.ValidateSession(c.Request.Context(), claims.SessionToken, claims.UserID, models.RoleType(claims.RoleType))
			if err != nil {
				if errors.Is(err, apperrors.ErrSessionInvalid) {
					logger.Warn().
						Int64("userID", claims.UserID).
						Str("roleType", claims.RoleType).
						Msg("Rejected request with superseded device session")

					errorDetail := dto.NewErrorDetail(dto.ErrorCodeSessionInvalid, SessionInvalidMessage)
					c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
					return
				}

				// Infrastructure failure during validation must not take the
				// request down with it; the JWT itself already checked out.
				logger.Error().Err(err).Int64("userID", claims.UserID).Msg("Session validation error")
			}
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRoleType, claims.RoleType)
		c.Set(ContextSessionToken, claims.SessionToken)

		c.Next()
	}
}

// RoleRequired checks if user has one of the required roles
func (m *AuthMiddleware) RoleRequired(requiredRoles ...models.RoleType) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextRoleType)
		if !exists {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeUnauthorized, "Authentication required")
			errorDetail = errorDetail.WithDetails("User role not found")
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(errorDetail))
			return
		}

		roleStr, ok := role.(string)
		if ok {
			for _, required := range requiredRoles {
				if roleStr == string(required) {
					c.Next()
					return
				}
			}
		}

		errorDetail := dto.NewErrorDetail(dto.ErrorCodeForbidden, "Access denied")
		errorDetail = errorDetail.WithDetails("You don't have sufficient permissions for this operation")
		c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(errorDetail))
	}
}

// CurrentUserID extracts the authenticated user's ID from the context
func CurrentUserID(c *gin.Context) (int64, bool) {
	value, exists := c.Get(ContextUserID)
	if !exists {
		return 0, false
	}
	id, ok := value.(int64)
	return id, ok
}

// CurrentSessionToken extracts the device session token from the context
func CurrentSessionToken(c *gin.Context) string {
	value, exists := c.Get(ContextSessionToken)
	if !exists {
		return ""
	}
	token, _ := value.(string)
	return token
}
