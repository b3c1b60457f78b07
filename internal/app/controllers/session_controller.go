package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/deniz/learnstack/internal/app/models/dto"
	"github.com/deniz/learnstack/internal/app/services"
	"github.com/deniz/learnstack/internal/middleware"
)

// SessionController exposes admin operations on device sessions
type SessionController struct {
	sessionService services.SessionService
	logger         zerolog.Logger
}

// NewSessionController creates a new SessionController
func NewSessionController(sessionService services.SessionService, logger zerolog.Logger) *SessionController {
	return &SessionController{
		sessionService: sessionService,
		logger:         logger,
	}
}

// GetUserSessions lists a user's active device sessions
// @Summary List a user's active device sessions
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} dto.APIResponse{data=dto.SessionListResponse} "Active sessions"
// @Failure 400 {object} dto.ErrorResponse "Invalid user ID"
// @Failure 403 {object} dto.ErrorResponse "Admin role required"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /users/{id}/sessions [get]
func (c *SessionController) GetUserSessions(ctx *gin.Context) {
	userID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid user ID")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	sessions, err := c.sessionService.GetActiveSessions(ctx.Request.Context(), userID)
	if err != nil {
		c.logger.Error().Err(err).Int64("userID", userID).Msg("Failed to list user sessions")
		middleware.HandleAPIError(ctx, err)
		return
	}

	resp := dto.SessionListResponse{Sessions: make([]dto.SessionResponse, 0, len(sessions))}
	for i := range sessions {
		resp.Sessions = append(resp.Sessions, dto.NewSessionResponse(&sessions[i]))
	}

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: resp})
}

// RevokeUserSessions invalidates every active session of a user
// @Summary Revoke a user's device sessions
// @Description Forces the user to log in again on every device
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} dto.APIResponse{data=dto.RevokeSessionsResponse} "Sessions revoked"
// @Failure 400 {object} dto.ErrorResponse "Invalid user ID"
// @Failure 403 {object} dto.ErrorResponse "Admin role required"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /users/{id}/sessions [delete]
func (c *SessionController) RevokeUserSessions(ctx *gin.Context) {
	userID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid user ID")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	count, err := c.sessionService.InvalidateUserSessions(ctx.Request.Context(), userID)
	if err != nil {
		c.logger.Error().Err(err).Int64("userID", userID).Msg("Failed to revoke user sessions")
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Int64("userID", userID).Int64("count", count).Msg("Admin revoked user sessions")

	ctx.JSON(http.StatusOK, dto.APIResponse{Data: dto.RevokeSessionsResponse{RevokedCount: count}})
}
