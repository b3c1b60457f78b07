package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/deniz/learnstack/internal/app/controllers"
	"github.com/deniz/learnstack/internal/app/models"
	"github.com/deniz/learnstack/internal/app/models/dto"
	"github.com/deniz/learnstack/internal/middleware"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	authController *controllers.AuthController,
	userController *controllers.UserController,
	sessionController *controllers.SessionController,
	authMiddleware *middleware.AuthMiddleware,
	loginLimiter *middleware.RateLimiter,
) {
	// API version group
	v1 := router.Group("/api/v1")

	// --- Public Auth routes ---
	auth := v1.Group("/auth")
	{
		auth.POST("/register", authController.Register)
		auth.POST("/login", loginLimiter.Handler(), authController.Login)
		auth.POST("/refresh", authController.RefreshToken)
		// Session status does its own token handling so that clients can
		// probe a superseded token without being rejected outright
		auth.GET("/session-status", authController.SessionStatus)
	}

	// --- Authenticated Routes Group ---
	authenticated := v1.Group("")
	authenticated.Use(authMiddleware.JWTAuth())
	{
		authenticated.POST("/auth/logout", authController.Logout)

		users := authenticated.Group("/users")
		{
			users.GET("/me", userController.GetProfile)
			users.PUT("/me", userController.UpdateProfile)

			// Admin-only user and session management
			usersAdmin := users.Group("")
			usersAdmin.Use(authMiddleware.RoleRequired(models.RoleAdmin))
			{
				usersAdmin.GET("", userController.ListUsers)
				usersAdmin.GET("/:id", userController.GetUserByID)
				usersAdmin.PUT("/:id/activate", userController.ActivateUser)
				usersAdmin.PUT("/:id/deactivate", userController.DeactivateUser)
				usersAdmin.GET("/:id/sessions", sessionController.GetUserSessions)
				usersAdmin.DELETE("/:id/sessions", sessionController.RevokeUserSessions)
			}
		}
	}

	// Health check endpoint (public)
	v1.GET("/health", func(c *gin.Context) {
		c.JSON(200, dto.APIResponse{
			Data: gin.H{"status": "ok"},
		})
	})
}
