package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clubledger-backend-go/internal/config"
	"clubledger-backend-go/internal/core"
	"clubledger-backend-go/internal/middleware"
)

// SetupRoutes configures all the application routes with their handlers and middleware.
// Global middleware (logging, recovery, CORS) is applied in main.go.
func SetupRoutes(
	router *gin.Engine,
	appConfig *config.Config,
	logger *zap.Logger,
	verifier middleware.TokenVerifier,
	registry core.MembershipRegistry,
	ledger core.EventLedger,
	sessions *core.SessionManager,
) {
	authMW := middleware.NewAuthMiddleware(verifier, logger)
	withSession := []gin.HandlerFunc{authMW.VerifyToken(), middleware.LoadSession(sessions, logger)}
	membersOnly := append(append([]gin.HandlerFunc{}, withSession...), middleware.RequireMember())

	authHandler := NewAuthHandler(registry, sessions, logger)
	userHandler := NewUserHandler(registry, logger)
	gameHandler := NewGameHandler(ledger, logger)
	feedHandler := NewFeedHandler(sessions, logger)

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/login/provider", authHandler.LoginWithProvider)
			authGroup.POST("/logout", authMW.VerifyToken(), authHandler.Logout)
		}

		// /me and the feed are open to pending users so they can watch for acceptance.
		apiV1.GET("/users/me", append(withSession, userHandler.GetCurrentUser)...)
		apiV1.GET("/feed", append(withSession, feedHandler.Stream)...)

		usersGroup := apiV1.Group("/users", membersOnly...)
		{
			usersGroup.GET("/pending", userHandler.ListPending)
			usersGroup.GET("/members", userHandler.ListMembers)
			usersGroup.POST("/:uid/accept", userHandler.Accept)
			usersGroup.POST("/:uid/reject", userHandler.Reject)
		}

		gamesGroup := apiV1.Group("/games", membersOnly...)
		{
			gamesGroup.GET("/upcoming", gameHandler.ListUpcoming)
			gamesGroup.GET("/past", gameHandler.ListPast)
			gamesGroup.POST("", gameHandler.CreateGame)
			gamesGroup.POST("/pay", gameHandler.PayGame)
			gamesGroup.DELETE("/:gameId", gameHandler.DeleteGame)
			gamesGroup.POST("/:gameId/select", gameHandler.SelectGame)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "Club ledger backend is healthy.", "store": appConfig.StoreDriver})
	})

	logger.Info("API routes configured successfully under /api/v1 and /health.")
}
