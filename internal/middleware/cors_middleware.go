package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"clubledger-backend-go/internal/config"
)

// DefaultClientURL is allowed when CLIENT_URL is not configured.
const DefaultClientURL = "http://localhost:3000"

// CORSMiddleware allows requests from the configured CLIENT_URL.
func CORSMiddleware(appConfig *config.Config) gin.HandlerFunc {
	clientURL := DefaultClientURL
	if appConfig != nil && appConfig.ClientURL != "" {
		clientURL = appConfig.ClientURL
	}

	return cors.New(cors.Config{
		AllowOrigins: []string{clientURL},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		// "Authorization" carries the ID token; "Cache-Control" and
		// "Last-Event-ID" are sent by EventSource clients.
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", "Cache-Control", "Last-Event-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
