package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clubledger-backend-go/internal/core"
	"clubledger-backend-go/internal/identity"
)

// LoadSession attaches the caller's session, opening one when the token is
// valid but no session is held (e.g. after a restart). Must run after VerifyToken.
func LoadSession(sessions *core.SessionManager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString(ContextUserID)
		if uid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "User not authenticated"})
			return
		}
		session, err := sessions.Ensure(c.Request.Context(), identity.Identity{UID: uid})
		if err != nil {
			logger.Error("Failed to load session", zap.String("uid", uid), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Session unavailable", Details: err.Error()})
			return
		}
		c.Set(ContextSession, session)
		c.Next()
	}
}

// CurrentSession returns the session attached by LoadSession.
func CurrentSession(c *gin.Context) (*core.Session, bool) {
	v, ok := c.Get(ContextSession)
	if !ok {
		return nil, false
	}
	session, ok := v.(*core.Session)
	return session, ok
}

// RequireMember refuses callers whose session was not opened for a member.
// Only members see the approval queue, the directory and the games.
func RequireMember() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := CurrentSession(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "User not authenticated"})
			return
		}
		if !session.IsMember() {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: "Membership required", Details: core.ErrNotMember.Error()})
			return
		}
		c.Next()
	}
}
