package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clubledger-backend-go/internal/core"
)

// UserHandler handles the member directory and the approval queue.
type UserHandler struct {
	registry core.MembershipRegistry
	logger   *zap.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(registry core.MembershipRegistry, logger *zap.Logger) *UserHandler {
	return &UserHandler{registry: registry, logger: logger}
}

// GetCurrentUser handles GET /api/v1/users/me.
func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	user := session.User()
	if user == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "User profile not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// ListPending handles GET /api/v1/users/pending. Served from the live view.
func (h *UserHandler) ListPending(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.PendingUsers())
}

// ListMembers handles GET /api/v1/users/members.
func (h *UserHandler) ListMembers(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.Members())
}

// Accept handles POST /api/v1/users/:uid/accept.
func (h *UserHandler) Accept(c *gin.Context) {
	uid := c.Param("uid")
	if err := h.registry.Accept(c.Request.Context(), uid); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "User accepted", Data: gin.H{"uid": uid}})
}

// Reject handles POST /api/v1/users/:uid/reject.
func (h *UserHandler) Reject(c *gin.Context) {
	uid := c.Param("uid")
	if err := h.registry.Reject(c.Request.Context(), uid); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "User rejected", Data: gin.H{"uid": uid}})
}
