package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clubledger-backend-go/internal/core"
	"clubledger-backend-go/internal/identity"
	"clubledger-backend-go/internal/middleware"
	"clubledger-backend-go/internal/models"
)

// AuthHandler handles sign-up, sign-in and sign-out.
type AuthHandler struct {
	registry core.MembershipRegistry
	sessions *core.SessionManager
	logger   *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(registry core.MembershipRegistry, sessions *core.SessionManager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{registry: registry, sessions: sessions, logger: logger}
}

// respondWithSession replaces any session held for id and answers with the
// identity and its user record.
func (h *AuthHandler) respondWithSession(c *gin.Context, status int, id *identity.Identity) {
	session, err := h.sessions.Open(c.Request.Context(), *id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(status, AuthResponse{Identity: id, User: session.User()})
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	id, err := h.registry.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if id == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Email and password are required"})
		return
	}
	h.respondWithSession(c, http.StatusCreated, id)
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	id, err := h.registry.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if id == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Email and password are required"})
		return
	}
	h.respondWithSession(c, http.StatusOK, id)
}

// LoginWithProvider handles POST /api/v1/auth/login/provider.
func (h *AuthHandler) LoginWithProvider(c *gin.Context) {
	var req models.ProviderLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	id, err := h.registry.LoginWithProvider(c.Request.Context(), req.ProviderID, req.IDToken)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if id == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Provider ID token is required"})
		return
	}
	h.respondWithSession(c, http.StatusOK, id)
}

// Logout handles POST /api/v1/auth/logout. Every feed held for the caller
// is closed and its refresh tokens are revoked.
func (h *AuthHandler) Logout(c *gin.Context) {
	uid := c.GetString(middleware.ContextUserID)
	if uid == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return
	}
	if err := h.sessions.Logout(c.Request.Context(), uid); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Logged out"})
}
