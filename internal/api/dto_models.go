package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clubledger-backend-go/internal/core"
	"clubledger-backend-go/internal/identity"
	"clubledger-backend-go/internal/middleware"
	"clubledger-backend-go/internal/models"
)

// ErrorResponse is a generic structure for returning errors via API.
type ErrorResponse struct {
	Error   string `json:"error"`             // A high-level error message or code
	Details string `json:"details,omitempty"` // More specific details about the error, if available
}

// SuccessResponse is a generic structure for simple success messages.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// AuthResponse is returned by the sign-up and sign-in endpoints.
type AuthResponse struct {
	Identity *identity.Identity `json:"identity"`
	User     *models.User       `json:"user"` // Nil if the identity has no user record
}

// CreateGameResponse carries the store-assigned game ID.
type CreateGameResponse struct {
	ID string `json:"id"`
}

// FeedSnapshot is one event of the live feed: everything the session can see.
type FeedSnapshot struct {
	User         *models.User   `json:"user"`
	Member       bool           `json:"member"`
	SelectedGame string         `json:"selectedGame,omitempty"`
	Pending      []*models.User `json:"pending"`
	Members      []*models.User `json:"members"`
	Upcoming     []*models.Game `json:"upcoming"`
	Past         []*models.Game `json:"past"`
}

func newFeedSnapshot(s *core.Session) FeedSnapshot {
	return FeedSnapshot{
		User:         s.User(),
		Member:       s.IsMember(),
		SelectedGame: s.SelectedGame(),
		Pending:      s.PendingUsers(),
		Members:      s.Members(),
		Upcoming:     s.UpcomingGames(),
		Past:         s.PastGames(),
	}
}

// writeError maps errors from the core services to HTTP status codes.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	var statusCode int
	var errResponse ErrorResponse

	switch {
	case errors.Is(err, identity.ErrAuth):
		statusCode = http.StatusUnauthorized
		errResponse = ErrorResponse{Error: identity.ErrAuth.Error(), Details: err.Error()}
	case errors.Is(err, core.ErrUserNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrUserNotFound.Error(), Details: err.Error()}
	case errors.Is(err, core.ErrGameNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrGameNotFound.Error(), Details: err.Error()}
	case errors.Is(err, core.ErrNotMember):
		statusCode = http.StatusForbidden
		errResponse = ErrorResponse{Error: core.ErrNotMember.Error()}
	case errors.Is(err, core.ErrPayerNotMember):
		statusCode = http.StatusUnprocessableEntity
		errResponse = ErrorResponse{Error: core.ErrPayerNotMember.Error(), Details: err.Error()}
	case errors.Is(err, core.ErrGameAlreadySettled):
		statusCode = http.StatusConflict
		errResponse = ErrorResponse{Error: core.ErrGameAlreadySettled.Error(), Details: err.Error()}
	case errors.Is(err, core.ErrNoGameSelected):
		statusCode = http.StatusConflict
		errResponse = ErrorResponse{Error: core.ErrNoGameSelected.Error()}
	case errors.Is(err, core.ErrManagerClosed):
		statusCode = http.StatusServiceUnavailable
		errResponse = ErrorResponse{Error: "Service is shutting down"}
	default:
		logger.Error("Internal Server Error", zap.String("path", c.Request.URL.Path), zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResponse = ErrorResponse{Error: "An unexpected internal server error occurred."}
	}
	c.JSON(statusCode, errResponse)
}

// currentSession fetches the session attached by the session middleware and
// writes a 401 if there is none.
func currentSession(c *gin.Context) (*core.Session, bool) {
	session, ok := middleware.CurrentSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Session not found in context"})
	}
	return session, ok
}
