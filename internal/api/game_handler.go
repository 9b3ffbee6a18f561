package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"clubledger-backend-go/internal/core"
	"clubledger-backend-go/internal/models"
)

// GameHandler handles scheduling and settling games.
type GameHandler struct {
	ledger core.EventLedger
	logger *zap.Logger
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(ledger core.EventLedger, logger *zap.Logger) *GameHandler {
	return &GameHandler{ledger: ledger, logger: logger}
}

// ListUpcoming handles GET /api/v1/games/upcoming.
func (h *GameHandler) ListUpcoming(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.UpcomingGames())
}

// ListPast handles GET /api/v1/games/past.
func (h *GameHandler) ListPast(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.PastGames())
}

// CreateGame handles POST /api/v1/games.
func (h *GameHandler) CreateGame(c *gin.Context) {
	var req models.CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	id, err := h.ledger.CreateGame(c.Request.Context(), req.Date, req.Time, req.Venue)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if id == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Valid date (YYYY-MM-DD), time (HH:MM) and venue are required"})
		return
	}
	c.JSON(http.StatusCreated, CreateGameResponse{ID: id})
}

// DeleteGame handles DELETE /api/v1/games/:gameId. Settled games are removed too.
func (h *GameHandler) DeleteGame(c *gin.Context) {
	if err := h.ledger.Remove(c.Request.Context(), c.Param("gameId")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SelectGame handles POST /api/v1/games/:gameId/select.
func (h *GameHandler) SelectGame(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	session.SelectGame(c.Param("gameId"))
	c.JSON(http.StatusOK, SuccessResponse{Message: "Game selected", Data: gin.H{"selectedGame": session.SelectedGame()}})
}

// PayGame handles POST /api/v1/games/pay, settling the caller's selected game.
func (h *GameHandler) PayGame(c *gin.Context) {
	session, ok := currentSession(c)
	if !ok {
		return
	}
	var req models.PayGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	if req.Amount <= 0 || req.Member == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "A positive amount and a member are required"})
		return
	}

	if err := session.PayGame(c.Request.Context(), req.Amount, req.Member); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Game settled", Data: gin.H{"gameId": session.SelectedGame()}})
}
