package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"clubledger-backend-go/internal/db"
	"clubledger-backend-go/internal/models"
)

var (
	// ErrGameNotFound is returned when a game is not found.
	ErrGameNotFound = errors.New("game not found")
	// ErrGameAlreadySettled is returned when a settled game is paid again.
	ErrGameAlreadySettled = errors.New("game already settled")
)

// GameTimeLayout is how a game's date and time-of-day inputs are combined.
const GameTimeLayout = "2006-01-02 15:04"

// eventLedger implements the EventLedger interface.
type eventLedger struct {
	games    db.GameRepository
	registry MembershipRegistry
	location *time.Location
	logger   *zap.Logger
}

// NewEventLedger creates a new EventLedger. Game times are read in loc.
func NewEventLedger(games db.GameRepository, registry MembershipRegistry, loc *time.Location, logger *zap.Logger) EventLedger {
	if loc == nil {
		loc = time.UTC
	}
	return &eventLedger{
		games:    games,
		registry: registry,
		location: loc,
		logger:   logger,
	}
}

func (l *eventLedger) CreateGame(ctx context.Context, date, timeOfDay, venue string) (string, error) {
	if date == "" || timeOfDay == "" || venue == "" {
		l.logger.Debug("CreateGame skipped: date, time and venue are required")
		return "", nil
	}
	at, err := time.ParseInLocation(GameTimeLayout, date+" "+timeOfDay, l.location)
	if err != nil {
		l.logger.Debug("CreateGame skipped: unparseable date or time", zap.String("date", date), zap.String("time", timeOfDay))
		return "", nil
	}

	id, err := l.games.Create(ctx, models.NewGame(at, venue))
	if err != nil {
		l.logger.Error("Failed to create game", zap.String("venue", venue), zap.Error(err))
		return "", err
	}
	l.logger.Info("Game created", zap.String("gameID", id), zap.Time("date", at))
	return id, nil
}

func (l *eventLedger) Remove(ctx context.Context, gameID string) error {
	if gameID == "" {
		return nil
	}
	if err := l.games.Delete(ctx, gameID); err != nil {
		l.logger.Error("Failed to remove game", zap.String("gameID", gameID), zap.Error(err))
		return err
	}
	l.logger.Info("Game removed", zap.String("gameID", gameID))
	return nil
}

func (l *eventLedger) PayGame(ctx context.Context, gameID string, amount float64, memberID string) error {
	if gameID == "" || memberID == "" || amount <= 0 {
		l.logger.Debug("PayGame skipped: game, member and a positive amount are required")
		return nil
	}

	payment := models.PaymentSettled{Member: memberID, Amount: amount}
	err := l.games.Settle(ctx, gameID, payment, func(game *models.Game, payer *models.User) error {
		if game.Settled() {
			return fmt.Errorf("%w: game '%s'", ErrGameAlreadySettled, game.ID)
		}
		return l.registry.ValidatePayer(payer)
	})
	if err != nil {
		l.logger.Error("Failed to settle game", zap.String("gameID", gameID), zap.String("member", memberID), zap.Float64("amount", amount), zap.Error(err))
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: game with ID '%s'", ErrGameNotFound, gameID)
		}
		return err
	}
	l.logger.Info("Game settled", zap.String("gameID", gameID), zap.String("member", memberID), zap.Float64("amount", amount))
	return nil
}
