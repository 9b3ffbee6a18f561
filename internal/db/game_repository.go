package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"clubledger-backend-go/internal/models"
)

// GamesCollection holds scheduled games under store-assigned IDs.
const GamesCollection = "games"

// storeGameRepository implements the GameRepository interface on a Store.
type storeGameRepository struct {
	store Store
}

// NewGameRepository creates a new GameRepository backed by store.
func NewGameRepository(store Store) GameRepository {
	if store == nil {
		log.Fatal("Store is not initialized for GameRepository.")
	}
	return &storeGameRepository{store: store}
}

// Create adds a new game document with an auto-generated ID.
func (r *storeGameRepository) Create(ctx context.Context, game *models.Game) (string, error) {
	id, err := r.store.Add(ctx, GamesCollection, game.Fields())
	if err != nil {
		return "", fmt.Errorf("failed to create game: %w", err)
	}
	game.ID = id
	return id, nil
}

// GetByID retrieves a game document by its ID.
func (r *storeGameRepository) GetByID(ctx context.Context, gameID string) (*models.Game, error) {
	if gameID == "" {
		return nil, errors.New("gameID cannot be empty for GetByID operation")
	}
	doc, err := r.store.Get(ctx, GamesCollection, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game with ID '%s': %w", gameID, err)
	}
	return models.DecodeGame(doc.ID, doc.Data)
}

// Delete removes a game document regardless of its payment state.
func (r *storeGameRepository) Delete(ctx context.Context, gameID string) error {
	if gameID == "" {
		return errors.New("gameID cannot be empty for Delete operation")
	}
	if err := r.store.Delete(ctx, GamesCollection, gameID); err != nil {
		return fmt.Errorf("failed to delete game with ID '%s': %w", gameID, err)
	}
	return nil
}

// Settle writes the settlement record and the payer's increment in a single
// transaction, so either both land or neither does.
func (r *storeGameRepository) Settle(ctx context.Context, gameID string, payment models.PaymentSettled, check SettlementCheck) error {
	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		gameDoc, err := tx.Get(GamesCollection, gameID)
		if err != nil {
			return err
		}
		game, err := models.DecodeGame(gameDoc.ID, gameDoc.Data)
		if err != nil {
			return err
		}
		// A missing payer is handed to check as nil.
		var payer *models.User
		payerDoc, err := tx.Get(UsersCollection, payment.Member)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return err
		default:
			if payer, err = models.DecodeUser(payerDoc.ID, payerDoc.Data); err != nil {
				return err
			}
		}
		if check != nil {
			if err := check(game, payer); err != nil {
				return err
			}
		}

		if err := tx.Update(GamesCollection, gameID, map[string]interface{}{"payment": models.EncodePayment(payment)}); err != nil {
			return err
		}
		return tx.Increment(UsersCollection, payment.Member, "total", payment.Amount)
	})
	if err != nil {
		return fmt.Errorf("failed to settle game '%s': %w", gameID, err)
	}
	return nil
}
