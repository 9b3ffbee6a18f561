package db

import (
	"context"
	"errors"

	"clubledger-backend-go/internal/models"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyExists is returned by Create when the document is already present.
	ErrAlreadyExists = errors.New("document already exists")
)

// Document is one raw record pushed by the store.
type Document struct {
	ID   string
	Data map[string]interface{}
}

// Store is the document-store capability the application is built on.
// Field maps passed to Update are keyed by top-level field name.
type Store interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	// Set replaces the whole document, creating it if needed.
	Set(ctx context.Context, collection, id string, fields map[string]interface{}) error
	// Create writes a new document and fails with ErrAlreadyExists if one is present.
	Create(ctx context.Context, collection, id string, fields map[string]interface{}) error
	// Add writes a new document under a store-assigned ID.
	Add(ctx context.Context, collection string, fields map[string]interface{}) (string, error)
	// Update patches the given fields of an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]interface{}) error
	// Increment atomically adds delta to a numeric field of an existing document.
	Increment(ctx context.Context, collection, id, field string, delta float64) error
	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error

	// Subscribe pushes the full matching result set on every change until the
	// subscription is closed or ctx is cancelled.
	Subscribe(ctx context.Context, q Query) (*Subscription, error)
	// SubscribeDoc pushes a zero- or one-element snapshot of a single document.
	SubscribeDoc(ctx context.Context, collection, id string) (*Subscription, error)

	// RunTransaction runs fn atomically. All Tx reads must happen before writes.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	Close() error
}

// Tx is the view of the store inside RunTransaction.
type Tx interface {
	Get(collection, id string) (*Document, error)
	Update(collection, id string, fields map[string]interface{}) error
	Increment(collection, id, field string, delta float64) error
}

// UserRepository defines the interface for user data storage operations.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	// Create fails with ErrAlreadyExists when a record for the ID is present.
	Create(ctx context.Context, user *models.User) error
	// Put writes the full record, replacing any previous one.
	Put(ctx context.Context, user *models.User) error
	UpdateRole(ctx context.Context, userID string, role models.Role) error
	IncrementTotal(ctx context.Context, userID string, delta float64) error
}

// SettlementCheck validates a settlement against the current game and payer
// records read inside the settlement transaction.
type SettlementCheck func(game *models.Game, payer *models.User) error

// GameRepository defines the interface for game data storage operations.
type GameRepository interface {
	Create(ctx context.Context, game *models.Game) (string, error) // Returns new game ID
	GetByID(ctx context.Context, gameID string) (*models.Game, error)
	Delete(ctx context.Context, gameID string) error
	// Settle records the payment on the game and credits the payer's total in
	// one transaction. check runs against the records read in that transaction;
	// payer is nil when no user record exists for payment.Member.
	Settle(ctx context.Context, gameID string, payment models.PaymentSettled, check SettlementCheck) error
}
