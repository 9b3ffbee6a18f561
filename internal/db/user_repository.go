package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"clubledger-backend-go/internal/models"
)

// UsersCollection holds one document per identity, keyed by UID.
const UsersCollection = "users"

// storeUserRepository implements the UserRepository interface on a Store.
type storeUserRepository struct {
	store Store
}

// NewUserRepository creates a new UserRepository backed by store.
func NewUserRepository(store Store) UserRepository {
	if store == nil {
		log.Fatal("Store is not initialized for UserRepository.")
	}
	return &storeUserRepository{store: store}
}

// GetByID retrieves a user document by its ID (identity UID).
func (r *storeUserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for GetByID operation")
	}
	doc, err := r.store.Get(ctx, UsersCollection, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user with ID '%s': %w", userID, err)
	}
	return models.DecodeUser(doc.ID, doc.Data)
}

// Create adds a new user document; an existing record is left untouched and
// ErrAlreadyExists is returned.
func (r *storeUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return errors.New("user ID cannot be empty for Create operation")
	}
	if err := r.store.Create(ctx, UsersCollection, user.ID, user.Fields()); err != nil {
		return fmt.Errorf("failed to create user with ID '%s': %w", user.ID, err)
	}
	return nil
}

// Put overwrites the user document with the given record.
func (r *storeUserRepository) Put(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return errors.New("user ID cannot be empty for Put operation")
	}
	if err := r.store.Set(ctx, UsersCollection, user.ID, user.Fields()); err != nil {
		return fmt.Errorf("failed to write user with ID '%s': %w", user.ID, err)
	}
	return nil
}

// UpdateRole patches only the role field.
func (r *storeUserRepository) UpdateRole(ctx context.Context, userID string, role models.Role) error {
	if !role.Valid() {
		return fmt.Errorf("refusing to store invalid role %q for user '%s'", role, userID)
	}
	if err := r.store.Update(ctx, UsersCollection, userID, map[string]interface{}{"role": string(role)}); err != nil {
		return fmt.Errorf("failed to update role of user '%s': %w", userID, err)
	}
	return nil
}

// IncrementTotal adds delta to the user's running total.
func (r *storeUserRepository) IncrementTotal(ctx context.Context, userID string, delta float64) error {
	if err := r.store.Increment(ctx, UsersCollection, userID, "total", delta); err != nil {
		return fmt.Errorf("failed to increment total of user '%s': %w", userID, err)
	}
	return nil
}
