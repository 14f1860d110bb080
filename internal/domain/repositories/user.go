package repositories

import (
	"context"

	"github.com/preventix/preventix/internal/domain/entities"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create a new user
	Create(ctx context.Context, user *entities.User) error

	// GetByID retrieves a user by their ID
	GetByID(ctx context.Context, id string) (*entities.User, error)

	// GetByEmail retrieves a user by their email address
	GetByEmail(ctx context.Context, email string) (*entities.User, error)

	// Update an existing user
	Update(ctx context.Context, user *entities.User) error

	// ExistsByEmail checks if a user exists by email
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}
