package repositories

import (
	"context"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*entities.User, error)

	// GetPersona returns the persona text of a user; empty when none was inferred yet
	GetPersona(ctx context.Context, userID string) (string, error)

	// SetPersona replaces the persona text of a user
	SetPersona(ctx context.Context, userID string, persona string) error
}
