package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	"github.com/pagewise/bookstore/backend/internal/domain/repositories"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/pagewise/bookstore/backend/pkg/errors"
)

// UserAdapter implements UserRepository
type UserAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewUserAdapter creates a new user adapter
func NewUserAdapter(client *postgres.Client) repositories.UserRepository {
	return &UserAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves a user by ID
func (a *UserAdapter) GetByID(ctx context.Context, id string) (*entities.User, error) {
	query, args, err := a.db.From("users").
		Select("id", "email", "name", goqu.COALESCE(goqu.C("persona"), ""), "persona_updated_at", "created_at", "updated_at").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	user := &entities.User{}
	var personaUpdatedAt sql.NullTime
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Persona,
		&personaUpdatedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("user with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get user", err)
	}
	if personaUpdatedAt.Valid {
		t := personaUpdatedAt.Time
		user.PersonaUpdatedAt = &t
	}
	return user, nil
}

// GetPersona returns the persona text of a user
func (a *UserAdapter) GetPersona(ctx context.Context, userID string) (string, error) {
	query, args, err := a.db.From("users").
		Select(goqu.COALESCE(goqu.C("persona"), "")).
		Where(goqu.Ex{"id": userID}).
		ToSQL()
	if err != nil {
		return "", apperrors.NewInternalError("failed to build query", err)
	}

	var persona string
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(&persona)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.NewNotFoundError(fmt.Sprintf("user with id %s not found", userID))
	}
	if err != nil {
		return "", apperrors.NewInternalError("failed to get persona", err)
	}
	return persona, nil
}

// SetPersona replaces the persona text of a user
func (a *UserAdapter) SetPersona(ctx context.Context, userID string, persona string) error {
	now := time.Now().UTC()
	query, args, err := a.db.Update("users").
		Set(goqu.Record{
			"persona":            persona,
			"persona_updated_at": now,
			"updated_at":         now,
		}).
		Where(goqu.Ex{"id": userID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to set persona", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to read affected rows", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("user with id %s not found", userID))
	}
	return nil
}
