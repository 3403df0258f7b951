package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"banking-api/internal/domain"
	"banking-api/internal/errors"
)

type userRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewUserRepository(db SQLExecutor, logger *slog.Logger) domain.UserRepository {
	return &userRepository{
		db:     db,
		logger: logger,
	}
}

// CreateUser inserts the user and, when present, its profile. Callers run it
// inside WithTransaction so both rows land together.
func (r *userRepository) CreateUser(ctx context.Context, user *domain.User) error {
	if user.Role == "" {
		user.Role = domain.RoleCustomer
	}

	query := `
		INSERT INTO users (name, email, password, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query, user.Name, user.Email, user.PasswordHash, user.Role).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if pqErr, ok := pqError(err); ok && pqErr.Code == pqUniqueViolation {
			r.logger.Warn("Duplicate user email")
			return errors.ErrDuplicateEmail
		}
		r.logger.Error("Failed to create user", "error", err)
		return errors.NewAppError(errors.InternalError, "failed to create user").WithDetails(err.Error())
	}

	if user.Profile != nil {
		profileQuery := `
			INSERT INTO profiles (user_id, identity_type, identity_number, address)
			VALUES ($1, $2, $3, $4)
		`
		if _, err := r.db.ExecContext(ctx, profileQuery,
			user.ID,
			user.Profile.IdentityType,
			user.Profile.IdentityNumber,
			user.Profile.Address,
		); err != nil {
			r.logger.Error("Failed to create profile", "user_id", user.ID, "error", err)
			return errors.NewAppError(errors.InternalError, "failed to create profile").WithDetails(err.Error())
		}
	}

	r.logger.Info("User created successfully", "user_id", user.ID)
	return nil
}

func (r *userRepository) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return r.getUser(ctx, `u.id = $1`, id)
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUser(ctx, `u.email = $1`, email)
}

func (r *userRepository) getUser(ctx context.Context, where string, arg interface{}) (*domain.User, error) {
	query := `
		SELECT u.id, u.name, u.email, u.password, u.role, u.created_at,
		       p.identity_type, p.identity_number, p.address
		FROM users u
		LEFT JOIN profiles p ON p.user_id = u.id
		WHERE ` + where

	var user domain.User
	var identityType, identityNumber, address sql.NullString

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&identityType,
		&identityNumber,
		&address,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrUserNotFound
		}
		r.logger.Error("Failed to get user", "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get user").WithDetails(err.Error())
	}

	if identityType.Valid {
		user.Profile = &domain.Profile{
			IdentityType:   identityType.String,
			IdentityNumber: identityNumber.String,
			Address:        address.String,
		}
	}
	return &user, nil
}

func (r *userRepository) ListUsers(ctx context.Context) ([]*domain.User, error) {
	query := `
		SELECT id, name, email, password, role, created_at
		FROM users
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list users", "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to list users").WithDetails(err.Error())
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt); err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to scan user").WithDetails(err.Error())
		}
		users = append(users, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to list users").WithDetails(err.Error())
	}

	return users, nil
}
