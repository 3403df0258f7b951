package service

import (
	"context"
	"log/slog"
	"strings"

	"banking-api/internal/auth"
	"banking-api/internal/domain"
	"banking-api/internal/errors"
)

type UserService struct {
	store  domain.Store
	logger *slog.Logger
}

func NewUserService(store domain.Store, logger *slog.Logger) *UserService {
	return &UserService{
		store:  store,
		logger: logger,
	}
}

type RegisterRequest struct {
	Name           string
	Email          string
	Password       string
	IdentityType   string
	IdentityNumber string
	Address        string
}

// Register stores the user and the profile together; either both rows exist
// afterwards or neither does.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*domain.User, error) {
	s.logger.Info("Registering user", "email", req.Email)

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, errors.ErrInternal.WithDetails(err.Error())
	}

	user := &domain.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		Role:         domain.RoleCustomer,
		Profile: &domain.Profile{
			IdentityType:   req.IdentityType,
			IdentityNumber: req.IdentityNumber,
			Address:        req.Address,
		},
	}

	err = s.store.WithTransaction(ctx, func(tx domain.Store) error {
		return tx.User().CreateUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("User registered", "user_id", user.ID)
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.store.User().ListUsers(ctx)
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	s.logger.Info("Getting user", "user_id", id)

	user, err := s.store.User().GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, errors.UserNotFound) {
			return nil, errors.NewAppErrorf(errors.UserNotFound, "User with id %d not found", id)
		}
		return nil, err
	}
	return user, nil
}
