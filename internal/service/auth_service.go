package service

import (
	"context"
	"log/slog"

	"banking-api/internal/auth"
	"banking-api/internal/domain"
	"banking-api/internal/errors"
)

type AuthService struct {
	store  domain.Store
	tokens *auth.TokenIssuer
	logger *slog.Logger
}

func NewAuthService(store domain.Store, tokens *auth.TokenIssuer, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:  store,
		tokens: tokens,
		logger: logger,
	}
}

// Login checks the credentials and issues a signed token. An unknown email
// and a wrong password produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.store.User().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errors.UserNotFound) {
			return nil, "", errors.ErrInvalidCredentials
		}
		return nil, "", err
	}

	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return nil, "", errors.ErrInternal.WithDetails(err.Error())
	}
	if !ok {
		s.logger.Warn("Login rejected", "user_id", user.ID)
		return nil, "", errors.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, "", errors.ErrInternal.WithDetails(err.Error())
	}

	s.logger.Info("User logged in", "user_id", user.ID)
	return user, token, nil
}

// Authenticate resolves a bearer token to the user it was issued for.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, errors.ErrUnauthorized.WithDetails(err.Error())
	}

	user, err := s.store.User().GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, errors.UserNotFound) {
			return nil, errors.ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}
