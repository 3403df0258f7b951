package service

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"banking-api/internal/domain"
	"banking-api/internal/errors"
)

type AccountService struct {
	store  domain.Store
	logger *slog.Logger
}

func NewAccountService(store domain.Store, logger *slog.Logger) *AccountService {
	return &AccountService{
		store:  store,
		logger: logger,
	}
}

type CreateAccountRequest struct {
	UserID            int64
	BankName          string
	BankAccountNumber string
	Balance           decimal.Decimal
}

func (s *AccountService) CreateAccount(ctx context.Context, req CreateAccountRequest) (*domain.Account, error) {
	s.logger.Info("Creating account",
		"user_id", req.UserID,
		"bank_name", req.BankName,
		"initial_balance", req.Balance.String())

	if req.Balance.IsNegative() {
		return nil, errors.ErrInvalidBalance
	}
	if !domain.IsMoney(req.Balance) {
		return nil, errors.ErrBalancePrecision
	}

	if _, err := s.store.User().GetUser(ctx, req.UserID); err != nil {
		if errors.Is(err, errors.UserNotFound) {
			return nil, errors.NewAppErrorf(errors.Conflict, "No user with user_id %d", req.UserID)
		}
		return nil, err
	}

	account := &domain.Account{
		UserID:            req.UserID,
		BankName:          req.BankName,
		BankAccountNumber: req.BankAccountNumber,
		Balance:           req.Balance,
	}
	if err := s.store.Account().CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("Account created successfully", "account_id", account.ID)
	return account, nil
}

func (s *AccountService) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	return s.store.Account().ListAccounts(ctx)
}

func (s *AccountService) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	s.logger.Info("Getting account", "account_id", id)

	account, err := s.store.Account().GetAccount(ctx, id)
	if err != nil {
		return nil, accountLookupError(err, id)
	}
	return account, nil
}

func (s *AccountService) DeleteAccount(ctx context.Context, id int64) (*domain.Account, error) {
	s.logger.Info("Deleting account", "account_id", id)

	account, err := s.store.Account().DeleteAccount(ctx, id)
	if err != nil {
		return nil, accountLookupError(err, id)
	}

	s.logger.Info("Account deleted", "account_id", id)
	return account, nil
}

func accountLookupError(err error, id int64) error {
	if errors.Is(err, errors.AccountNotFound) {
		return errors.NewAppErrorf(errors.AccountNotFound, "Account with id %d not found", id)
	}
	return err
}
