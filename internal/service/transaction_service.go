package service

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"banking-api/internal/domain"
	"banking-api/internal/errors"
	"banking-api/internal/metrics"
)

type TransactionService struct {
	store   domain.Store
	metrics *metrics.Collector
	logger  *slog.Logger
}

func NewTransactionService(store domain.Store, collector *metrics.Collector, logger *slog.Logger) *TransactionService {
	return &TransactionService{
		store:   store,
		metrics: collector,
		logger:  logger,
	}
}

type TransferRequest struct {
	SourceAccountID      int64
	DestinationAccountID int64
	Amount               decimal.Decimal
}

// TransferResult carries the recorded transaction and both account snapshots
// as they stand after the transfer committed.
type TransferResult struct {
	Transaction        *domain.Transaction
	SourceAccount      *domain.Account
	DestinationAccount *domain.Account
}

// Transfer moves Amount from the source to the destination account. Checks
// run in order (amount and its scale, existence, same account, balance) and nothing is
// written unless all of them pass. The insert, debit and credit share one
// unit of work.
func (s *TransactionService) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	start := time.Now()
	amount, _ := req.Amount.Float64()

	s.logger.Info("Processing transfer",
		"source_account_id", req.SourceAccountID,
		"destination_account_id", req.DestinationAccountID,
		"amount", req.Amount.String())

	if !req.Amount.IsPositive() {
		s.metrics.RecordTransfer(metrics.ResultValidation, time.Since(start), amount)
		return nil, errors.ErrInvalidAmount
	}
	if !domain.IsMoney(req.Amount) {
		s.metrics.RecordTransfer(metrics.ResultValidation, time.Since(start), amount)
		return nil, errors.ErrAmountPrecision
	}

	var result *TransferResult
	err := s.store.WithTransaction(ctx, func(tx domain.Store) error {
		accounts, err := lockAccounts(ctx, tx.Account(), req.SourceAccountID, req.DestinationAccountID)
		if err != nil {
			return err
		}
		source := accounts[req.SourceAccountID]
		destination := accounts[req.DestinationAccountID]

		if req.SourceAccountID == req.DestinationAccountID {
			return errors.ErrSameAccountTransfer
		}

		if source.Balance.LessThan(req.Amount) {
			return errors.ErrInsufficientBalance.WithDetails(
				"balance " + source.Balance.String() + ", amount " + req.Amount.String())
		}

		transaction := &domain.Transaction{
			SourceAccountID:      source.ID,
			DestinationAccountID: destination.ID,
			Amount:               req.Amount,
		}
		if err := tx.Transaction().CreateTransaction(ctx, transaction); err != nil {
			return err
		}

		debited, err := tx.Account().UpdateAccountBalance(ctx, source.ID, source.Balance.Sub(req.Amount))
		if err != nil {
			return err
		}

		credited, err := tx.Account().UpdateAccountBalance(ctx, destination.ID, destination.Balance.Add(req.Amount))
		if err != nil {
			return err
		}

		result = &TransferResult{
			Transaction:        transaction,
			SourceAccount:      debited,
			DestinationAccount: credited,
		}
		return nil
	})

	if err != nil {
		outcome := transferResult(err)
		s.metrics.RecordTransfer(outcome, time.Since(start), amount)
		if outcome == metrics.ResultError {
			s.logger.Error("Transfer failed",
				"source_account_id", req.SourceAccountID,
				"destination_account_id", req.DestinationAccountID,
				"error", err)
			return nil, err
		}
		s.logger.Warn("Transfer rejected",
			"source_account_id", req.SourceAccountID,
			"destination_account_id", req.DestinationAccountID,
			"error", err)
		return nil, err
	}

	s.metrics.RecordTransfer(metrics.ResultSuccess, time.Since(start), amount)
	s.logger.Info("Transfer completed successfully",
		"transaction_id", result.Transaction.ID,
		"source_balance", result.SourceAccount.Balance.String(),
		"destination_balance", result.DestinationAccount.Balance.String())
	return result, nil
}

// lockAccounts takes the row locks in ascending id order so that two
// transfers touching the same pair in opposite directions cannot deadlock.
// A missing or deleted account is reported as an invalid reference.
func lockAccounts(ctx context.Context, repo domain.AccountRepository, ids ...int64) (map[int64]*domain.Account, error) {
	ordered := slices.Clone(ids)
	slices.Sort(ordered)
	ordered = slices.Compact(ordered)

	locked := make(map[int64]*domain.Account, len(ordered))
	for _, id := range ordered {
		account, err := repo.GetAccountForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, errors.AccountNotFound) {
				return nil, errors.ErrInvalidAccountID
			}
			return nil, err
		}
		locked[id] = account
	}
	return locked, nil
}

func transferResult(err error) string {
	appErr, ok := errors.As(err)
	if !ok {
		return metrics.ResultError
	}
	switch appErr.Code {
	case errors.ValidationFailed:
		return metrics.ResultValidation
	case errors.InvalidAccountID:
		return metrics.ResultInvalidAccount
	case errors.SameAccountTransfer:
		return metrics.ResultSameAccount
	case errors.InsufficientBalance:
		return metrics.ResultInsufficientBalance
	default:
		return metrics.ResultError
	}
}

func (s *TransactionService) ListTransactions(ctx context.Context) ([]*domain.Transaction, error) {
	return s.store.Transaction().ListTransactions(ctx)
}

func (s *TransactionService) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	s.logger.Info("Getting transaction", "transaction_id", id)
	return s.store.Transaction().GetTransactionByID(ctx, id)
}
