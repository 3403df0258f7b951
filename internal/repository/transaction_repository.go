package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/shopspring/decimal"

	"banking-api/internal/domain"
	"banking-api/internal/errors"
)

type transactionRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewTransactionRepository(db SQLExecutor, logger *slog.Logger) domain.TransactionRepository {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *transactionRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (source_account_id, destination_account_id, amount)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		tx.SourceAccountID,
		tx.DestinationAccountID,
		tx.Amount.String(),
	).Scan(&tx.ID, &tx.CreatedAt)

	if err != nil {
		if pqErr, ok := pqError(err); ok {
			switch {
			case pqErr.Code == pqForeignKeyViolation:
				r.logger.Warn("Transaction references unknown account",
					"source_account_id", tx.SourceAccountID,
					"destination_account_id", tx.DestinationAccountID)
				return errors.ErrInvalidAccountID
			case pqErr.Code == pqCheckViolation && pqErr.Constraint == "chk_transactions_distinct_accounts":
				return errors.ErrSameAccountTransfer
			case pqErr.Code == pqCheckViolation:
				r.logger.Warn("Transaction amount rejected by check constraint", "amount", tx.Amount)
				return errors.ErrInvalidAmount
			}
		}
		r.logger.Error("Failed to create transaction",
			"source_account_id", tx.SourceAccountID,
			"destination_account_id", tx.DestinationAccountID,
			"amount", tx.Amount,
			"error", err)
		return errors.NewAppError(errors.InternalError, "failed to create transaction").WithDetails(err.Error())
	}

	r.logger.Info("Transaction created successfully", "transaction_id", tx.ID)
	return nil
}

func (r *transactionRepository) GetTransactionByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	query := `
		SELECT t.id, t.source_account_id, t.destination_account_id, t.amount, t.created_at,
		       s.id, s.user_id, s.bank_name, s.bank_account_number, s.balance, s.created_at, s.updated_at, su.name,
		       d.id, d.user_id, d.bank_name, d.bank_account_number, d.balance, d.created_at, d.updated_at, du.name
		FROM transactions t
		JOIN accounts s ON s.id = t.source_account_id
		JOIN users su ON su.id = s.user_id
		JOIN accounts d ON d.id = t.destination_account_id
		JOIN users du ON du.id = d.user_id
		WHERE t.id = $1
	`

	var transaction domain.Transaction
	var source, dest domain.Account
	var sourceOwner, destOwner domain.Owner
	var amountStr, sourceBalance, destBalance string

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&transaction.ID,
		&transaction.SourceAccountID,
		&transaction.DestinationAccountID,
		&amountStr,
		&transaction.CreatedAt,
		&source.ID, &source.UserID, &source.BankName, &source.BankAccountNumber,
		&sourceBalance, &source.CreatedAt, &source.UpdatedAt, &sourceOwner.Name,
		&dest.ID, &dest.UserID, &dest.BankName, &dest.BankAccountNumber,
		&destBalance, &dest.CreatedAt, &dest.UpdatedAt, &destOwner.Name,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewAppErrorf(errors.TransactionNotFound, "Transaction with id %d not found", id)
		}
		r.logger.Error("Failed to get transaction", "transaction_id", id, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to get transaction").WithDetails(err.Error())
	}

	for dst, raw := range map[*decimal.Decimal]string{
		&transaction.Amount: amountStr,
		&source.Balance:     sourceBalance,
		&dest.Balance:       destBalance,
	} {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to parse amount").WithDetails(err.Error())
		}
		*dst = d
	}

	source.Owner = &sourceOwner
	dest.Owner = &destOwner
	transaction.SourceAccount = &source
	transaction.DestinationAccount = &dest
	return &transaction, nil
}

func (r *transactionRepository) ListTransactions(ctx context.Context) ([]*domain.Transaction, error) {
	query := `
		SELECT id, source_account_id, destination_account_id, amount, created_at
		FROM transactions
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list transactions", "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to list transactions").WithDetails(err.Error())
	}
	defer rows.Close()

	transactions := make([]*domain.Transaction, 0)
	for rows.Next() {
		var transaction domain.Transaction
		var amountStr string
		if err := rows.Scan(
			&transaction.ID,
			&transaction.SourceAccountID,
			&transaction.DestinationAccountID,
			&amountStr,
			&transaction.CreatedAt,
		); err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to scan transaction").WithDetails(err.Error())
		}

		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to parse amount").WithDetails(err.Error())
		}
		transaction.Amount = amount
		transactions = append(transactions, &transaction)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to list transactions").WithDetails(err.Error())
	}

	return transactions, nil
}
