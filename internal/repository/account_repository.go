package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/shopspring/decimal"

	"banking-api/internal/domain"
	"banking-api/internal/errors"
)

const accountColumns = `a.id, a.user_id, a.bank_name, a.bank_account_number, a.balance, a.created_at, a.updated_at`

type accountRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewAccountRepository(db SQLExecutor, logger *slog.Logger) domain.AccountRepository {
	return &accountRepository{
		db:     db,
		logger: logger,
	}
}

func (r *accountRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (user_id, bank_name, bank_account_number, balance)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		account.UserID,
		account.BankName,
		account.BankAccountNumber,
		account.Balance.String(),
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		if pqErr, ok := pqError(err); ok {
			switch pqErr.Code {
			case pqUniqueViolation:
				r.logger.Warn("Duplicate bank account number", "bank_account_number", account.BankAccountNumber)
				return errors.NewAppErrorf(errors.Conflict, "Bank account number %s has already taken", account.BankAccountNumber)
			case pqForeignKeyViolation:
				r.logger.Warn("Account owner does not exist", "user_id", account.UserID)
				return errors.NewAppErrorf(errors.Conflict, "No user with user_id %d", account.UserID)
			case pqCheckViolation:
				r.logger.Warn("Opening balance rejected by check constraint", "balance", account.Balance)
				return errors.ErrInvalidBalance
			}
		}
		r.logger.Error("Failed to create account", "user_id", account.UserID, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to create account").WithDetails(err.Error())
	}

	r.logger.Info("Account created successfully", "account_id", account.ID)
	return nil
}

func (r *accountRepository) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `, u.id, u.name, u.email
		FROM accounts a
		JOIN users u ON u.id = a.user_id
		WHERE a.id = $1 AND a.deleted_at IS NULL
	`

	var account domain.Account
	var owner domain.Owner
	var balanceStr string

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&account.ID,
		&account.UserID,
		&account.BankName,
		&account.BankAccountNumber,
		&balanceStr,
		&account.CreatedAt,
		&account.UpdatedAt,
		&owner.ID,
		&owner.Name,
		&owner.Email,
	)
	if err != nil {
		return nil, r.lookupError(id, err)
	}

	if err := r.setBalance(&account, balanceStr); err != nil {
		return nil, err
	}
	account.Owner = &owner
	return &account, nil
}

// GetAccountForUpdate locks the account row until the surrounding
// transaction ends.
func (r *accountRepository) GetAccountForUpdate(ctx context.Context, id int64) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts a
		WHERE a.id = $1 AND a.deleted_at IS NULL
		FOR UPDATE
	`

	return r.scanAccount(r.db.QueryRowContext(ctx, query, id), id)
}

func (r *accountRepository) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts a
		WHERE a.deleted_at IS NULL
		ORDER BY a.id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list accounts", "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to list accounts").WithDetails(err.Error())
	}
	defer rows.Close()

	accounts := make([]*domain.Account, 0)
	for rows.Next() {
		var account domain.Account
		var balanceStr string
		if err := rows.Scan(
			&account.ID,
			&account.UserID,
			&account.BankName,
			&account.BankAccountNumber,
			&balanceStr,
			&account.CreatedAt,
			&account.UpdatedAt,
		); err != nil {
			return nil, errors.NewAppError(errors.InternalError, "failed to scan account").WithDetails(err.Error())
		}
		if err := r.setBalance(&account, balanceStr); err != nil {
			return nil, err
		}
		accounts = append(accounts, &account)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewAppError(errors.InternalError, "failed to list accounts").WithDetails(err.Error())
	}

	return accounts, nil
}

func (r *accountRepository) UpdateAccountBalance(ctx context.Context, id int64, newBalance decimal.Decimal) (*domain.Account, error) {
	query := `
		UPDATE accounts a
		SET balance = $1, updated_at = NOW()
		WHERE a.id = $2 AND a.deleted_at IS NULL
		RETURNING ` + accountColumns

	account, err := r.scanAccount(r.db.QueryRowContext(ctx, query, newBalance.String(), id), id)
	if err != nil {
		if pqErr, ok := pqError(err); ok && pqErr.Code == pqCheckViolation {
			r.logger.Warn("Balance update rejected by check constraint", "account_id", id, "new_balance", newBalance)
			return nil, errors.ErrInsufficientBalance
		}
		return nil, err
	}

	r.logger.Info("Account balance updated", "account_id", id, "new_balance", newBalance)
	return account, nil
}

func (r *accountRepository) DeleteAccount(ctx context.Context, id int64) (*domain.Account, error) {
	query := `
		UPDATE accounts a
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE a.id = $1 AND a.deleted_at IS NULL
		RETURNING ` + accountColumns

	account, err := r.scanAccount(r.db.QueryRowContext(ctx, query, id), id)
	if err != nil {
		return nil, err
	}

	r.logger.Info("Account deleted", "account_id", id)
	return account, nil
}

func (r *accountRepository) scanAccount(row *sql.Row, id int64) (*domain.Account, error) {
	var account domain.Account
	var balanceStr string

	err := row.Scan(
		&account.ID,
		&account.UserID,
		&account.BankName,
		&account.BankAccountNumber,
		&balanceStr,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if _, ok := pqError(err); ok {
			return nil, err
		}
		return nil, r.lookupError(id, err)
	}

	if err := r.setBalance(&account, balanceStr); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) lookupError(id int64, err error) error {
	if err == sql.ErrNoRows {
		r.logger.Warn("Account not found", "account_id", id)
		return errors.ErrAccountNotFound
	}
	r.logger.Error("Failed to get account", "account_id", id, "error", err)
	return errors.NewAppError(errors.InternalError, "failed to get account").WithDetails(err.Error())
}

func (r *accountRepository) setBalance(account *domain.Account, balanceStr string) error {
	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		r.logger.Error("Failed to parse balance", "account_id", account.ID, "balance_str", balanceStr, "error", err)
		return errors.NewAppError(errors.InternalError, "failed to parse balance").WithDetails(err.Error())
	}
	account.Balance = balance
	return nil
}
