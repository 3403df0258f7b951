package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID                int64           `json:"id"`
	UserID            int64           `json:"user_id"`
	BankName          string          `json:"bank_name"`
	BankAccountNumber string          `json:"bank_account_number"`
	Balance           decimal.Decimal `json:"balance"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	DeletedAt         *time.Time      `json:"-"`
	Owner             *Owner          `json:"user,omitempty"`
}

// Owner is the slice of a User embedded in account projections.
type Owner struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// AccountRepository lookups only see live accounts; a soft-deleted account
// reports account_not_found.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account *Account) error
	GetAccount(ctx context.Context, id int64) (*Account, error)
	GetAccountForUpdate(ctx context.Context, id int64) (*Account, error)
	ListAccounts(ctx context.Context) ([]*Account, error)
	UpdateAccountBalance(ctx context.Context, id int64, newBalance decimal.Decimal) (*Account, error)
	DeleteAccount(ctx context.Context, id int64) (*Account, error)
}
