package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID                   int64           `json:"id"`
	SourceAccountID      int64           `json:"source_account_id"`
	DestinationAccountID int64           `json:"destination_account_id"`
	Amount               decimal.Decimal `json:"amount"`
	CreatedAt            time.Time       `json:"created_at"`
	SourceAccount        *Account        `json:"source_account,omitempty"`
	DestinationAccount   *Account        `json:"destination_account,omitempty"`
}

type TransactionRepository interface {
	CreateTransaction(ctx context.Context, tx *Transaction) error
	// GetTransactionByID loads both accounts, deleted ones included, with
	// their owner names.
	GetTransactionByID(ctx context.Context, id int64) (*Transaction, error)
	ListTransactions(ctx context.Context) ([]*Transaction, error)
}
