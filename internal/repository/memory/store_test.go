package memory

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banking-api/internal/domain"
	"banking-api/internal/errors"
)

func newTestStore(t *testing.T) (*Store, *domain.User, *domain.Account) {
	t.Helper()
	ctx := context.Background()
	store := NewStore(slog.New(slog.NewTextHandler(io.Discard, nil)))

	user := &domain.User{Name: "Ahmad", Email: "ahmad@example.com", Profile: &domain.Profile{IdentityType: "ID_CARD"}}
	require.NoError(t, store.User().CreateUser(ctx, user))

	account := &domain.Account{UserID: user.ID, BankName: "BNI", BankAccountNumber: "2222222222", Balance: decimal.NewFromInt(100)}
	require.NoError(t, store.Account().CreateAccount(ctx, account))

	return store, user, account
}

func TestWithTransactionCommits(t *testing.T) {
	ctx := context.Background()
	store, _, account := newTestStore(t)

	err := store.WithTransaction(ctx, func(tx domain.Store) error {
		_, err := tx.Account().UpdateAccountBalance(ctx, account.ID, decimal.NewFromInt(40))
		return err
	})
	require.NoError(t, err)

	got, err := store.Account().GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(40)))
}

func TestWithTransactionDiscardsOnError(t *testing.T) {
	ctx := context.Background()
	store, user, account := newTestStore(t)

	other := &domain.Account{UserID: user.ID, BankName: "Mandiri", BankAccountNumber: "1111111111"}
	require.NoError(t, store.Account().CreateAccount(ctx, other))

	err := store.WithTransaction(ctx, func(tx domain.Store) error {
		if _, err := tx.Account().UpdateAccountBalance(ctx, account.ID, decimal.NewFromInt(1)); err != nil {
			return err
		}
		tr := &domain.Transaction{SourceAccountID: account.ID, DestinationAccountID: other.ID, Amount: decimal.NewFromInt(1)}
		if err := tx.Transaction().CreateTransaction(ctx, tr); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	require.EqualError(t, err, "abort")

	got, err := store.Account().GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(100)))

	txs, err := store.Transaction().ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestNestedTransactionRejected(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)

	err := store.WithTransaction(ctx, func(tx domain.Store) error {
		return tx.WithTransaction(ctx, func(domain.Store) error { return nil })
	})
	assert.ErrorIs(t, err, errors.ErrCannotBeginTransaction)
}

func TestSoftDeleteHidesAccount(t *testing.T) {
	ctx := context.Background()
	store, _, account := newTestStore(t)

	deleted, err := store.Account().DeleteAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.NotNil(t, deleted.DeletedAt)

	_, err = store.Account().GetAccount(ctx, account.ID)
	assert.True(t, errors.Is(err, errors.AccountNotFound))
	_, err = store.Account().GetAccountForUpdate(ctx, account.ID)
	assert.True(t, errors.Is(err, errors.AccountNotFound))

	list, err := store.Account().ListAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	// the number stays reserved
	dup := &domain.Account{UserID: account.UserID, BankName: "BNI", BankAccountNumber: "2222222222"}
	assert.True(t, errors.Is(store.Account().CreateAccount(ctx, dup), errors.Conflict))
}

func TestBalanceCannotGoNegative(t *testing.T) {
	ctx := context.Background()
	store, _, account := newTestStore(t)

	_, err := store.Account().UpdateAccountBalance(ctx, account.ID, decimal.NewFromInt(-1))
	assert.True(t, errors.Is(err, errors.InsufficientBalance))
}

func TestAmountsStoredAtCentScale(t *testing.T) {
	ctx := context.Background()
	store, user, source := newTestStore(t)

	dest := &domain.Account{UserID: user.ID, BankName: "Mandiri", BankAccountNumber: "1111111111", Balance: decimal.RequireFromString("3000.005")}
	require.NoError(t, store.Account().CreateAccount(ctx, dest))
	assert.Equal(t, "3000.01", dest.Balance.String())

	updated, err := store.Account().UpdateAccountBalance(ctx, source.ID, decimal.RequireFromString("99.995"))
	require.NoError(t, err)
	assert.Equal(t, "100", updated.Balance.String())

	tr := &domain.Transaction{SourceAccountID: source.ID, DestinationAccountID: dest.ID, Amount: decimal.RequireFromString("0.004")}
	assert.Equal(t, errors.ErrInvalidAmount, store.Transaction().CreateTransaction(ctx, tr))

	tr = &domain.Transaction{SourceAccountID: source.ID, DestinationAccountID: source.ID, Amount: decimal.NewFromInt(1)}
	assert.Equal(t, errors.ErrSameAccountTransfer, store.Transaction().CreateTransaction(ctx, tr))

	txs, err := store.Transaction().ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestTransactionLookupByID(t *testing.T) {
	ctx := context.Background()
	store, user, source := newTestStore(t)

	dest := &domain.Account{UserID: user.ID, BankName: "Mandiri", BankAccountNumber: "1111111111"}
	require.NoError(t, store.Account().CreateAccount(ctx, dest))

	for i := 1; i <= 3; i++ {
		tr := &domain.Transaction{SourceAccountID: source.ID, DestinationAccountID: dest.ID, Amount: decimal.NewFromInt(int64(i))}
		require.NoError(t, store.Transaction().CreateTransaction(ctx, tr))
	}

	txs, err := store.Transaction().ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	for i, tr := range txs {
		assert.Equal(t, int64(i+1), tr.ID)

		got, err := store.Transaction().GetTransactionByID(ctx, tr.ID)
		require.NoError(t, err)
		assert.True(t, got.Amount.Equal(decimal.NewFromInt(int64(i+1))))
	}

	for _, id := range []int64{0, -1, 4} {
		_, err := store.Transaction().GetTransactionByID(ctx, id)
		assert.True(t, errors.Is(err, errors.TransactionNotFound), "id %d", id)
	}
}

func TestTransactionDetailIncludesOwners(t *testing.T) {
	ctx := context.Background()
	store, user, source := newTestStore(t)

	dest := &domain.Account{UserID: user.ID, BankName: "Mandiri", BankAccountNumber: "1111111111"}
	require.NoError(t, store.Account().CreateAccount(ctx, dest))

	tr := &domain.Transaction{SourceAccountID: source.ID, DestinationAccountID: dest.ID, Amount: decimal.NewFromInt(5)}
	require.NoError(t, store.Transaction().CreateTransaction(ctx, tr))
	assert.Equal(t, int64(1), tr.ID)

	got, err := store.Transaction().GetTransactionByID(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ahmad", got.SourceAccount.Owner.Name)
	assert.Equal(t, dest.ID, got.DestinationAccount.ID)

	_, err = store.Transaction().GetTransactionByID(ctx, 42)
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, "Transaction with id 42 not found", appErr.Message)
}

func TestUserLookups(t *testing.T) {
	ctx := context.Background()
	store, user, _ := newTestStore(t)

	assert.Equal(t, domain.RoleCustomer, user.Role)

	got, err := store.User().GetUserByEmail(ctx, "ahmad@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ID_CARD", got.Profile.IdentityType)

	err = store.User().CreateUser(ctx, &domain.User{Name: "Copy", Email: "ahmad@example.com"})
	assert.ErrorIs(t, err, errors.ErrDuplicateEmail)

	_, err = store.User().GetUser(ctx, 99)
	assert.True(t, errors.Is(err, errors.UserNotFound))
}
