package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"banking-api/internal/domain"
	"banking-api/internal/errors"
)

type accountRepository struct {
	store *Store
}

func (r *accountRepository) CreateAccount(_ context.Context, account *domain.Account) error {
	return r.store.view(func(st *state) error {
		if _, ok := st.users[account.UserID]; !ok {
			return errors.NewAppErrorf(errors.Conflict, "No user with user_id %d", account.UserID)
		}
		for _, existing := range st.accounts {
			if existing.BankAccountNumber == account.BankAccountNumber {
				return errors.NewAppErrorf(errors.Conflict, "Bank account number %s has already taken", account.BankAccountNumber)
			}
		}

		balance := account.Balance.Round(domain.MoneyScale)
		if balance.IsNegative() {
			return errors.ErrInvalidBalance
		}

		st.nextAccountID++
		now := time.Now().UTC()
		account.Balance = balance
		account.ID = st.nextAccountID
		account.CreatedAt = now
		account.UpdatedAt = now
		st.accounts[account.ID] = cloneAccount(account)
		return nil
	})
}

func (r *accountRepository) GetAccount(_ context.Context, id int64) (*domain.Account, error) {
	var out *domain.Account
	err := r.store.view(func(st *state) error {
		a, err := liveAccount(st, id)
		if err != nil {
			return err
		}
		out = cloneAccount(a)
		if u, ok := st.users[a.UserID]; ok {
			out.Owner = &domain.Owner{ID: u.ID, Name: u.Name, Email: u.Email}
		}
		return nil
	})
	return out, err
}

func (r *accountRepository) GetAccountForUpdate(_ context.Context, id int64) (*domain.Account, error) {
	var out *domain.Account
	err := r.store.view(func(st *state) error {
		a, err := liveAccount(st, id)
		if err != nil {
			return err
		}
		out = cloneAccount(a)
		return nil
	})
	return out, err
}

func (r *accountRepository) ListAccounts(context.Context) ([]*domain.Account, error) {
	out := make([]*domain.Account, 0)
	err := r.store.view(func(st *state) error {
		for _, a := range st.accounts {
			if a.DeletedAt == nil {
				out = append(out, cloneAccount(a))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *accountRepository) UpdateAccountBalance(_ context.Context, id int64, newBalance decimal.Decimal) (*domain.Account, error) {
	var out *domain.Account
	err := r.store.view(func(st *state) error {
		a, err := liveAccount(st, id)
		if err != nil {
			return err
		}
		newBalance = newBalance.Round(domain.MoneyScale)
		if newBalance.IsNegative() {
			return errors.ErrInsufficientBalance
		}
		a.Balance = newBalance
		a.UpdatedAt = time.Now().UTC()
		out = cloneAccount(a)
		return nil
	})
	return out, err
}

func (r *accountRepository) DeleteAccount(_ context.Context, id int64) (*domain.Account, error) {
	var out *domain.Account
	err := r.store.view(func(st *state) error {
		a, err := liveAccount(st, id)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		a.DeletedAt = &now
		a.UpdatedAt = now
		out = cloneAccount(a)
		return nil
	})
	return out, err
}

func liveAccount(st *state, id int64) (*domain.Account, error) {
	a, ok := st.accounts[id]
	if !ok || a.DeletedAt != nil {
		return nil, errors.ErrAccountNotFound
	}
	return a, nil
}

type transactionRepository struct {
	store *Store
}

func (r *transactionRepository) CreateTransaction(_ context.Context, tx *domain.Transaction) error {
	return r.store.view(func(st *state) error {
		if _, ok := st.accounts[tx.SourceAccountID]; !ok {
			return errors.ErrInvalidAccountID
		}
		if _, ok := st.accounts[tx.DestinationAccountID]; !ok {
			return errors.ErrInvalidAccountID
		}
		if tx.SourceAccountID == tx.DestinationAccountID {
			return errors.ErrSameAccountTransfer
		}
		amount := tx.Amount.Round(domain.MoneyScale)
		if !amount.IsPositive() {
			return errors.ErrInvalidAmount
		}
		tx.Amount = amount

		st.nextTxID++
		tx.ID = st.nextTxID
		tx.CreatedAt = time.Now().UTC()
		stored := *tx
		stored.SourceAccount = nil
		stored.DestinationAccount = nil
		st.transactions = append(st.transactions, &stored)
		return nil
	})
}

func (r *transactionRepository) GetTransactionByID(_ context.Context, id int64) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := r.store.view(func(st *state) error {
		t, ok := transactionAt(st, id)
		if !ok {
			return errors.NewAppErrorf(errors.TransactionNotFound, "Transaction with id %d not found", id)
		}
		cp := *t
		cp.SourceAccount = withOwnerName(st, st.accounts[t.SourceAccountID])
		cp.DestinationAccount = withOwnerName(st, st.accounts[t.DestinationAccountID])
		out = &cp
		return nil
	})
	return out, err
}

// transactionAt finds a transaction by position. Ids are assigned from 1 in
// append order and rows are never removed, so id n sits at index n-1.
func transactionAt(st *state, id int64) (*domain.Transaction, bool) {
	if id < 1 || id > int64(len(st.transactions)) {
		return nil, false
	}
	return st.transactions[id-1], true
}

// ListTransactions returns the log in id order, which is append order.
func (r *transactionRepository) ListTransactions(context.Context) ([]*domain.Transaction, error) {
	out := make([]*domain.Transaction, 0)
	err := r.store.view(func(st *state) error {
		out = slices.Grow(out, len(st.transactions))
		for _, t := range st.transactions {
			cp := *t
			out = append(out, &cp)
		}
		return nil
	})
	return out, err
}

func withOwnerName(st *state, a *domain.Account) *domain.Account {
	if a == nil {
		return nil
	}
	cp := cloneAccount(a)
	if u, ok := st.users[a.UserID]; ok {
		cp.Owner = &domain.Owner{Name: u.Name}
	}
	return cp
}

type userRepository struct {
	store *Store
}

func (r *userRepository) CreateUser(_ context.Context, user *domain.User) error {
	return r.store.view(func(st *state) error {
		for _, existing := range st.users {
			if existing.Email == user.Email {
				return errors.ErrDuplicateEmail
			}
		}
		if user.Role == "" {
			user.Role = domain.RoleCustomer
		}

		st.nextUserID++
		user.ID = st.nextUserID
		user.CreatedAt = time.Now().UTC()
		st.users[user.ID] = cloneUser(user)
		return nil
	})
}

func (r *userRepository) GetUser(_ context.Context, id int64) (*domain.User, error) {
	var out *domain.User
	err := r.store.view(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return errors.ErrUserNotFound
		}
		out = cloneUser(u)
		return nil
	})
	return out, err
}

func (r *userRepository) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	var out *domain.User
	err := r.store.view(func(st *state) error {
		for _, u := range st.users {
			if u.Email == email {
				out = cloneUser(u)
				return nil
			}
		}
		return errors.ErrUserNotFound
	})
	return out, err
}

func (r *userRepository) ListUsers(context.Context) ([]*domain.User, error) {
	out := make([]*domain.User, 0)
	err := r.store.view(func(st *state) error {
		for _, u := range st.users {
			cp := cloneUser(u)
			cp.Profile = nil
			out = append(out, cp)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}
