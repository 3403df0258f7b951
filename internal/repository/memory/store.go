// Package memory is an in-process domain.Store. A unit of work holds the
// store-wide lock, stages its writes in a copy of the data and publishes the
// copy only on commit.
package memory

import (
	"context"
	"log/slog"
	"sync"

	"banking-api/internal/domain"
	"banking-api/internal/errors"
)

type state struct {
	users         map[int64]*domain.User
	accounts      map[int64]*domain.Account
	transactions  []*domain.Transaction
	nextUserID    int64
	nextAccountID int64
	nextTxID      int64
}

func newState() *state {
	return &state{
		users:    make(map[int64]*domain.User),
		accounts: make(map[int64]*domain.Account),
	}
}

func (s *state) clone() *state {
	cp := &state{
		users:         make(map[int64]*domain.User, len(s.users)),
		accounts:      make(map[int64]*domain.Account, len(s.accounts)),
		transactions:  make([]*domain.Transaction, len(s.transactions)),
		nextUserID:    s.nextUserID,
		nextAccountID: s.nextAccountID,
		nextTxID:      s.nextTxID,
	}
	for id, u := range s.users {
		cp.users[id] = cloneUser(u)
	}
	for id, a := range s.accounts {
		cp.accounts[id] = cloneAccount(a)
	}
	for i, t := range s.transactions {
		tc := *t
		cp.transactions[i] = &tc
	}
	return cp
}

type database struct {
	mu    sync.Mutex
	state *state
}

type Store struct {
	db     *database
	tx     *state
	logger *slog.Logger
}

var _ domain.Store = (*Store)(nil)

func NewStore(logger *slog.Logger) *Store {
	return &Store{
		db:     &database{state: newState()},
		logger: logger,
	}
}

func (s *Store) Account() domain.AccountRepository {
	return &accountRepository{store: s}
}

func (s *Store) Transaction() domain.TransactionRepository {
	return &transactionRepository{store: s}
}

func (s *Store) User() domain.UserRepository {
	return &userRepository{store: s}
}

func (s *Store) WithTransaction(ctx context.Context, fn func(domain.Store) error) error {
	if s.tx != nil {
		return errors.ErrCannotBeginTransaction
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return errors.NewAppError(errors.InternalError, "failed to begin transaction").WithDetails(err.Error())
	}

	staged := s.db.state.clone()
	if err := fn(&Store{db: s.db, tx: staged, logger: s.logger}); err != nil {
		return err
	}

	s.db.state = staged
	return nil
}

func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}

// view runs fn against the staged state inside a unit of work, or against
// the committed state under the lock otherwise.
func (s *Store) view(fn func(*state) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return fn(s.db.state)
}

func cloneAccount(a *domain.Account) *domain.Account {
	cp := *a
	if a.DeletedAt != nil {
		t := *a.DeletedAt
		cp.DeletedAt = &t
	}
	if a.Owner != nil {
		o := *a.Owner
		cp.Owner = &o
	}
	return &cp
}

func cloneUser(u *domain.User) *domain.User {
	cp := *u
	if u.Profile != nil {
		p := *u.Profile
		cp.Profile = &p
	}
	return &cp
}
