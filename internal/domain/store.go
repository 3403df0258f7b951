package domain

import "context"

// Store groups the repositories behind one unit of work. Repositories
// obtained from the Store passed to WithTransaction's callback share the
// same underlying transaction; the work is committed only if fn returns nil.
type Store interface {
	Account() AccountRepository
	Transaction() TransactionRepository
	User() UserRepository
	WithTransaction(ctx context.Context, fn func(Store) error) error
	Ping(ctx context.Context) error
	Close() error
}
