package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"banking-api/internal/auth"
	"banking-api/internal/domain"
	"banking-api/internal/errors"
	"banking-api/internal/metrics"
	"banking-api/internal/repository/memory"
)

type ServiceTestSuite struct {
	suite.Suite
	ctx          context.Context
	store        *memory.Store
	collector    *metrics.Collector
	users        *UserService
	accounts     *AccountService
	transactions *TransactionService
	auth         *AuthService
	owner        *domain.User
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.ctx = context.Background()
	s.store = memory.NewStore(logger)
	s.collector = metrics.NewCollector()
	s.users = NewUserService(s.store, logger)
	s.accounts = NewAccountService(s.store, logger)
	s.transactions = NewTransactionService(s.store, s.collector, logger)
	s.auth = NewAuthService(s.store, auth.NewTokenIssuer("test-secret", time.Hour), logger)

	owner, err := s.users.Register(s.ctx, RegisterRequest{
		Name:           "Ahmad",
		Email:          "ahmad@example.com",
		Password:       "secret123",
		IdentityType:   "ID_CARD",
		IdentityNumber: "1234567890",
		Address:        "Jakarta",
	})
	s.Require().NoError(err)
	s.owner = owner
}

func (s *ServiceTestSuite) openAccount(number string, balance int64) *domain.Account {
	account, err := s.accounts.CreateAccount(s.ctx, CreateAccountRequest{
		UserID:            s.owner.ID,
		BankName:          "Mandiri",
		BankAccountNumber: number,
		Balance:           decimal.NewFromInt(balance),
	})
	s.Require().NoError(err)
	return account
}

func (s *ServiceTestSuite) balanceOf(id int64) decimal.Decimal {
	account, err := s.accounts.GetAccount(s.ctx, id)
	s.Require().NoError(err)
	return account.Balance
}

func (s *ServiceTestSuite) TestTransferMovesFunds() {
	a := s.openAccount("1111111111", 5000)
	b := s.openAccount("2222222222", 3000)

	result, err := s.transactions.Transfer(s.ctx, TransferRequest{
		SourceAccountID:      a.ID,
		DestinationAccountID: b.ID,
		Amount:               decimal.NewFromInt(1000),
	})
	s.Require().NoError(err)

	s.Equal(int64(1), result.Transaction.ID)
	s.True(result.Transaction.Amount.Equal(decimal.NewFromInt(1000)))
	s.True(result.SourceAccount.Balance.Equal(decimal.NewFromInt(4000)))
	s.True(result.DestinationAccount.Balance.Equal(decimal.NewFromInt(4000)))
	s.True(s.balanceOf(a.ID).Equal(decimal.NewFromInt(4000)))
	s.True(s.balanceOf(b.ID).Equal(decimal.NewFromInt(4000)))

	series, err := testutil.GatherAndCount(s.collector.Registry(), "bank_transfers_total")
	s.Require().NoError(err)
	s.Equal(1, series)
}

func (s *ServiceTestSuite) TestTransferExactBalanceEmptiesAccount() {
	a := s.openAccount("1111111111", 1000)
	b := s.openAccount("2222222222", 0)

	result, err := s.transactions.Transfer(s.ctx, TransferRequest{
		SourceAccountID:      a.ID,
		DestinationAccountID: b.ID,
		Amount:               decimal.NewFromInt(1000),
	})
	s.Require().NoError(err)
	s.True(result.SourceAccount.Balance.IsZero())
	s.True(result.DestinationAccount.Balance.Equal(decimal.NewFromInt(1000)))
}

func (s *ServiceTestSuite) TestTransferValidationOrder() {
	a := s.openAccount("1111111111", 500)
	b := s.openAccount("2222222222", 0)

	cases := []struct {
		name   string
		req    TransferRequest
		code   errors.ErrorCode
		status int
	}{
		{
			name: "non positive amount wins over unknown accounts",
			req:  TransferRequest{SourceAccountID: 999, DestinationAccountID: 999, Amount: decimal.Zero},
			code: errors.ValidationFailed, status: 400,
		},
		{
			name: "unknown account wins over same account",
			req:  TransferRequest{SourceAccountID: 999, DestinationAccountID: 999, Amount: decimal.NewFromInt(1)},
			code: errors.InvalidAccountID, status: 409,
		},
		{
			name: "unknown destination",
			req:  TransferRequest{SourceAccountID: a.ID, DestinationAccountID: 999, Amount: decimal.NewFromInt(1)},
			code: errors.InvalidAccountID, status: 409,
		},
		{
			name: "same account wins over balance",
			req:  TransferRequest{SourceAccountID: a.ID, DestinationAccountID: a.ID, Amount: decimal.NewFromInt(100000)},
			code: errors.SameAccountTransfer, status: 409,
		},
		{
			name: "insufficient balance",
			req:  TransferRequest{SourceAccountID: a.ID, DestinationAccountID: b.ID, Amount: decimal.NewFromInt(1000)},
			code: errors.InsufficientBalance, status: 409,
		},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.transactions.Transfer(s.ctx, tc.req)
			appErr, ok := errors.As(err)
			s.Require().True(ok, "expected AppError, got %v", err)
			s.Equal(tc.code, appErr.Code)
			s.Equal(tc.status, appErr.HTTPStatus())
		})
	}

	s.True(s.balanceOf(a.ID).Equal(decimal.NewFromInt(500)))
	s.True(s.balanceOf(b.ID).IsZero())

	txs, err := s.transactions.ListTransactions(s.ctx)
	s.Require().NoError(err)
	s.Empty(txs)
}

func (s *ServiceTestSuite) TestTransferRejectsSubCentAmounts() {
	a := s.openAccount("1111111111", 500)
	b := s.openAccount("2222222222", 3000)

	for _, amount := range []string{"0.005", "0.004", "0.001", "10.125"} {
		_, err := s.transactions.Transfer(s.ctx, TransferRequest{
			SourceAccountID:      a.ID,
			DestinationAccountID: b.ID,
			Amount:               decimal.RequireFromString(amount),
		})
		appErr, ok := errors.As(err)
		s.Require().True(ok, "amount %s", amount)
		s.Equal(400, appErr.HTTPStatus())
		s.Require().Len(appErr.Issues, 1)
		s.Equal("number.precision", appErr.Issues[0].Type)
	}

	s.True(s.balanceOf(a.ID).Equal(decimal.NewFromInt(500)))
	s.True(s.balanceOf(b.ID).Equal(decimal.NewFromInt(3000)))

	txs, err := s.transactions.ListTransactions(s.ctx)
	s.Require().NoError(err)
	s.Empty(txs)

	result, err := s.transactions.Transfer(s.ctx, TransferRequest{
		SourceAccountID:      a.ID,
		DestinationAccountID: b.ID,
		Amount:               decimal.RequireFromString("0.010"),
	})
	s.Require().NoError(err)
	s.Equal("499.99", result.SourceAccount.Balance.StringFixed(2))
	s.Equal("3000.01", result.DestinationAccount.Balance.StringFixed(2))
}

func (s *ServiceTestSuite) TestTransferToDeletedAccountIsInvalid() {
	a := s.openAccount("1111111111", 500)
	b := s.openAccount("2222222222", 0)

	_, err := s.accounts.DeleteAccount(s.ctx, b.ID)
	s.Require().NoError(err)

	_, err = s.transactions.Transfer(s.ctx, TransferRequest{
		SourceAccountID:      a.ID,
		DestinationAccountID: b.ID,
		Amount:               decimal.NewFromInt(100),
	})
	s.True(errors.Is(err, errors.InvalidAccountID))
}

func (s *ServiceTestSuite) TestTransferFailsClosed() {
	a := s.openAccount("1111111111", 500)
	b := s.openAccount("2222222222", 0)

	faulty := NewTransactionService(&faultyStore{Store: s.store, failCreditOn: b.ID}, nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := faulty.Transfer(s.ctx, TransferRequest{
		SourceAccountID:      a.ID,
		DestinationAccountID: b.ID,
		Amount:               decimal.NewFromInt(100),
	})
	s.Require().Error(err)

	s.True(s.balanceOf(a.ID).Equal(decimal.NewFromInt(500)))
	s.True(s.balanceOf(b.ID).IsZero())

	txs, err := s.transactions.ListTransactions(s.ctx)
	s.Require().NoError(err)
	s.Empty(txs)
}

func (s *ServiceTestSuite) TestTransferLogLevels() {
	a := s.openAccount("1111111111", 500)
	b := s.openAccount("2222222222", 0)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	faulty := NewTransactionService(&faultyStore{Store: s.store, failCreditOn: b.ID}, nil, logger)

	_, err := faulty.Transfer(s.ctx, TransferRequest{
		SourceAccountID: a.ID, DestinationAccountID: b.ID, Amount: decimal.NewFromInt(100),
	})
	s.Require().Error(err)
	s.Contains(logLines(s.T(), &buf), "ERROR Transfer failed")

	buf.Reset()
	_, err = faulty.Transfer(s.ctx, TransferRequest{
		SourceAccountID: a.ID, DestinationAccountID: b.ID, Amount: decimal.NewFromInt(1000),
	})
	s.True(errors.Is(err, errors.InsufficientBalance))
	lines := logLines(s.T(), &buf)
	s.Contains(lines, "WARN Transfer rejected")
	s.NotContains(lines, "ERROR Transfer failed")
}

// logLines renders each JSON log record as "LEVEL msg".
func logLines(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()
	var out []string
	dec := json.NewDecoder(buf)
	for dec.More() {
		var rec struct {
			Level string `json:"level"`
			Msg   string `json:"msg"`
		}
		require.NoError(t, dec.Decode(&rec))
		out = append(out, rec.Level+" "+rec.Msg)
	}
	return out
}

func (s *ServiceTestSuite) TestConcurrentTransfersNeverOverdraw() {
	a := s.openAccount("1111111111", 1000)
	b := s.openAccount("2222222222", 1000)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			src, dst := a.ID, b.ID
			if i%2 == 1 {
				src, dst = b.ID, a.ID
			}
			_, err := s.transactions.Transfer(s.ctx, TransferRequest{
				SourceAccountID:      src,
				DestinationAccountID: dst,
				Amount:               decimal.NewFromInt(300),
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.True(s.T(), errors.Is(err, errors.InsufficientBalance), "unexpected error: %v", err)
		}(i)
	}
	wg.Wait()

	total := s.balanceOf(a.ID).Add(s.balanceOf(b.ID))
	s.True(total.Equal(decimal.NewFromInt(2000)))
	s.False(s.balanceOf(a.ID).IsNegative())
	s.False(s.balanceOf(b.ID).IsNegative())

	txs, err := s.transactions.ListTransactions(s.ctx)
	s.Require().NoError(err)
	s.Len(txs, succeeded)
}

func (s *ServiceTestSuite) TestListAndGetTransactions() {
	a := s.openAccount("1111111111", 100000)
	b := s.openAccount("2222222222", 50000)

	for _, pair := range [][2]int64{{a.ID, b.ID}, {b.ID, a.ID}} {
		_, err := s.transactions.Transfer(s.ctx, TransferRequest{
			SourceAccountID:      pair[0],
			DestinationAccountID: pair[1],
			Amount:               decimal.NewFromInt(10000),
		})
		s.Require().NoError(err)
	}

	txs, err := s.transactions.ListTransactions(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(txs, 2)
	s.Less(txs[0].ID, txs[1].ID)

	detail, err := s.transactions.GetTransaction(s.ctx, txs[1].ID)
	s.Require().NoError(err)
	s.Require().NotNil(detail.SourceAccount)
	s.Require().NotNil(detail.DestinationAccount)
	s.Equal(b.ID, detail.SourceAccount.ID)
	s.Equal("Ahmad", detail.SourceAccount.Owner.Name)
	s.Equal("Ahmad", detail.DestinationAccount.Owner.Name)

	_, err = s.transactions.GetTransaction(s.ctx, 999999)
	appErr, ok := errors.As(err)
	s.Require().True(ok)
	s.Equal(404, appErr.HTTPStatus())
	s.Equal("Transaction with id 999999 not found", appErr.Message)
}

func (s *ServiceTestSuite) TestCreateAccountRules() {
	_, err := s.accounts.CreateAccount(s.ctx, CreateAccountRequest{
		UserID: s.owner.ID, BankName: "BNI", BankAccountNumber: "3333333333", Balance: decimal.NewFromInt(-1),
	})
	s.True(errors.Is(err, errors.ValidationFailed))

	_, err = s.accounts.CreateAccount(s.ctx, CreateAccountRequest{
		UserID: s.owner.ID, BankName: "BNI", BankAccountNumber: "3333333333", Balance: decimal.RequireFromString("10.005"),
	})
	s.Equal(errors.ErrBalancePrecision, err)

	_, err = s.accounts.CreateAccount(s.ctx, CreateAccountRequest{
		UserID: 42, BankName: "BNI", BankAccountNumber: "3333333333", Balance: decimal.Zero,
	})
	appErr, ok := errors.As(err)
	s.Require().True(ok)
	s.Equal("No user with user_id 42", appErr.Message)
	s.Equal(409, appErr.HTTPStatus())

	s.openAccount("3333333333", 10)
	_, err = s.accounts.CreateAccount(s.ctx, CreateAccountRequest{
		UserID: s.owner.ID, BankName: "BNI", BankAccountNumber: "3333333333", Balance: decimal.Zero,
	})
	appErr, ok = errors.As(err)
	s.Require().True(ok)
	s.Equal("Bank account number 3333333333 has already taken", appErr.Message)
}

func (s *ServiceTestSuite) TestGetAndDeleteAccount() {
	a := s.openAccount("1111111111", 10)

	got, err := s.accounts.GetAccount(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.Owner)
	s.Equal("Ahmad", got.Owner.Name)

	deleted, err := s.accounts.DeleteAccount(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(a.ID, deleted.ID)

	_, err = s.accounts.GetAccount(s.ctx, a.ID)
	appErr, ok := errors.As(err)
	s.Require().True(ok)
	s.Equal(fmt.Sprintf("Account with id %d not found", a.ID), appErr.Message)

	_, err = s.accounts.DeleteAccount(s.ctx, a.ID)
	s.True(errors.Is(err, errors.AccountNotFound))

	list, err := s.accounts.ListAccounts(s.ctx)
	s.Require().NoError(err)
	s.Empty(list)
}

func (s *ServiceTestSuite) TestRegisterAndLookupUsers() {
	_, err := s.users.Register(s.ctx, RegisterRequest{
		Name: "Other", Email: "ahmad@example.com", Password: "secret123",
		IdentityType: "PASSPORT", IdentityNumber: "X1", Address: "Bandung",
	})
	s.True(errors.Is(err, errors.Conflict))

	got, err := s.users.GetUser(s.ctx, s.owner.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.Profile)
	s.Equal("ID_CARD", got.Profile.IdentityType)
	s.NotEqual("secret123", got.PasswordHash)

	_, err = s.users.GetUser(s.ctx, 77)
	appErr, ok := errors.As(err)
	s.Require().True(ok)
	s.Equal("User with id 77 not found", appErr.Message)

	list, err := s.users.ListUsers(s.ctx)
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *ServiceTestSuite) TestLoginAndAuthenticate() {
	user, token, err := s.auth.Login(s.ctx, "ahmad@example.com", "secret123")
	s.Require().NoError(err)
	s.Equal(s.owner.ID, user.ID)
	s.NotEmpty(token)

	authed, err := s.auth.Authenticate(s.ctx, token)
	s.Require().NoError(err)
	s.Equal("Ahmad", authed.Name)

	_, _, err = s.auth.Login(s.ctx, "ahmad@example.com", "wrong-password")
	s.True(errors.Is(err, errors.InvalidCredentials))

	_, _, err = s.auth.Login(s.ctx, "nobody@example.com", "secret123")
	s.True(errors.Is(err, errors.InvalidCredentials))

	_, err = s.auth.Authenticate(s.ctx, "not-a-token")
	s.True(errors.Is(err, errors.Unauthorized))
}

// faultyStore fails the credit leg of a transfer after the debit has been
// staged.
type faultyStore struct {
	domain.Store
	failCreditOn int64
}

func (f *faultyStore) Account() domain.AccountRepository {
	return &faultyAccounts{AccountRepository: f.Store.Account(), failOn: f.failCreditOn}
}

func (f *faultyStore) WithTransaction(ctx context.Context, fn func(domain.Store) error) error {
	return f.Store.WithTransaction(ctx, func(tx domain.Store) error {
		return fn(&faultyStore{Store: tx, failCreditOn: f.failCreditOn})
	})
}

type faultyAccounts struct {
	domain.AccountRepository
	failOn int64
}

func (f *faultyAccounts) UpdateAccountBalance(ctx context.Context, id int64, balance decimal.Decimal) (*domain.Account, error) {
	if id == f.failOn {
		return nil, fmt.Errorf("simulated write failure on account %d", id)
	}
	return f.AccountRepository.UpdateAccountBalance(ctx, id, balance)
}

func TestTransferResultLabels(t *testing.T) {
	cases := map[string]error{
		metrics.ResultValidation:          errors.ErrInvalidAmount,
		metrics.ResultInvalidAccount:      errors.ErrInvalidAccountID,
		metrics.ResultSameAccount:         errors.ErrSameAccountTransfer,
		metrics.ResultInsufficientBalance: errors.ErrInsufficientBalance,
		metrics.ResultError:               fmt.Errorf("boom"),
	}
	for want, err := range cases {
		require.Equal(t, want, transferResult(err))
	}
}
