package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"banking-api/internal/domain"
	"banking-api/internal/errors"
	"banking-api/internal/server"
	"banking-api/internal/service"
)

const demoEmail = "Ahmad@example.com"

func newSeedCommand(opts *rootOptions) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the demo user, accounts and transfers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			logger := server.NewLogger(cfg)
			store, err := server.OpenStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			return seedDemoData(cmd.Context(), store, password, logger)
		},
	}

	cmd.Flags().StringVar(&password, "password", "password123", "password for the demo user")

	return cmd
}

// seedDemoData goes through the services so the demo rows obey the same
// rules as API traffic. It is a no-op if the demo user already exists.
func seedDemoData(ctx context.Context, store domain.Store, password string, logger *slog.Logger) error {
	if _, err := store.User().GetUserByEmail(ctx, demoEmail); err == nil {
		logger.Info("Demo data already present, skipping seed")
		return nil
	} else if !errors.Is(err, errors.UserNotFound) {
		return err
	}

	users := service.NewUserService(store, logger)
	accounts := service.NewAccountService(store, logger)
	transactions := service.NewTransactionService(store, nil, logger)

	user, err := users.Register(ctx, service.RegisterRequest{
		Name:           "Ahmad",
		Email:          demoEmail,
		Password:       password,
		IdentityType:   "ID_CARD",
		IdentityNumber: "00111111222222",
		Address:        "Surabaya",
	})
	if err != nil {
		return fmt.Errorf("seeding user: %w", err)
	}

	demoAccounts := []service.CreateAccountRequest{
		{UserID: user.ID, BankName: "Mandiri", BankAccountNumber: "111111222222", Balance: decimal.NewFromInt(100000)},
		{UserID: user.ID, BankName: "BNI", BankAccountNumber: "222222333333", Balance: decimal.NewFromInt(50000)},
	}
	ids := make([]int64, 0, len(demoAccounts))
	for _, req := range demoAccounts {
		account, err := accounts.CreateAccount(ctx, req)
		if err != nil {
			return fmt.Errorf("seeding account %s: %w", req.BankAccountNumber, err)
		}
		ids = append(ids, account.ID)
	}

	amount := decimal.NewFromInt(10000)
	for _, pair := range [][2]int64{{ids[0], ids[1]}, {ids[1], ids[0]}} {
		if _, err := transactions.Transfer(ctx, service.TransferRequest{
			SourceAccountID:      pair[0],
			DestinationAccountID: pair[1],
			Amount:               amount,
		}); err != nil {
			return fmt.Errorf("seeding transfer %d->%d: %w", pair[0], pair[1], err)
		}
	}

	logger.Info("Seeding completed", "user_id", user.ID, "accounts", len(ids))
	return nil
}
