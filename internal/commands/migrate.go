package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"banking-api/internal/config"
	"banking-api/internal/repository"
	"banking-api/internal/server"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the Postgres schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrate(cmd, opts, 0)
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps <= 0 {
				return fmt.Errorf("--steps must be positive, got %d", steps)
			}
			return runMigrate(cmd, opts, steps)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	return cmd
}

// runMigrate applies every pending migration when steps is 0 and rolls back
// steps migrations otherwise.
func runMigrate(cmd *cobra.Command, opts *rootOptions, steps int) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	if cfg.StoreDriver != config.StoreDriverPostgres {
		return fmt.Errorf("migrations need the %q store driver, configured %q", config.StoreDriverPostgres, cfg.StoreDriver)
	}

	logger := server.NewLogger(cfg)
	ctx := cmd.Context()

	store, err := repository.Open(ctx, cfg.GetDBConnectionString(), logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if steps == 0 {
		return repository.MigrateUp(ctx, store.DB(), logger)
	}
	return repository.MigrateDown(ctx, store.DB(), logger, steps)
}
