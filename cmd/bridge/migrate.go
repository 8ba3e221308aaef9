package main

import (
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/erp/bridge/internal/infrastructure/config"
	"github.com/erp/bridge/internal/infrastructure/logger"
	"github.com/erp/bridge/internal/infrastructure/migration"
	"github.com/erp/bridge/migrations"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

func newMigrateCommand(configPath *string) *cobra.Command {
	var dir string

	source := func() fs.FS {
		if dir != "" {
			return os.DirFS(dir)
		}
		return migrations.FS
	}

	withMigrator := func(run func(cmd *cobra.Command, m *migration.Migrator, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(*configPath)
			if err != nil {
				return err
			}
			if cfg.Database.Driver != "postgres" {
				return fmt.Errorf("SQL migrations target postgres, the %s bridge is created by auto-migration", cfg.Database.Driver)
			}
			log, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: "console", Output: "stdout"})
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			db, err := sql.Open("postgres", cfg.Database.DSN())
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()
			if err := db.PingContext(cmd.Context()); err != nil {
				return fmt.Errorf("failed to ping database: %w", err)
			}

			m, err := migration.New(db, source(), log)
			if err != nil {
				return err
			}
			defer m.Close()
			return run(cmd, m, args)
		}
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the bridge database schema",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "read migrations from this directory instead of the embedded ones")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(_ *cobra.Command, m *migration.Migrator, _ []string) error {
				return m.Up()
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(_ *cobra.Command, m *migration.Migrator, _ []string) error {
				return m.Down()
			}),
		},
		&cobra.Command{
			Use:   "step <n>",
			Short: "Apply n migrations, roll back when n is negative",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(func(_ *cobra.Command, m *migration.Migrator, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				return m.Steps(n)
			}),
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Set the schema version without migrating, to recover a dirty schema",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(func(_ *cobra.Command, m *migration.Migrator, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.Force(v)
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the applied version and the pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(cmd *cobra.Command, m *migration.Migrator, _ []string) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				cmd.Printf("version: %d (dirty: %t)\n", version, dirty)
				pending, err := m.Pending()
				if err != nil {
					return err
				}
				for _, p := range pending {
					cmd.Printf("pending: %s\n", p.File())
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "create <name> [description]",
			Short: "Create an empty migration pair in --dir",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if dir == "" {
					return fmt.Errorf("--dir is required to create a migration")
				}
				description := ""
				if len(args) == 2 {
					description = args[1]
				}
				mf, err := migration.Create(dir, args[0], description)
				if err != nil {
					return err
				}
				cmd.Printf("created %s\n        %s\n", mf.UpPath, mf.DownPath)
				return nil
			},
		},
	)
	return cmd
}
