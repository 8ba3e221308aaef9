// Command bridge synchronizes products, customers, categories, orders, prices
// and media between the ERP, the bridge database and the e-commerce platform.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/erp/bridge/internal/application/syncer"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "bridge",
		Short:         "Synchronize the ERP, the bridge database and the e-commerce platform",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: ./config.toml)")

	withApp := func(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			defer a.Close()
			return run(cmd, a, args)
		}
	}

	root.AddCommand(
		newSyncCommand(withApp),
		newPurgeCommand(withApp),
		newServeCommand(withApp),
		newScheduleCommand(withApp),
		newMigrateCommand(&configPath),
		newTokenCommand(&configPath),
		newKindsCommand(),
	)
	return root
}

type appRunner func(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error

func newSyncCommand(withApp appRunner) *cobra.Command {
	var changed bool

	cmd := &cobra.Command{
		Use:   "sync <kind|all> <to|from> [key]",
		Short: "Sync one record, all records or the changed records of a kind",
		Long: `Sync entities into ("to") or out of ("from") the bridge database.

With a key only that record is synced. To-bridge keys are source-native (ERP
number, platform id, media file name); from-bridge keys are bridge natural
keys (ERP number, e-mail, platform id). The kind "all" runs every kind in
dependency order.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			direction, err := syncer.ParseDirection(args[1])
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if strings.EqualFold(args[0], "all") {
				if len(args) == 3 {
					return fmt.Errorf("a key cannot be combined with kind all")
				}
				reports, err := a.service.RunAll(ctx, direction, changed)
				if printErr := printJSON(cmd, reports); printErr != nil {
					return printErr
				}
				return err
			}

			kind, err := syncer.ParseEntityKind(args[0])
			if err != nil {
				return err
			}
			if len(args) == 3 {
				res, err := a.service.RunOne(ctx, kind, direction, args[2])
				if err != nil {
					return err
				}
				if err := printJSON(cmd, res); err != nil {
					return err
				}
				if !res.Success && !res.Skipped {
					return fmt.Errorf("%s", res.Message)
				}
				return nil
			}

			report, err := a.service.Run(ctx, kind, direction, changed)
			if err != nil {
				return err
			}
			if err := printJSON(cmd, report); err != nil {
				return err
			}
			if report.Status == syncer.StatusFailed {
				return fmt.Errorf("sync of %s %s the bridge failed", kind, direction)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&changed, "changed", false, "only sync records changed since the last run")
	return cmd
}

func newPurgeCommand(withApp appRunner) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "purge <kind>",
		Short: "Delete every bridge row of a kind",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
			kind, err := syncer.ParseEntityKind(args[0])
			if err != nil {
				return err
			}
			if !confirm {
				return fmt.Errorf("purge of %s cancelled, use --confirm to delete", kind)
			}
			n, err := a.service.Purge(cmd.Context(), kind)
			if err != nil {
				return err
			}
			cmd.Printf("deleted %d %s rows\n", n, kind)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&confirm, "confirm", false, "confirm the deletion")
	return cmd
}

func newKindsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the entity kinds in dependency order",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, k := range syncer.AllKinds {
				cmd.Println(k)
			}
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
