package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

type migrateOptions struct {
	Track bool
	Reset bool
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &migrateOptions{}
	cmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Create or update the database schema",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := loadApp(rootOpts)
			if err != nil {
				return err
			}
			defer application.Release()

			if opts.Reset {
				application.InitDb()
				fmt.Fprintln(cmd.OutOrStdout(), "database reset")
				return nil
			}
			if err := application.MigrateDB(opts.Track); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "database migrated")
			return nil
		},
	}
	cmd.Flags().BoolVar(&opts.Track, "track", false, "log the migration SQL")
	cmd.Flags().BoolVar(&opts.Reset, "reset", false, "drop all tables before migrating (destroys data)")
	return cmd
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "seed",
		Short:        "Load the demo catalog",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := loadApp(rootOpts)
			if err != nil {
				return err
			}
			defer application.Release()

			n := application.SeedDemo(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "%d demo products created\n", n)
			return nil
		},
	}
}

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "thriftmart %s\n", Version)
		},
	}
}
