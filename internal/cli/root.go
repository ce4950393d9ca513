// Package cli implements the thriftmart command line.
package cli

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/talkincode/thriftmart/config"
	"github.com/talkincode/thriftmart/internal/app"
)

// Version is set at build time with -ldflags.
var Version = "develop"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
}

// NewRootCommand creates the root command for the thriftmart CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "thriftmart",
		Short: "Thrift Mart back-office",
		Long:  "Inventory and order back-office: catalog, orders and stock-consuming order processing.",

		// main prints the error
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "config file (default thriftmart.yml or /etc/thriftmart.yml)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// loadApp reads the configuration and initializes the application. The
// caller must Release it.
func loadApp(opts *RootOptions) (*app.Application, error) {
	cfg, err := config.LoadConfig(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Prepare(); err != nil {
		return nil, err
	}
	application := app.NewApplication(cfg)
	if err := application.Init(cfg); err != nil {
		application.Release()
		return nil, errors.Wrap(err, "init application")
	}
	return application, nil
}
