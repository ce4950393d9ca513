package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/talkincode/thriftmart/internal/adminapi"
	"github.com/talkincode/thriftmart/internal/webserver"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "serve",
		Short:        "Run the HTTP API",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts)
		},
	}
}

func runServe(ctx context.Context, opts *RootOptions) error {
	application, err := loadApp(opts)
	if err != nil {
		return err
	}
	defer application.Release()

	server := webserver.NewAdminServer(application.Config().Web)
	adminapi.NewHandler(
		application.Engine(),
		application.Queries(),
		application.OprLog(),
		application.Publisher(),
	).Register(server)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-ctx.Done()
		zap.L().Info("shutting down", zap.String("namespace", "cli"))
		return server.Shutdown(context.Background())
	})
	return g.Wait()
}
