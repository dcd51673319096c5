package commands

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"wasteboz/api/internal/app"
	"wasteboz/api/internal/config"
)

const cliSession = "cli"

var (
	cfgPath string
	appCtx  *app.App
)

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return newRoot().ExecuteContext(ctx)
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "wasteboz",
		Short:         "Find European Waste Catalogue codes for waste items",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			appCtx, err = app.New(cfg)
			return err
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config (default ./wasteboz.yaml when present)")

	root.AddCommand(lookupCmd(), tuiCmd())
	return root
}
