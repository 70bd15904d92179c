package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jcmexdev/bakery-storefront/internal/config"
	"github.com/jcmexdev/bakery-storefront/internal/pkg/telemetry"
)

func newRootCmd() *cobra.Command {
	v := viper.New()
	var (
		cfgFile string
		cfg     *config.Config
	)

	root := &cobra.Command{
		Use:   "storefront",
		Short: "Bakery storefront: catalog sync, cart pricing and promotions",
		Long: `storefront serves the shop catalog built from admin products, keeps it in
sync with retries and a sync log, and prices session carts with promotions
and delivery fees.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}
			cfg = loaded
			telemetry.InitLogger(cfg.Telemetry.LogLevel)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML or JSON)")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	_ = v.BindPFlag("telemetry.log_level", root.PersistentFlags().Lookup("log-level"))

	loaded := func() *config.Config { return cfg }
	root.AddCommand(newServeCmd(v, loaded), newSyncCmd(loaded))
	return root
}

func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
