package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jcmexdev/bakery-storefront/internal/config"
	"github.com/jcmexdev/bakery-storefront/internal/pkg/telemetry"
)

func newSyncCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one full catalog sync and print its result",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, cfg())
		},
	}
}

func runSync(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()

	shutdown, err := telemetry.SetupTracer(ctx, tracerConfig(cfg))
	if err != nil {
		return fmt.Errorf("initialise tracer: %w", err)
	}
	defer flushTracer(shutdown)

	sf, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer sf.Close()

	if cfg.Sync.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Sync.Timeout)
		defer cancel()
	}

	res, err := sf.catalogs.ResyncAll(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("catalog sync %s failed", res.RunID)
	}
	return nil
}
