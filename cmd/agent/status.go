package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"veaxflow/internal/agent"
	"veaxflow/internal/config"
)

func runStatus(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := agent.NewRunner(agent.RunConfig{
		TokenA:      cfg.TokenA,
		TokenB:      cfg.TokenB,
		PoolOptions: cfg.PoolOptions(),
		Units:       cfg.Units(),
	}, client, nil, nil, nil, logger)

	state, err := runner.LoadPool(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), state.Status(cfg.Units()))
	return nil
}
