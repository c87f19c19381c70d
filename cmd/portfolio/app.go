package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ndewijer/portfolio-client/internal/config"
	"github.com/ndewijer/portfolio-client/internal/gateway"
	"github.com/ndewijer/portfolio-client/internal/logging"
	"github.com/ndewijer/portfolio-client/internal/service"
)

// app holds the components shared by every command. It is populated by the root
// command's PersistentPreRunE and torn down in PersistentPostRun.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	client *gateway.Client
	errs   *service.ErrorChannel
	store  *service.Store
	out    io.Writer
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if url, _ := cmd.Flags().GetString("api-url"); url != "" {
		cfg.API.BaseURL = url
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.out = cmd.OutOrStdout()
	a.client = gateway.NewClient(cfg.API.BaseURL,
		gateway.WithTimeout(cfg.API.Timeout.Std()),
		gateway.WithRateLimit(cfg.API.RateLimit),
		gateway.WithLogger(logger),
	)
	a.errs = service.NewErrorChannel()
	a.store = service.NewStore(a.client, a.errs, logger,
		service.WithHistoryDays(cfg.Sync.HistoryDays),
	)

	logger.Debug("client configured",
		zap.String("base_url", cfg.API.BaseURL),
		zap.Duration("timeout", cfg.API.Timeout.Std()),
		zap.Int("rate_limit", cfg.API.RateLimit))
	return nil
}

func (a *app) teardown() {
	if a.store != nil {
		a.store.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func (a *app) newSession() *service.AdvisorySession {
	return service.NewAdvisorySession(a.client, a.errs, a.logger)
}
