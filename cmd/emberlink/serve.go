// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/emberlink/emberlink/internal/account"
	accountpg "github.com/emberlink/emberlink/internal/account/postgres"
	"github.com/emberlink/emberlink/internal/config"
	"github.com/emberlink/emberlink/internal/logging"
	"github.com/emberlink/emberlink/internal/message"
	"github.com/emberlink/emberlink/internal/observability"
	"github.com/emberlink/emberlink/internal/punish"
	punishpg "github.com/emberlink/emberlink/internal/punish/postgres"
	"github.com/emberlink/emberlink/internal/store"
	"github.com/emberlink/emberlink/internal/verify"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the account service",
		Long: `Start the account service: connect to PostgreSQL, wire the account
manager, verification coordinator, and punishment service onto the
message bus, and expose metrics and health endpoints.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(resolveConfigFile(), cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, cmd, autoMigrate)
		},
	}

	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "apply pending database migrations on startup")
	cmd.Flags().String("database.url", "", "PostgreSQL connection URL")
	cmd.Flags().String("observability.addr", "", "metrics/health HTTP address (empty = config default)")
	cmd.Flags().String("session.pepper", "", "HMAC pepper for session token derivation")
	cmd.Flags().String("log.level", "", "log level (debug, info, warn, error)")
	cmd.Flags().String("log.format", "", "log format (json or text)")

	return cmd
}

func runServe(ctx context.Context, cfg config.Config, cmd *cobra.Command, autoMigrate bool) error {
	logging.SetDefault("emberlink", version, cfg.Log.Format, cfg.Log.Level)

	slog.Info("starting account service",
		"metrics_addr", cfg.Observability.Addr,
		"log_format", cfg.Log.Format,
	)

	if autoMigrate {
		if err := migrateUp(cfg.Database.URL, cmd); err != nil {
			return err
		}
	}

	pool, err := store.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	slog.Info("connected to database")

	obsServer := observability.NewServer(cfg.Observability.Addr, func() bool {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return pool.Ping(pingCtx) == nil
	})
	account.RegisterMetrics(obsServer.Registry())
	verify.RegisterMetrics(obsServer.Registry())

	accountStore := accountpg.NewStore(pool)

	limiter := account.NewRateLimiterWithRegistry(account.RateLimiterConfig{
		Max:    cfg.RateLimit.Max,
		Window: cfg.RateLimit.Window,
	}, obsServer.Registry())

	manager, err := account.NewManager(
		accountStore,
		account.NewArgon2idHasher(account.Argon2Params{
			Time:    cfg.Argon2.Time,
			Memory:  cfg.Argon2.Memory,
			Threads: cfg.Argon2.Threads,
			SaltLen: cfg.Argon2.SaltLen,
		}),
		account.NewLegacyHasher(),
		account.NewHMACTokenDeriver(cfg.Session.Pepper),
		account.NewValidator(cfg.Username.Reserved),
		limiter,
		slog.Default(),
		account.WithSessionTTL(cfg.Session.TTL),
	)
	if err != nil {
		return err
	}

	bus := message.NewBus()
	defer bus.Close()

	coordinator, err := verify.NewCoordinator(
		accountStore,
		bus,
		verify.NewCodeCache(cfg.Verification.CodeTTL, nil),
		slog.Default(),
	)
	if err != nil {
		return err
	}
	stopCoordinator := coordinator.Start()
	defer stopCoordinator()

	punishments, err := punish.NewService(punishpg.NewPunishmentRepository(pool), bus, slog.Default())
	if err != nil {
		return err
	}

	// Plugin adapters attach to these in-process; this process keeps the
	// bus handlers and the health surface alive.
	_ = manager
	_ = punishments

	obsErrChan, err := obsServer.Start()
	if err != nil {
		return oops.Code("OBSERVABILITY_START_FAILED").Wrap(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go monitorServerErrors(ctx, cancel, obsErrChan, "observability")

	slog.Info("observability server started", "addr", obsServer.Addr())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Account service started")
	slog.Info("account service ready")

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := obsServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping observability server", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// monitorServerErrors cancels the context when the server reports an
// error, so a failed server triggers graceful shutdown of the process.
// It exits when an error arrives, the channel closes, or the context is
// cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
