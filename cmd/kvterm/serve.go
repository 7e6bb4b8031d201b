package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kvterm/kvterm/console"
	"github.com/kvterm/kvterm/internal/appconfig"
	"github.com/kvterm/kvterm/internal/auth"
	"github.com/kvterm/kvterm/internal/backend"
	"github.com/kvterm/kvterm/internal/secrets"
	"github.com/kvterm/kvterm/sshserver"
	"pkt.systems/pslog"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the kvterm SSH console server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}

			store, err := auth.NewStore(cfg.Auth.UserFile, cfg.Auth.SeedUsers, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var exec console.Executor
			client, err := connectBackend(ctx, cfg, logger)
			if err != nil {
				logger.Warn("backend unavailable, serving console without backend", "addr", cfg.Backend.Addr, "err", err)
			} else {
				defer func() { _ = client.Close() }()
				exec = client
			}

			server := &sshserver.Server{
				Addr:        cfg.SSH.Addr,
				HostKeyPath: cfg.SSH.HostKeyPath,
				Executor:    exec,
				Prompt:      cfg.Console.Prompt,
				AuthStore:   store,
			}
			logger.Info("ssh server listening", "addr", cfg.SSH.Addr)
			return server.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	return cmd
}

// connectBackend dials the configured backend, resolving the password
// from the encrypted secret store when the config leaves it empty.
func connectBackend(ctx context.Context, cfg appconfig.Config, logger pslog.Logger) (*backend.Client, error) {
	password := cfg.Backend.Password
	if password == "" {
		store, err := secrets.NewStoreWithLogger(cfg.SecretStorePath(), cfg.SecretDir(), logger)
		if err != nil {
			return nil, err
		}
		value, err := store.Get(secrets.NameBackendPassword)
		if err != nil && !errors.Is(err, secrets.ErrNotFound) {
			return nil, err
		}
		password = string(value)
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return backend.New(dialCtx, backend.Config{
		Addr:     cfg.Backend.Addr,
		Username: cfg.Backend.Username,
		Password: password,
		DB:       cfg.Backend.DB,
		TLS:      cfg.Backend.TLS,
		Logger:   logger,
	})
}
