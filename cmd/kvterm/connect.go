package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kvterm/kvterm/console"
	"github.com/kvterm/kvterm/internal/appconfig"
	"pkt.systems/pslog"
)

func newConnectCmd() *cobra.Command {
	var cfgPath string
	var addr string
	var username string
	var password string
	var db int
	var useTLS bool
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Open a local console against a backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Backend.Addr = addr
			}
			if username != "" {
				cfg.Backend.Username = username
			}
			if password != "" {
				cfg.Backend.Password = password
			}
			if cmd.Flags().Changed("db") {
				cfg.Backend.DB = db
			}
			if cmd.Flags().Changed("tls") {
				cfg.Backend.TLS = useTLS
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer stop()

			client, err := connectBackend(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			fd := int(os.Stdin.Fd())
			if term.IsTerminal(fd) {
				state, err := term.MakeRaw(fd)
				if err != nil {
					return err
				}
				defer func() { _ = term.Restore(fd, state) }()
			}

			session := console.NewSession(os.Stdin, os.Stdout, client, console.Config{
				Prompt: cfg.Console.Prompt,
				Logger: logger,
			})
			return session.Run(ctx)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&addr, "addr", "", "backend address (host:port)")
	cmd.Flags().StringVar(&username, "username", "", "backend username")
	cmd.Flags().StringVar(&password, "password", "", "backend password")
	cmd.Flags().IntVar(&db, "db", 0, "backend database number")
	cmd.Flags().BoolVar(&useTLS, "tls", false, "connect with TLS")
	return cmd
}
