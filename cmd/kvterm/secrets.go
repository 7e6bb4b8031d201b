package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kvterm/kvterm/internal/appconfig"
	"github.com/kvterm/kvterm/internal/secrets"
	"pkt.systems/kryptograf/keymgmt"
	"pkt.systems/pslog"
)

func newSecretsCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Manage encrypted secrets",
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")

	cmd.AddCommand(newSecretsSetBackendPasswordCmd(&cfgPath))
	cmd.AddCommand(newSecretsClearBackendPasswordCmd(&cfgPath))

	return cmd
}

func openSecretStore(cmd *cobra.Command, cfgPath *string) (*secrets.Store, error) {
	cfg, err := appconfig.Load(*cfgPath)
	if err != nil {
		return nil, err
	}
	return secrets.NewStoreWithLogger(cfg.SecretStorePath(), cfg.SecretDir(), pslog.Ctx(cmd.Context()))
}

func newSecretsSetBackendPasswordCmd(cfgPath *string) *cobra.Command {
	var fromStdin bool
	cmd := &cobra.Command{
		Use:   "set-backend-password",
		Short: "Store the backend password encrypted at rest",
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if fromStdin {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				password = strings.TrimSpace(string(data))
			} else {
				passphrase, err := keymgmt.PromptPassphrase(cmd.InOrStdin(), "Backend password: ", cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				password = string(passphrase)
			}
			if password == "" {
				return errors.New("backend password is empty")
			}
			store, err := openSecretStore(cmd, cfgPath)
			if err != nil {
				return err
			}
			if err := store.Set(secrets.NameBackendPassword, []byte(password)); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "backend password stored")
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromStdin, "from-stdin", false, "read password from stdin")
	return cmd
}

func newSecretsClearBackendPasswordCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-backend-password",
		Short: "Remove the stored backend password",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSecretStore(cmd, cfgPath)
			if err != nil {
				return err
			}
			if err := store.Delete(secrets.NameBackendPassword); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "backend password cleared")
			return nil
		},
	}
}
