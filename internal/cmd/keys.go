package cmd

import (
	"crypto/ed25519"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eigerco/arbiter/pkg/network/cert"
)

func (a *app) keygenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new Ed25519 key file and print its identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := cert.GenerateKeyFile(a.cfg.Keys.Path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n%s\n", a.cfg.Keys.Path, identity(key))
			return nil
		},
	}
}

func (a *app) identityCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "identity",
		Short: "Print the identity of the configured key",
		Long: `Print the identity bound to the configured key. The server sees this
string as the caller identity, so it is what goes into the authorities list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := a.loadKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), identity(key))
			return nil
		},
	}
}

func (a *app) loadKey() (ed25519.PrivateKey, error) {
	key, err := cert.LoadKeyFile(a.cfg.Keys.Path)
	if err != nil {
		return nil, fmt.Errorf("%w (run arbiter keygen first)", err)
	}
	return key, nil
}

func identity(key ed25519.PrivateKey) string {
	return cert.KeyIdentity(key)
}
