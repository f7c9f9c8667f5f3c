package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/irgordon/insight/api/internal/infrastructure/crypto"
)

const defaultSecretEnv = "INSIGHT_ENCRYPTION_SECRET_KEY"

var errNoSecret = errors.New("no encryption secret configured")

type cli struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	getenv func(string) string

	secretEnv string
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "insight-crypt",
		Short:         "Encrypt and decrypt Insight values at rest",
		Long:          `Seals and opens values with the key derived from the Insight encryption secret. The secret is read from the environment, never from arguments.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(c.in)
	root.SetOut(c.out)
	root.SetErr(c.errOut)

	root.PersistentFlags().StringVar(&c.secretEnv, "secret-env", defaultSecretEnv, "environment variable holding the encryption secret")

	root.AddCommand(
		c.encryptCmd(),
		c.decryptCmd(),
		c.looksEncryptedCmd(),
		c.encryptFileCmd(),
		c.decryptFileCmd(),
		c.tokenCmd(),
	)
	return root
}

// key derives the key from the configured environment variable.
func (c *cli) key() (*crypto.Key, error) {
	key, err := crypto.LoadKey(c.getenv(c.secretEnv))
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, fmt.Errorf("%w: set %s", errNoSecret, c.secretEnv)
	}
	return key, nil
}

// valueArg returns the single positional argument, or stdin when absent.
func (c *cli) valueArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}
