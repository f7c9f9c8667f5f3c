package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/irgordon/insight/api/internal/infrastructure/crypto"
)

func (c *cli) encryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt [value]",
		Short: "Encrypt a value into the base64 text stored in the database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := c.key()
			if err != nil {
				return err
			}
			value, err := c.valueArg(cmd, args)
			if err != nil {
				return err
			}

			sealed, err := crypto.EncryptText(key, value)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sealed)
			return nil
		},
	}
}

func (c *cli) decryptCmd() *cobra.Command {
	var lenient bool

	cmd := &cobra.Command{
		Use:   "decrypt [value]",
		Short: "Decrypt base64 text produced by encrypt or by the API",
		Long:  `Fails on values that do not authenticate under the key. With --lenient it behaves like the API: undecryptable values are printed unchanged and a warning goes to stderr.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := c.key()
			if err != nil {
				return err
			}
			value, err := c.valueArg(cmd, args)
			if err != nil {
				return err
			}

			if lenient {
				logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
				fmt.Fprintln(cmd.OutOrStdout(), crypto.NewService(key, logger).MaybeDecrypt(context.Background(), value))
				return nil
			}

			plain, err := crypto.DecryptText(key, value)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), plain)
			return nil
		},
	}
	cmd.Flags().BoolVar(&lenient, "lenient", false, "print undecryptable values unchanged")
	return cmd
}

func (c *cli) looksEncryptedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "looks-encrypted [value]",
		Short: "Report whether a stored value has the shape of block ciphertext",
		Long:  `A length check only; no key is needed and nothing is authenticated.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := c.valueArg(cmd, args)
			if err != nil {
				return err
			}
			return printShape(cmd.OutOrStdout(), crypto.LooksEncryptedText(value))
		},
	}
}

func printShape(w io.Writer, encrypted bool) error {
	if encrypted {
		_, err := fmt.Fprintln(w, "encrypted")
		return err
	}
	_, err := fmt.Fprintln(w, "plaintext")
	return err
}
