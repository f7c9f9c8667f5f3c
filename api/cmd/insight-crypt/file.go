package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/irgordon/insight/api/internal/infrastructure/crypto"
)

type fileFlags struct {
	in  string
	out string
}

func (f *fileFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.in, "in", "i", "-", "input file, - for stdin")
	cmd.Flags().StringVarP(&f.out, "out", "o", "-", "output file, - for stdout")
}

func (c *cli) encryptFileCmd() *cobra.Command {
	var flags fileFlags

	cmd := &cobra.Command{
		Use:   "encrypt-file",
		Short: "Encrypt a file into the attachment stream format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := c.key()
			if err != nil {
				return err
			}
			return pipeFile(cmd, flags, func(r io.Reader) (io.ReadCloser, error) {
				return crypto.EncryptStream(key, r)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func (c *cli) decryptFileCmd() *cobra.Command {
	var flags fileFlags

	cmd := &cobra.Command{
		Use:   "decrypt-file",
		Short: "Decrypt an attachment; files without the stream header are copied unchanged",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := c.key()
			if err != nil {
				return err
			}
			return pipeFile(cmd, flags, func(r io.Reader) (io.ReadCloser, error) {
				return crypto.DecryptStreamIfEncrypted(key, r)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

// pipeFile streams flags.in through transform into flags.out. Output files
// are written to a temporary file beside the target and renamed into place,
// so --in and --out may name the same file and a failed run leaves the
// target untouched.
func pipeFile(cmd *cobra.Command, flags fileFlags, transform func(io.Reader) (io.ReadCloser, error)) error {
	var src io.Reader = cmd.InOrStdin()
	if flags.in != "-" {
		f, err := os.Open(flags.in)
		if err != nil {
			return err
		}
		src = f
	}

	// transform owns src from here on and closes it with rc.
	rc, err := transform(src)
	if err != nil {
		return err
	}
	defer rc.Close()

	if flags.out == "-" {
		_, err := io.Copy(cmd.OutOrStdout(), rc)
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(flags.out), "."+filepath.Base(flags.out)+".tmp-*")
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err := io.Copy(tmp, rc); err != nil {
		return fmt.Errorf("writing %s: %w", flags.out, err)
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), flags.out); err != nil {
		return err
	}
	committed = true
	return nil
}
