package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/meigma/bfstool"
)

func (a *app) newDecryptCmd() *cobra.Command {
	return a.newCryptCmd("decrypt", "Decrypt an archive", bfstool.Decrypt)
}

func (a *app) newEncryptCmd() *cobra.Command {
	return a.newCryptCmd("encrypt", "Encrypt an archive", bfstool.Encrypt)
}

type cryptFunc func(data []byte, rev bfstool.Revision, keys bfstool.KeyRing) ([]byte, error)

func (a *app) newCryptCmd(use, short string, fn cryptFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <input> <output>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			rev := a.revision.rev
			if !a.revision.set {
				rev = bfstool.Bzf2001
			}
			if !rev.Encrypted() {
				return errors.New(rev.String() + " archives are not enciphered")
			}
			keys, err := a.keyRing()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			out, err := fn(data, rev, keys)
			if err != nil {
				return err
			}
			a.log().Info(use+"ed archive", "input", args[0], "output", args[1], "bytes", len(out))
			return writeFile(args[1], out)
		},
	}
	cmd.Flags().VarP(&a.revision, "format", "f", "format of the enciphered archive (bzf2001)")
	return cmd
}
