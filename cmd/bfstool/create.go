package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meigma/bfstool"
)

func (a *app) newCreateCmd() *cobra.Command {
	var (
		filterRef string
		copyRef   string
		method    = methodFlag{method: bfstool.MethodZlib}
		level     int
		align     uint64
		noDedup   bool
		plain     bool
		progress  bool
	)
	cmd := &cobra.Command{
		Use:   "create <input-dir> <archive>",
		Short: "Create an archive from a directory",
		Long: "Create an archive from every regular file below a directory.\n\n" +
			"--filter and --copy-filter take a rule file or a built-in profile name.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.revision.set {
				return errors.New("--format is required")
			}
			keys, err := a.keyRing()
			if err != nil {
				return err
			}
			opts := []bfstool.CreateOption{
				bfstool.CreateWithMethod(method.method),
				bfstool.CreateWithLevel(level),
				bfstool.CreateWithAlignment(align),
				bfstool.CreateWithDedup(!noDedup),
				bfstool.CreateWithKeys(keys),
				bfstool.CreateWithDeciphered(plain),
				bfstool.CreateWithLogger(a.log()),
			}
			if progress {
				pp := &progressPrinter{w: cmd.ErrOrStderr()}
				defer pp.done()
				opts = append(opts, bfstool.CreateWithProgress(pp.report))
			}
			if filterRef != "" {
				rules, err := loadFilter(filterRef)
				if err != nil {
					return err
				}
				opts = append(opts, bfstool.CreateWithFilter(rules))
			}
			if copyRef != "" {
				rules, err := loadCopyRules(copyRef)
				if err != nil {
					return err
				}
				opts = append(opts, bfstool.CreateWithCopyRules(rules))
			}

			archive, data, err := bfstool.CreateFromDir(cmd.Context(), args[0], a.revision.rev, opts...)
			if err != nil {
				return err
			}
			if err := writeFile(args[1], data); err != nil {
				return fmt.Errorf("write %s: %w", args[1], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s: %d files, %s\n",
				args[1], archive.Len(), displaySize(uint64(len(data))))
			return nil
		},
	}
	f := cmd.Flags()
	f.VarP(&a.revision, "format", "f", "archive format (bzf2001, bzf2002, bfs2004a, bfs2004b, bfs2007)")
	f.StringVar(&filterRef, "filter", "", "rules choosing which files are compressed")
	f.StringVar(&copyRef, "copy-filter", "", "rules choosing mirror copies per file")
	f.Var(&method, "method", "compression method for included files (store, zlib, zstd)")
	f.IntVar(&level, "level", -1, "compression level (-1 = default)")
	f.Uint64Var(&align, "align", 0, "align payload offsets to a multiple of this many bytes")
	f.BoolVar(&noDedup, "no-dedup", false, "store identical files separately")
	f.BoolVar(&plain, "deciphered", false, "write bzf2001 output without enciphering it")
	f.BoolVar(&progress, "progress", false, "show progress on stderr")
	return cmd
}
