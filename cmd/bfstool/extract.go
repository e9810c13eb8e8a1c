package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meigma/bfstool"
)

func (a *app) newExtractCmd() *cobra.Command {
	var (
		patterns  []string
		workers   int
		overwrite bool
		progress  bool
	)
	cmd := &cobra.Command{
		Use:     "extract <archive> <output-dir>",
		Aliases: []string{"e", "x"},
		Short:   "Extract files from the archive",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			af, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer af.Close()

			opts := []bfstool.ExtractOption{
				bfstool.ExtractWithPattern(patterns...),
				bfstool.ExtractWithWorkers(workers),
				bfstool.ExtractWithOverwrite(overwrite),
				bfstool.ExtractWithLogger(a.log()),
			}
			if progress {
				pp := &progressPrinter{w: cmd.ErrOrStderr()}
				defer pp.done()
				opts = append(opts, bfstool.ExtractWithProgress(pp.report))
			}
			report, err := af.Extract(cmd.Context(), args[1], opts...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i := range af.Len() {
				res, ok := report.Results[i]
				if !ok || res.Status != bfstool.StatusFailed {
					continue
				}
				fmt.Fprintf(out, "failed: %s: %v\n", res.Name, res.Err)
			}
			fmt.Fprintf(out, "Extracted %d, skipped %d, failed %d\n", report.Extracted, report.Skipped, report.Failed)
			if report.Failed > 0 {
				return fmt.Errorf("%d of %d entries failed", report.Failed, len(report.Results))
			}
			return nil
		},
	}
	a.addReadFlags(cmd)
	f := cmd.Flags()
	f.StringArrayVarP(&patterns, "pattern", "p", nil, "extract only entries matching the glob (repeatable)")
	f.IntVarP(&workers, "workers", "w", 0, "parallel workers (0 = auto, -1 = serial)")
	f.BoolVar(&overwrite, "overwrite", false, "replace existing files")
	f.BoolVar(&progress, "progress", false, "show progress on stderr")
	return cmd
}
