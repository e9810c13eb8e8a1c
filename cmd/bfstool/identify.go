package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meigma/bfstool"
)

func (a *app) newIdentifyCmd() *cobra.Command {
	var verify bool
	cmd := &cobra.Command{
		Use:   "identify <file>...",
		Short: "Identify archives against the known-file database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.database()
			if err != nil {
				return err
			}

			t := newTable([]string{"File", "Game", "Platform", "Format", "Source"}, nil, map[int]bool{0: true, 1: true, 4: true})
			var hints []string
			var failed error
			for _, path := range args {
				res, err := bfstool.IdentifyFile(path,
					bfstool.IdentifyWithDatabase(db),
					bfstool.IdentifyWithFast(a.fastIdentify),
					bfstool.IdentifyWithVerify(verify),
				)
				if err != nil {
					a.log().Warn("identify failed", "path", path, "error", err)
					failed = errors.Join(failed, fmt.Errorf("%s: %w", path, err))
					continue
				}
				if !res.Found() {
					t.Row(path, "unknown", "", "", "")
					if res.Hint == bfstool.HintRetrySlow {
						hints = append(hints, path+": Try removing --fast-identify")
					}
					continue
				}
				for _, rec := range res.Matches {
					t.Row(path, rec.Game, rec.Platform, rec.Format, strings.Join(rec.Source, ", "))
				}
				if res.Hint == bfstool.HintUnknownFormat {
					hints = append(hints, path+": matched a record whose format is not supported")
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, t.String())
			for _, h := range hints {
				fmt.Fprintln(out, h)
			}
			return failed
		},
	}
	f := cmd.Flags()
	f.BoolVar(&a.fastIdentify, "fast-identify", false, "trust a CRC32 in the file name instead of hashing")
	f.BoolVar(&verify, "verify", false, "hash the content after a fast match")
	return cmd
}
