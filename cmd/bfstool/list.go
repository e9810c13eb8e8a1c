package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func (a *app) newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list <archive>",
		Aliases: []string{"l", "ls"},
		Short:   "List all files in the archive",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			af, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer af.Close()

			out := cmd.OutOrStdout()
			if err := writeSummary(out, args[0], af.Archive); err != nil {
				return err
			}
			s := af.Summary()
			fmt.Fprintf(out, "Format: %s\nHeader size: %s\n", s.Revision, displaySize(s.HeaderSize))

			t := newTable(
				[]string{"Method", "Size", "Compressed", "Copies", "Offset", "File Name"},
				map[int]bool{4: true},
				map[int]bool{5: true},
			)
			for _, row := range af.List() {
				t.Row(
					row.Method.String(),
					displaySize(row.Size),
					displaySize(row.CompressedSize),
					strconv.Itoa(row.Copy.Count+row.Mirrors),
					displayOffset(row.Offset),
					row.Name,
				)
			}
			_, err = fmt.Fprintln(out, t.String())
			return err
		},
	}
	a.addReadFlags(cmd)
	return cmd
}
