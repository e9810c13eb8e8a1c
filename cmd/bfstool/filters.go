package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meigma/bfstool"
)

func (a *app) newTestFiltersCmd() *cobra.Command {
	var (
		filterRef  string
		copyRef    string
		mismatches bool
	)
	cmd := &cobra.Command{
		Use:   "test-filters <archive>",
		Short: "Compare filter rules with how an archive stores its files",
		Long: "Evaluate compression and copy rules against every entry and report where\n" +
			"they disagree with the archive. Without an archive, list the built-in profiles.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				fmt.Fprintf(out, "Filters: %s\nCopy filters: %s\n",
					strings.Join(bfstool.FilterNames(), ", "), strings.Join(bfstool.CopyFilterNames(), ", "))
				return nil
			}

			rules, err := loadFilter(filterRef)
			if err != nil {
				return err
			}
			var copies []bfstool.CopyRule
			if copyRef != "" {
				if copies, err = loadCopyRules(copyRef); err != nil {
					return err
				}
			}

			af, err := a.open(args[0])
			if err != nil {
				return err
			}
			defer af.Close()

			t := newTable([]string{"Filter", "Method", "Copies", "Rule Copies", "File Name"}, map[int]bool{0: true}, map[int]bool{4: true})
			var bad int
			for _, row := range af.List() {
				decision := bfstool.EvaluateFilter(row.Name, rules)
				compressed := row.Method != bfstool.MethodStore
				ok := compressed == (decision == bfstool.Include) || row.Size == 0
				want := row.Mirrors
				if copies != nil {
					want = bfstool.EvaluateCopies(row.Name, copies).Total()
					ok = ok && want == row.Mirrors
				}
				if !ok {
					bad++
				}
				if mismatches && ok {
					continue
				}
				t.Row(decision.String(), row.Method.String(), strconv.Itoa(row.Mirrors), strconv.Itoa(want), row.Name)
			}
			fmt.Fprintln(out, t.String())
			fmt.Fprintf(out, "%d of %d entries disagree with the rules\n", bad, af.Len())
			return nil
		},
	}
	a.addReadFlags(cmd)
	f := cmd.Flags()
	f.StringVar(&filterRef, "filter", "all", "rule file or built-in profile name")
	f.StringVar(&copyRef, "copy-filter", "", "copy rule file or built-in copy profile name")
	f.BoolVar(&mismatches, "mismatches", false, "show only entries that disagree")
	return cmd
}
