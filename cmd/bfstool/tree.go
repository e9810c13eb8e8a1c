package main

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/lipgloss/tree"
	"github.com/spf13/cobra"

	"github.com/meigma/bfstool"
)

func (a *app) newTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree <archive>",
		Short: "Display all files in the archive in a tree-like fashion",
		Args:  cobra.ExactArgs(1),
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
			root := af.Tree(filepath.Base(args[0]))
			_, err = fmt.Fprintf(out, "\n%s\n", renderTree(root))
			return err
		},
	}
	a.addReadFlags(cmd)
	return cmd
}

func treeLabel(n *bfstool.TreeNode) string {
	return fmt.Sprintf("%s [%s]", n.Name, displaySize(n.Size))
}

func renderTree(n *bfstool.TreeNode) *tree.Tree {
	t := tree.Root(treeLabel(n))
	for _, c := range n.Children {
		if c.Dir {
			t.Child(renderTree(c))
			continue
		}
		t.Child(treeLabel(c))
	}
	return t
}
