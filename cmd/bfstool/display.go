package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/meigma/bfstool"
)

func displaySize(n uint64) string {
	return humanize.IBytes(n)
}

func displayOffset(off uint64) string {
	return fmt.Sprintf("%08x", off)
}

var cell = lipgloss.NewStyle().Padding(0, 1)

// newTable returns a markdown-bordered table. Columns listed in left are
// left aligned, centered holds centered columns, everything else is right
// aligned.
func newTable(headers []string, centered, left map[int]bool) *table.Table {
	return table.New().
		Border(lipgloss.MarkdownBorder()).
		BorderTop(false).
		BorderBottom(false).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return cell.Align(lipgloss.Center)
			case left[col]:
				return cell.Align(lipgloss.Left)
			case centered[col]:
				return cell.Align(lipgloss.Center)
			default:
				return cell.Align(lipgloss.Right)
			}
		})
}

// writeSummary prints the header shared by list and tree.
func writeSummary(w io.Writer, path string, a *bfstool.Archive) error {
	size := a.Summary().PhysicalSize
	if info, err := os.Stat(path); err == nil {
		size = uint64(info.Size()) //nolint:gosec // file sizes are non-negative
	}
	_, err := fmt.Fprintf(w, "Listing archive: %s\nPhysical size: %s\nFile count: %d\n",
		path, displaySize(size), a.Len())
	return err
}
