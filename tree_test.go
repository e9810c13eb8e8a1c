package bfstool

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTree(t *testing.T) {
	t.Parallel()

	files := []File{
		{Name: "readme.txt", Data: []byte("12345")},
		{Name: "data/cars/a.bin", Data: []byte("aaaaaaaaaa")},
		{Name: "data/top.bin", Data: []byte("tt")},
		{Name: "data/cars/b.bin", Data: []byte("bbb")},
		{Name: "data/menu/x.bin", Data: []byte("x")},
	}
	a, _ := mustCreate(t, files, Bzf2)

	root := a.Tree("europe.bin")
	assert.Equal(t, "europe.bin", root.Name)
	assert.True(t, root.Dir)
	assert.Equal(t, uint64(21), root.Size)

	var lines []string
	root.Walk(func(n *TreeNode, depth int) {
		lines = append(lines, strings.Repeat("  ", depth)+n.Name)
	})
	want := []string{
		"europe.bin",
		"  data",
		"    cars",
		"      a.bin",
		"      b.bin",
		"    menu",
		"      x.bin",
		"    top.bin",
		"  readme.txt",
	}
	assert.Equal(t, want, lines)

	require.Len(t, root.Children, 2)
	data := root.Children[0]
	assert.Equal(t, uint64(16), data.Size)
	assert.Equal(t, uint64(13), data.Children[0].Size)
}

func TestTreeEmptyArchive(t *testing.T) {
	t.Parallel()

	a, _ := mustCreate(t, nil, Bzf2)
	root := a.Tree("empty.bin")
	assert.Empty(t, root.Children)
	assert.Zero(t, root.Size)
}
