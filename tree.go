package bfstool

import (
	"slices"
	"strings"

	"github.com/meigma/bfstool/internal/pathutil"
)

// TreeNode is a folder or file in the hierarchy view of an archive.
type TreeNode struct {
	Name string
	// Size is the decoded size; for folders, the sum over everything below.
	Size     uint64
	Dir      bool
	Children []*TreeNode
}

// Tree returns the folder hierarchy of the archive under a root node named
// rootName. Folders come before files; both keep first-seen order.
func (a *Archive) Tree(rootName string) *TreeNode {
	root := &TreeNode{Name: rootName, Dir: true}
	for i := range a.model.Entries {
		e := &a.model.Entries[i]
		insertTree(root, strings.ReplaceAll(e.Name, `\`, "/"), e.Size)
	}
	sumTree(root)
	return root
}

func insertTree(dir *TreeNode, name string, size uint64) {
	child, more := pathutil.Child(name, "")
	if !more {
		dir.Children = append(dir.Children, &TreeNode{Name: child, Size: size})
		return
	}
	i := slices.IndexFunc(dir.Children, func(n *TreeNode) bool { return n.Dir && n.Name == child })
	if i < 0 {
		dir.Children = append(dir.Children, &TreeNode{Name: child, Dir: true})
		i = len(dir.Children) - 1
	}
	insertTree(dir.Children[i], name[len(child)+1:], size)
}

func sumTree(n *TreeNode) uint64 {
	if !n.Dir {
		return n.Size
	}
	var total uint64
	for _, c := range n.Children {
		total += sumTree(c)
	}
	n.Size = total
	slices.SortStableFunc(n.Children, func(x, y *TreeNode) int {
		switch {
		case x.Dir == y.Dir:
			return 0
		case x.Dir:
			return -1
		default:
			return 1
		}
	})
	return total
}

// Walk calls fn for n and every node below it in display order with its depth.
func (n *TreeNode) Walk(fn func(node *TreeNode, depth int)) {
	n.walk(fn, 0)
}

func (n *TreeNode) walk(fn func(node *TreeNode, depth int), depth int) {
	fn(n, depth)
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}
