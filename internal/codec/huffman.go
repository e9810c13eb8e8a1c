package codec

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/meigma/bfstool/internal/bfstype"
	"github.com/meigma/bfstool/internal/pathutil"
	"github.com/meigma/bfstool/internal/sizing"
)

// Huffman dictionary node types. Each dictionary entry is two bytes: the
// node type followed by a value. A leaf's value is the symbol. A branch's
// one-child follows it directly and its value is the position of the
// zero-child.
const (
	nodeBranch uint8 = 0x00
	nodeLeaf   uint8 = 0x80
)

const (
	// metaHeaderSize is the size of the name table's metadata header.
	metaHeaderSize = 0x14

	// maxCodeBits bounds code lengths so a pattern fits 32 bits with its
	// leading marker bit.
	maxCodeBits = 31

	// maxDictEntries follows from the u8 zero-child position.
	maxDictEntries = 256
)

// decodeDict expands a serialized dictionary into a map from marker-prefixed
// bit pattern to symbol.
func decodeDict(dict []byte) (map[uint64]byte, error) {
	entries := len(dict) / 2
	out := make(map[uint64]byte)
	if entries == 0 {
		return out, nil
	}

	type item struct {
		key uint64
		pos int
	}
	stack := []item{{key: 1, pos: 0}}
	visits := 0
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if it.pos >= entries {
			continue
		}
		visits++
		if visits > entries || it.key >= 1<<(maxCodeBits+1) {
			return nil, fmt.Errorf("%w: name dictionary is not a tree", bfstype.ErrMalformedHeader)
		}
		kind, value := dict[2*it.pos], dict[2*it.pos+1]
		if kind == nodeLeaf {
			out[it.key] = value
			continue
		}
		stack = append(stack,
			item{key: it.key<<1 | 1, pos: it.pos + 1},
			item{key: it.key << 1, pos: int(value)},
		)
	}
	return out, nil
}

// decodeName reads length symbols from data, least significant bit first.
func decodeName(data []byte, dict map[uint64]byte, length int) (string, error) {
	if length == 0 {
		return "", nil
	}
	var sb strings.Builder
	sb.Grow(length)
	pattern := uint64(1)
	for _, b := range data {
		for bit := range 8 {
			pattern = pattern<<1 | uint64(b>>bit&1)
			if sym, ok := dict[pattern]; ok {
				sb.WriteByte(sym)
				if sb.Len() == length {
					return sb.String(), nil
				}
				pattern = 1
				continue
			}
			if pattern >= 1<<(maxCodeBits+1) {
				return "", fmt.Errorf("%w: name bit pattern has no dictionary entry", bfstype.ErrMalformedHeader)
			}
		}
	}
	return "", fmt.Errorf("%w: name data ends after %d of %d symbols",
		bfstype.ErrMalformedHeader, sb.Len(), length)
}

// decodeStrings decodes every string of a parsed name table.
func decodeStrings(t *bfstype.NameTable) error {
	if len(t.Offsets) != len(t.Lengths) {
		return fmt.Errorf("%w: name table has %d offsets and %d lengths",
			bfstype.ErrMalformedHeader, len(t.Offsets), len(t.Lengths))
	}
	dict, err := decodeDict(t.Dict)
	if err != nil {
		return err
	}
	t.Strings = make([]string, len(t.Offsets))
	for i, off := range t.Offsets {
		if uint64(off) > uint64(len(t.Data)) {
			return fmt.Errorf("%w: name %d starts at %#x past name data of %d bytes",
				bfstype.ErrMalformedHeader, i, off, len(t.Data))
		}
		s, err := decodeName(t.Data[off:], dict, int(t.Lengths[i]))
		if err != nil {
			return fmt.Errorf("name %d: %w", i, err)
		}
		t.Strings[i] = s
	}
	return nil
}

// huffNode is a node of a code tree under construction.
type huffNode struct {
	weight    int
	seq       int
	sym       byte
	leaf      bool
	one, zero *huffNode
}

// buildTree returns a Huffman tree over the symbols with non-zero counts.
// A single symbol still gets a branch so that it has a non-empty code.
func buildTree(counts *[256]int) *huffNode {
	var nodes []*huffNode
	for sym, n := range counts {
		if n > 0 {
			nodes = append(nodes, &huffNode{weight: n, seq: len(nodes), sym: byte(sym), leaf: true})
		}
	}
	switch len(nodes) {
	case 0:
		return nil
	case 1:
		only := nodes[0]
		twin := *only
		return &huffNode{one: only, zero: &twin}
	}

	seq := len(nodes)
	for len(nodes) > 1 {
		slices.SortFunc(nodes, func(x, y *huffNode) int {
			if c := cmp.Compare(x.weight, y.weight); c != 0 {
				return c
			}
			return cmp.Compare(x.seq, y.seq)
		})
		merged := &huffNode{weight: nodes[0].weight + nodes[1].weight, seq: seq, zero: nodes[0], one: nodes[1]}
		seq++
		nodes = append([]*huffNode{merged}, nodes[2:]...)
	}
	return nodes[0]
}

func treeDepth(n *huffNode) int {
	if n == nil || n.leaf {
		return 0
	}
	return 1 + max(treeDepth(n.one), treeDepth(n.zero))
}

// serializeTree writes n in pre-order: a branch, its one-subtree, then its
// zero-subtree whose position the branch records.
func serializeTree(n *huffNode, out []byte) ([]byte, error) {
	pos := len(out) / 2
	if pos >= maxDictEntries {
		return nil, fmt.Errorf("%w: name dictionary exceeds %d entries", bfstype.ErrEntryOverflow, maxDictEntries)
	}
	if n.leaf {
		return append(out, nodeLeaf, n.sym), nil
	}
	out = append(out, nodeBranch, 0)
	out, err := serializeTree(n.one, out)
	if err != nil {
		return nil, err
	}
	zeroPos := len(out) / 2
	if zeroPos >= maxDictEntries {
		return nil, fmt.Errorf("%w: name dictionary exceeds %d entries", bfstype.ErrEntryOverflow, maxDictEntries)
	}
	out[2*pos+1] = byte(zeroPos)
	return serializeTree(n.zero, out)
}

// code is a symbol's bit string, first bit in the most significant position.
type code struct {
	bits uint32
	n    int
}

func assignCodes(n *huffNode, prefix code, codes map[byte]code) {
	if n == nil {
		return
	}
	if n.leaf {
		if _, ok := codes[n.sym]; !ok {
			codes[n.sym] = prefix
		}
		return
	}
	assignCodes(n.one, code{bits: prefix.bits<<1 | 1, n: prefix.n + 1}, codes)
	assignCodes(n.zero, code{bits: prefix.bits << 1, n: prefix.n + 1}, codes)
}

// encodeName appends s to data, byte aligned, least significant bit first.
func encodeName(data []byte, s string, codes map[byte]code) []byte {
	var cur byte
	used := 0
	for i := range len(s) {
		c := codes[s[i]]
		for b := c.n - 1; b >= 0; b-- {
			cur |= byte(c.bits>>b&1) << used
			used++
			if used == 8 {
				data = append(data, cur)
				cur, used = 0, 0
			}
		}
	}
	if used > 0 {
		data = append(data, cur)
	}
	return data
}

// splitName splits an entry name into its folder and file parts at the last
// slash.
func splitName(name string) (folder, file string, err error) {
	if !strings.Contains(name, "/") {
		return "", "", fmt.Errorf("%w: %q has no folder part", bfstype.ErrInvalidName, name)
	}
	folder = pathutil.Dir(name)
	return folder, name[len(folder)+1:], nil
}

// buildNameTable encodes the folder and file parts of every entry name into
// a fresh table. Parts are stored once each, sorted.
func buildNameTable(entries []bfstype.Entry) (*bfstype.NameTable, error) {
	parts := make([]string, 0, 2*len(entries))
	for i := range entries {
		folder, file, err := splitName(entries[i].Name)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		parts = append(parts, folder, file)
	}
	slices.Sort(parts)
	parts = slices.Compact(parts)
	if len(parts) > 1<<16 {
		return nil, fmt.Errorf("%w: %d distinct name parts exceed 16-bit ids", bfstype.ErrEntryOverflow, len(parts))
	}

	ids := make(map[string]uint16, len(parts))
	var counts [256]int
	for i, p := range parts {
		ids[p] = uint16(i) //nolint:gosec // bounded above
		for j := range len(p) {
			counts[p[j]]++
		}
	}

	tree := buildTree(&counts)
	if treeDepth(tree) > maxCodeBits {
		// Flatten pathological weight distributions into a balanced tree.
		for sym := range counts {
			if counts[sym] > 0 {
				counts[sym] = 1
			}
		}
		tree = buildTree(&counts)
	}

	t := &bfstype.NameTable{
		Offsets:  make([]uint32, len(parts)),
		Lengths:  make([]uint16, len(parts)),
		Strings:  parts,
		EntryIDs: make([][2]uint16, len(entries)),
	}
	codes := make(map[byte]code)
	if tree != nil {
		dict, err := serializeTree(tree, nil)
		if err != nil {
			return nil, err
		}
		t.Dict = dict
		assignCodes(tree, code{}, codes)
	}
	for i, p := range parts {
		off, err := sizing.Field32(uint64(len(t.Data)), "name data offset", bfstype.ErrEntryOverflow)
		if err != nil {
			return nil, err
		}
		n, err := sizing.Field16(uint64(len(p)), "name part length", bfstype.ErrEntryOverflow)
		if err != nil {
			return nil, err
		}
		t.Offsets[i] = off
		t.Lengths[i] = n
		t.Data = encodeName(t.Data, p, codes)
	}
	for i := range entries {
		folder, file, _ := splitName(entries[i].Name)
		t.EntryIDs[i] = [2]uint16{ids[folder], ids[file]}
	}

	fields := []struct {
		name string
		dst  *uint32
		size uint64
	}{
		{"name offsets offset", &t.OffsetsOffset, 4 * uint64(len(t.Offsets))},
		{"name lengths offset", &t.LengthsOffset, 2 * uint64(len(t.Lengths))},
		{"name dictionary offset", &t.DictOffset, uint64(len(t.Dict))},
		{"name data offset", &t.DataOffset, uint64(len(t.Data))},
	}
	pos := uint64(metaHeaderSize)
	for _, f := range fields {
		v, err := sizing.Field32(pos, f.name, bfstype.ErrEntryOverflow)
		if err != nil {
			return nil, err
		}
		*f.dst = v
		pos += f.size
	}
	headers, err := sizing.Field32(pos, "file headers offset", bfstype.ErrEntryOverflow)
	if err != nil {
		return nil, err
	}
	t.FileHeadersOffset = headers
	return t, nil
}

// reusable reports whether t still names entries exactly and its sections
// sit in order before the file headers.
func reusable(t *bfstype.NameTable, entries []bfstype.Entry) bool {
	if t == nil || len(t.EntryIDs) != len(entries) {
		return false
	}
	for i := range entries {
		f, g := int(t.EntryIDs[i][0]), int(t.EntryIDs[i][1])
		if f >= len(t.Strings) || g >= len(t.Strings) {
			return false
		}
		if t.Strings[f]+"/"+t.Strings[g] != entries[i].Name {
			return false
		}
	}

	type span struct{ start, end uint64 }
	spans := []span{
		{uint64(t.OffsetsOffset), uint64(t.OffsetsOffset) + 4*uint64(len(t.Offsets))},
		{uint64(t.LengthsOffset), uint64(t.LengthsOffset) + 2*uint64(len(t.Lengths))},
		{uint64(t.DictOffset), uint64(t.DictOffset) + uint64(len(t.Dict))},
		{uint64(t.DataOffset), uint64(t.DataOffset) + uint64(len(t.Data))},
	}
	slices.SortFunc(spans, func(x, y span) int { return cmp.Compare(x.start, y.start) })
	prev := uint64(metaHeaderSize)
	for _, s := range spans {
		if s.start < prev {
			return false
		}
		prev = s.end
	}
	return prev <= uint64(t.FileHeadersOffset)
}
