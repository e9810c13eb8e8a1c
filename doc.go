// Package bfstool reads, identifies, and writes BZF/BFS racing game archives.
//
// Six container revisions exist: Bzf2001 (encrypted), Bzf2, and the three
// bfs1 revisions A, B, and C, plus the later Bbfs, which is recognized but
// not supported. Entries are stored plain, zlib, or zstd compressed, and
// identical content can be stored once and referenced by several entries.
//
// # Reading
//
// Open an archive on disk, naming its revision:
//
//	f, err := bfstool.OpenFile("europe.bin", bfstool.WithRevision(bfstool.Bfs1RevisionA))
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//	for _, row := range f.List() {
//	    fmt.Println(row.Name, row.Size)
//	}
//
// Without WithRevision the archive is identified against the known-file
// database, set with [WithDatabase]:
//
//	f, err := bfstool.OpenFile("europe.bin", bfstool.WithDatabase(db))
//
// Extract entries matching a glob:
//
//	report, err := f.Extract(ctx, "out", bfstool.ExtractWithPattern("data/**"))
//
// # Writing
//
// Create builds a new archive from in-memory files. Filter rules choose
// which files are compressed and copy rules how many mirror copies each
// gets:
//
//	archive, data, err := bfstool.Create(ctx, files, bfstool.Bfs1RevisionA,
//	    bfstool.CreateWithFilter(rules),
//	)
//
// # Keys
//
// Bzf2001 archives are enciphered. Key material is supplied with [WithKeys]
// and [CreateWithKeys] and is never logged or printed. Creating a Bzf2001
// archive without a key fails with [ErrMissingKey] unless
// [CreateWithDeciphered] is set.
package bfstool
