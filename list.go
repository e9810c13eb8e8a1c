package bfstool

// ListRow is one line of an archive listing. Fields are in display order.
type ListRow struct {
	Method         Method
	Size           uint64
	CompressedSize uint64
	Copy           CopyDescriptor
	// Mirrors is the number of additional on-disk copies of the payload,
	// of which MirrorsWide are carried in the wide copy field.
	Mirrors     int
	MirrorsWide int
	Offset      uint64
	Name        string
}

// List returns one row per entry in header order. No payload is decoded.
func (a *Archive) List() []ListRow {
	rows := make([]ListRow, len(a.model.Entries))
	for i := range a.model.Entries {
		e := &a.model.Entries[i]
		rows[i] = ListRow{
			Method:         e.Method,
			Size:           e.Size,
			CompressedSize: e.CompressedSize,
			Copy:           e.Copy,
			Mirrors:        len(e.Mirrors),
			MirrorsWide:    e.MirrorsWide,
			Offset:         e.Offset,
			Name:           e.Name,
		}
	}
	return rows
}
