package memory

import (
	"fmt"
	"strings"
)

// BytesPerRow is the default hex dump row width.
const BytesPerRow = 16

// Cell is one byte of a dump row.
type Cell struct {
	Value     byte
	Highlight string
}

// Row is one line of a hex dump.
type Row struct {
	Addr  uint64
	Cells []Cell
}

// Hex renders the row's bytes as space separated hex pairs.
func (r Row) Hex() string {
	parts := make([]string, len(r.Cells))
	for i, c := range r.Cells {
		parts[i] = fmt.Sprintf("%02x", c.Value)
	}
	return strings.Join(parts, " ")
}

// ASCII renders the row's printable bytes, '.' elsewhere.
func (r Row) ASCII() string {
	out := make([]byte, len(r.Cells))
	for i, c := range r.Cells {
		if c.Value >= 32 && c.Value < 127 {
			out[i] = c.Value
		} else {
			out[i] = '.'
		}
	}
	return string(out)
}

// Rows splits a segment into dump rows of width bytes, tagging each byte
// with the color of the highlight covering it.
func (s *Snapshot) Rows(name string, width int) ([]Row, error) {
	seg, err := s.Segment(name)
	if err != nil {
		return nil, err
	}
	if width <= 0 {
		width = BytesPerRow
	}

	var rows []Row
	for off := 0; off < len(seg.data); off += width {
		end := off + width
		if end > len(seg.data) {
			end = len(seg.data)
		}
		row := Row{Addr: seg.Base + uint64(off), Cells: make([]Cell, end-off)}
		for i := off; i < end; i++ {
			addr := seg.Base + uint64(i)
			cell := Cell{Value: seg.data[i]}
			if h, ok := s.HighlightAt(name, addr); ok {
				cell.Highlight = h.Color
			}
			row.Cells[i-off] = cell
		}
		rows = append(rows, row)
	}
	return rows, nil
}
