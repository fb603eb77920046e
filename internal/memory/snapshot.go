// Package memory holds the most recent fetch of each tracked memory
// segment and the highlight regions drawn over it.
package memory

import (
	"errors"
	"fmt"
)

// Sentinel errors for the memory package.
var (
	// ErrUnknownSegment is returned for a segment the snapshot does not track.
	ErrUnknownSegment = errors.New("unknown segment")

	// ErrOutOfRange is returned when an address lies outside the fetched bytes.
	ErrOutOfRange = errors.New("address outside segment")

	// ErrHighlightExists is returned when a tag is added twice without
	// being cleared.
	ErrHighlightExists = errors.New("highlight tag already assigned")
)

// Stable highlight tags reassigned by every update cycle.
const (
	TagStackPointer  = "sp"
	TagBasePointer   = "bp"
	TagReturnAddress = "ret"
	TagInstruction   = "ip"
)

// Highlight is a tagged, colored byte range.
type Highlight struct {
	Tag    string
	Addr   uint64
	Length uint64
	Color  string
}

// Contains reports whether addr falls inside the highlight.
func (h Highlight) Contains(addr uint64) bool {
	return addr >= h.Addr && addr < h.Addr+h.Length
}

// Segment is one named region of debuggee memory.
type Segment struct {
	Name       string
	Base       uint64
	data       []byte
	highlights []Highlight
}

// Bytes returns a copy of the segment's buffer.
func (s *Segment) Bytes() []byte {
	return append([]byte(nil), s.data...)
}

// Len returns the buffer length.
func (s *Segment) Len() int {
	return len(s.data)
}

// End returns the first address past the buffer.
func (s *Segment) End() uint64 {
	return s.Base + uint64(len(s.data))
}

// Contains reports whether addr lies in [Base, End).
func (s *Segment) Contains(addr uint64) bool {
	return addr >= s.Base && addr < s.End()
}

// Highlights returns the segment's highlights in assignment order.
func (s *Segment) Highlights() []Highlight {
	return append([]Highlight(nil), s.highlights...)
}

// Snapshot is the set of tracked segments, in display order.
type Snapshot struct {
	order    []string
	segments map[string]*Segment
}

// NewSnapshot creates an empty snapshot tracking names.
func NewSnapshot(names ...string) *Snapshot {
	s := &Snapshot{segments: make(map[string]*Segment)}
	for _, n := range names {
		if _, ok := s.segments[n]; ok {
			continue
		}
		s.order = append(s.order, n)
		s.segments[n] = &Segment{Name: n}
	}
	return s
}

// Names returns the tracked segment names.
func (s *Snapshot) Names() []string {
	return append([]string(nil), s.order...)
}

// Segment returns the named segment.
func (s *Snapshot) Segment(name string) (*Segment, error) {
	seg, ok := s.segments[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSegment, name)
	}
	return seg, nil
}

// Update replaces the segment's base and contents wholesale. Nothing of
// the previous buffer survives.
func (s *Snapshot) Update(name string, base uint64, data []byte) error {
	seg, err := s.Segment(name)
	if err != nil {
		return err
	}
	seg.Base = base
	seg.data = append(make([]byte, 0, len(data)), data...)
	return nil
}

// Read returns n bytes at addr when the whole range was fetched.
func (s *Snapshot) Read(name string, addr uint64, n int) ([]byte, error) {
	seg, err := s.Segment(name)
	if err != nil {
		return nil, err
	}
	size := uint64(len(seg.data))
	off := addr - seg.Base
	if n < 0 || addr < seg.Base || off > size || size-off < uint64(n) {
		return nil, fmt.Errorf("%w: 0x%x+%d not in %s [0x%x, 0x%x)", ErrOutOfRange, addr, n, name, seg.Base, seg.End())
	}
	return append([]byte(nil), seg.data[off:off+uint64(n)]...), nil
}

// AddHighlight assigns a highlight. The tag must not already be present.
func (s *Snapshot) AddHighlight(name string, h Highlight) error {
	seg, err := s.Segment(name)
	if err != nil {
		return err
	}
	for _, existing := range seg.highlights {
		if existing.Tag == h.Tag {
			return fmt.Errorf("%w: %q in %s", ErrHighlightExists, h.Tag, name)
		}
	}
	seg.highlights = append(seg.highlights, h)
	return nil
}

// ClearHighlight removes the highlight with tag. Clearing an absent tag
// is not an error.
func (s *Snapshot) ClearHighlight(name, tag string) error {
	seg, err := s.Segment(name)
	if err != nil {
		return err
	}
	kept := seg.highlights[:0]
	for _, h := range seg.highlights {
		if h.Tag != tag {
			kept = append(kept, h)
		}
	}
	seg.highlights = kept
	return nil
}

// Reassign clears tag and adds h in its place.
func (s *Snapshot) Reassign(name string, h Highlight) error {
	if err := s.ClearHighlight(name, h.Tag); err != nil {
		return err
	}
	return s.AddHighlight(name, h)
}

// HighlightAt returns the most recently assigned highlight covering addr.
func (s *Snapshot) HighlightAt(name string, addr uint64) (Highlight, bool) {
	seg, ok := s.segments[name]
	if !ok {
		return Highlight{}, false
	}
	for i := len(seg.highlights) - 1; i >= 0; i-- {
		if seg.highlights[i].Contains(addr) {
			return seg.highlights[i], true
		}
	}
	return Highlight{}, false
}
