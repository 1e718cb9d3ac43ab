package history

import (
	"encoding/binary"
	"hash"
	"math"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/inkbook/inkbook/internal/ink"
)

// DefaultMaxSnapshots bounds a SnapshotHistory when no limit is given.
const DefaultMaxSnapshots = 50

// PageSnapshot is an immutable capture of a page drawing. Its content hash is
// computed on first use and cached.
type PageSnapshot struct {
	drawing ink.Drawing

	hashOnce sync.Once
	sum      [blake2b.Size256]byte
}

func NewPageSnapshot(d ink.Drawing) *PageSnapshot {
	return &PageSnapshot{drawing: d}
}

func (s *PageSnapshot) Drawing() ink.Drawing { return s.drawing }

// Hash returns the blake2b-256 digest of the drawing content.
func (s *PageSnapshot) Hash() [blake2b.Size256]byte {
	s.hashOnce.Do(func() {
		h, _ := blake2b.New256(nil)
		writeDrawing(h, s.drawing)
		copy(s.sum[:], h.Sum(nil))
	})
	return s.sum
}

// Equal compares the captured drawings. Differing hashes short-circuit the
// stroke-by-stroke comparison.
func (s *PageSnapshot) Equal(other *PageSnapshot) bool {
	if s == other {
		return true
	}
	if s == nil || other == nil {
		return false
	}
	if s.drawing.Len() != other.drawing.Len() {
		return false
	}
	if s.Hash() != other.Hash() {
		return false
	}
	return s.drawing.Equal(other.drawing)
}

func writeDrawing(h hash.Hash, d ink.Drawing) {
	var buf [8]byte
	putU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	putF64 := func(f float64) { putU64(math.Float64bits(f)) }

	putU64(uint64(d.Len()))
	for i := range d.Len() {
		s := d.Stroke(i)
		h.Write([]byte{byte(s.Kind), s.Color.R, s.Color.G, s.Color.B, s.Color.A})
		putF64(s.Width)
		for _, v := range s.Transform {
			putF64(v)
		}
		putU64(uint64(len(s.Points)))
		for _, p := range s.Points {
			putF64(p.X)
			putF64(p.Y)
			putF64(p.Force)
		}
	}
}

// SnapshotHistory is a bounded list of snapshots with a cursor. The cursor
// always points at a valid entry.
type SnapshotHistory struct {
	snapshots []*PageSnapshot
	index     int
	limit     int
}

// NewSnapshotHistory starts a history holding only initial. A limit below 1
// selects DefaultMaxSnapshots.
func NewSnapshotHistory(initial *PageSnapshot, limit int) *SnapshotHistory {
	if limit < 1 {
		limit = DefaultMaxSnapshots
	}
	return &SnapshotHistory{snapshots: []*PageSnapshot{initial}, limit: limit}
}

// Add records s as the newest state. A snapshot equal to the current one is
// rejected and Add reports false. Any redo branch is discarded, and once the
// history exceeds its bound the oldest entry is dropped.
func (h *SnapshotHistory) Add(s *PageSnapshot) bool {
	if s.Equal(h.snapshots[h.index]) {
		return false
	}
	clear(h.snapshots[h.index+1:])
	h.snapshots = append(h.snapshots[:h.index+1], s)
	h.index++

	if len(h.snapshots) > h.limit {
		h.snapshots[0] = nil
		h.snapshots = h.snapshots[1:]
		h.index--
	}
	return true
}

// Undo steps the cursor back and returns the snapshot now current.
func (h *SnapshotHistory) Undo() (*PageSnapshot, bool) {
	if h.index == 0 {
		return nil, false
	}
	h.index--
	return h.snapshots[h.index], true
}

// Redo steps the cursor forward and returns the snapshot now current.
func (h *SnapshotHistory) Redo() (*PageSnapshot, bool) {
	if h.index == len(h.snapshots)-1 {
		return nil, false
	}
	h.index++
	return h.snapshots[h.index], true
}

// Reset replaces the whole history with s.
func (h *SnapshotHistory) Reset(s *PageSnapshot) {
	h.snapshots = []*PageSnapshot{s}
	h.index = 0
}

func (h *SnapshotHistory) Current() *PageSnapshot { return h.snapshots[h.index] }
func (h *SnapshotHistory) CanUndo() bool          { return h.index > 0 }
func (h *SnapshotHistory) CanRedo() bool          { return h.index < len(h.snapshots)-1 }
func (h *SnapshotHistory) Len() int               { return len(h.snapshots) }
func (h *SnapshotHistory) Index() int             { return h.index }
func (h *SnapshotHistory) Limit() int             { return h.limit }
