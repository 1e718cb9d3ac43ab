package history

import (
	"sync"
	"testing"

	"github.com/inkbook/inkbook/internal/ink"
)

func snap(n int) *PageSnapshot {
	var d ink.Drawing
	for i := 0; i < n; i++ {
		d = d.Append(stroke(i))
	}
	return NewPageSnapshot(d)
}

func TestSnapshotDuplicateRejected(t *testing.T) {
	h := NewSnapshotHistory(snap(0), 0)
	if h.Limit() != DefaultMaxSnapshots {
		t.Fatalf("expected default limit, got %d", h.Limit())
	}
	if h.Add(snap(0)) {
		t.Fatalf("equal snapshot should be rejected")
	}
	if h.Len() != 1 {
		t.Fatalf("length changed on duplicate: %d", h.Len())
	}
}

func TestSnapshotAddAfterUndoTruncates(t *testing.T) {
	h := NewSnapshotHistory(snap(0), 10)
	h.Add(snap(1))
	h.Add(snap(2))
	got, ok := h.Undo()
	if !ok || got.Drawing().Len() != 1 {
		t.Fatalf("undo should land on snapshot 1")
	}
	if !h.CanRedo() {
		t.Fatalf("expected redo before append")
	}
	h.Add(snap(3))
	if h.CanRedo() {
		t.Fatalf("append should truncate redo branch")
	}
	if h.Len() != 3 || h.Index() != 2 {
		t.Fatalf("unexpected shape: len=%d index=%d", h.Len(), h.Index())
	}
}

func TestSnapshotSlidingWindow(t *testing.T) {
	s := []*PageSnapshot{snap(0), snap(1), snap(2), snap(3), snap(4)}
	h := NewSnapshotHistory(s[0], 3)
	for _, x := range s[1:] {
		h.Add(x)
		if h.Len() > 3 {
			t.Fatalf("history grew past its bound: %d", h.Len())
		}
	}
	if h.Index() != 2 {
		t.Fatalf("expected cursor 2, got %d", h.Index())
	}
	for i, want := range s[2:] {
		if h.snapshots[i] != want {
			t.Fatalf("entry %d is not S%d", i, i+2)
		}
	}
}

func TestSnapshotUndoRedoBounds(t *testing.T) {
	h := NewSnapshotHistory(snap(0), 5)
	if _, ok := h.Undo(); ok {
		t.Fatalf("undo at index 0 should be a no-op")
	}
	if _, ok := h.Redo(); ok {
		t.Fatalf("redo at tip should be a no-op")
	}
	h.Add(snap(1))
	h.Undo()
	got, ok := h.Redo()
	if !ok || got.Drawing().Len() != 1 {
		t.Fatalf("redo should return snapshot 1")
	}
}

func TestSnapshotReset(t *testing.T) {
	h := NewSnapshotHistory(snap(0), 5)
	h.Add(snap(1))
	h.Add(snap(2))
	h.Reset(snap(7))
	if h.Len() != 1 || h.Index() != 0 || h.Current().Drawing().Len() != 7 {
		t.Fatalf("reset did not replace history")
	}
}

func TestSnapshotHashDiffersForDifferentContent(t *testing.T) {
	a, b := snap(2), snap(2)
	if a.Hash() != b.Hash() {
		t.Fatalf("equal drawings should hash equally")
	}
	c := NewPageSnapshot(snap(2).Drawing().Transformed(ink.Translate(1, 0)))
	if a.Hash() == c.Hash() || a.Equal(c) {
		t.Fatalf("transformed drawing should differ")
	}
}

func TestSnapshotWorkerDeliversInOrder(t *testing.T) {
	var mu sync.Mutex
	var got []int
	w := NewSnapshotWorker("page_test", func(gen uint64, s *PageSnapshot) {
		mu.Lock()
		got = append(got, s.Drawing().Len())
		mu.Unlock()
	})
	defer w.Close()

	for i := 1; i <= 20; i++ {
		w.Submit(1, snap(i).Drawing())
	}
	w.Flush()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 20 {
		t.Fatalf("expected 20 deliveries, got %d", len(got))
	}
	for i, n := range got {
		if n != i+1 {
			t.Fatalf("delivery %d out of order: %d", i, n)
		}
	}
}

func TestSnapshotWorkerCloseIsIdempotent(t *testing.T) {
	w := NewSnapshotWorker("page_test", func(uint64, *PageSnapshot) {})
	w.Close()
	w.Close()
	w.Submit(1, ink.Drawing{})
	w.Flush()
}
