package flip

import (
	"math"
	"testing"
	"time"
)

type fakeHost struct {
	pages    int
	current  int
	gone     []int
	progress []float64
}

func (h *fakeHost) PageCount() int    { return h.pages }
func (h *fakeHost) CurrentIndex() int { return h.current }

func (h *fakeHost) GoToPagePair(index int) {
	h.gone = append(h.gone, index)
	h.current = index
}

func (h *fakeHost) UpdateProgressOffset(_ Direction, p float64) {
	h.progress = append(h.progress, p)
}

func newTestMachine(pages, current int) (*Machine, *fakeHost, *Scene) {
	host := &fakeHost{pages: pages, current: current}
	scene := NewScene(pages)
	cfg := Config{
		CompleteDuration: 100 * time.Millisecond,
		CancelDuration:   50 * time.Millisecond,
		CompleteCurve:    EaseOut,
		CancelCurve:      EaseLinear,
	}
	return NewMachine(host, scene, cfg), host, scene
}

func TestBeginComputesTarget(t *testing.T) {
	m, _, scene := newTestMachine(6, 2)
	if !m.Begin(NextPage) {
		t.Fatalf("begin should succeed")
	}
	if target, _ := m.Target(); target != 4 {
		t.Fatalf("expected target 4, got %d", target)
	}
	if m.State().Phase != FlippingToNext || m.State().Progress != 0 {
		t.Fatalf("unexpected state %+v", m.State())
	}
	if scene.Len() != 3 {
		t.Fatalf("expected container and two snapshots, got %d layers", scene.Len())
	}
	back, _ := scene.Layer(m.back)
	if back.Rotation != math.Pi || !back.Hidden || back.Page != 4 {
		t.Fatalf("back snapshot not prepared: %+v", back)
	}
	front, _ := scene.Layer(m.front)
	if front.Page != 3 || front.Hidden {
		t.Fatalf("front snapshot not prepared: %+v", front)
	}
}

func TestBeginRejectedPastLastSpread(t *testing.T) {
	m, _, scene := newTestMachine(6, 4)
	if m.Begin(NextPage) {
		t.Fatalf("target 6 is out of range")
	}
	if !m.State().IsIdle() || scene.Len() != 0 {
		t.Fatalf("rejected begin left state behind")
	}
	if !m.Begin(LastPage) {
		t.Fatalf("flipping back from 4 should work")
	}
}

func TestBeginRejectedWhileFlipping(t *testing.T) {
	m, _, _ := newTestMachine(6, 2)
	m.Begin(NextPage)
	before := m.State()
	if m.Begin(LastPage) {
		t.Fatalf("second begin should be rejected")
	}
	if m.State() != before {
		t.Fatalf("state changed on rejected begin")
	}
}

func TestUpdateRejectedWhileIdle(t *testing.T) {
	m, host, _ := newTestMachine(6, 2)
	if m.Update(NextPage, 0.3) {
		t.Fatalf("update while idle should be rejected")
	}
	if len(host.progress) != 0 {
		t.Fatalf("idle update reached host")
	}
}

func TestUpdateCrossover(t *testing.T) {
	m, host, scene := newTestMachine(6, 2)
	m.Begin(NextPage)

	m.Update(NextPage, -0.25)
	c, _ := scene.Layer(m.container)
	if math.Abs(c.Rotation+0.25*math.Pi) > 1e-12 {
		t.Fatalf("unexpected rotation %v", c.Rotation)
	}
	if f, _ := scene.Layer(m.front); f.Hidden {
		t.Fatalf("front hidden before halfway")
	}

	m.Update(NextPage, -0.5)
	f, _ := scene.Layer(m.front)
	b, _ := scene.Layer(m.back)
	if !f.Hidden || b.Hidden {
		t.Fatalf("crossover did not swap visibility")
	}
	if got := host.progress[len(host.progress)-1]; got != 0.5 {
		t.Fatalf("host got progress %v", got)
	}
	if m.Update(LastPage, 0.6) {
		t.Fatalf("update for the other direction should be rejected")
	}
}

func TestCompleteCommitsAfterAnimation(t *testing.T) {
	m, host, scene := newTestMachine(6, 2)
	m.Begin(NextPage)
	m.Update(NextPage, -0.6)
	if !m.Complete(NextPage) {
		t.Fatalf("complete should be accepted")
	}
	if m.Update(NextPage, -0.7) {
		t.Fatalf("update while settling should be rejected")
	}
	if !m.Tick(50 * time.Millisecond) {
		t.Fatalf("animation should still run at half time")
	}
	if len(host.gone) != 0 {
		t.Fatalf("committed before animation finished")
	}
	if m.Tick(60 * time.Millisecond) {
		t.Fatalf("animation should be done")
	}
	if len(host.gone) != 1 || host.gone[0] != 4 {
		t.Fatalf("expected commit to 4, got %v", host.gone)
	}
	if !m.State().IsIdle() || scene.Len() != 0 {
		t.Fatalf("flip not torn down")
	}
	if host.progress[len(host.progress)-1] != 1 {
		t.Fatalf("final progress should be 1")
	}
}

func TestCancelReturnsWithoutCommit(t *testing.T) {
	m, host, scene := newTestMachine(6, 2)
	m.Begin(LastPage)
	m.Update(LastPage, 0.3)
	m.Cancel(LastPage)
	for m.Tick(10 * time.Millisecond) {
	}
	if len(host.gone) != 0 || host.current != 2 {
		t.Fatalf("cancel changed the spread")
	}
	if !m.State().IsIdle() || scene.Len() != 0 {
		t.Fatalf("cancel did not tear down")
	}
}

func TestZeroDurationSettlesImmediately(t *testing.T) {
	host := &fakeHost{pages: 6, current: 0}
	m := NewMachine(host, NewScene(6), Config{})
	m.Begin(NextPage)
	m.Complete(NextPage)
	if !m.State().IsIdle() || host.current != 2 {
		t.Fatalf("zero duration complete should commit at once")
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	m, _, scene := newTestMachine(6, 2)
	m.Cleanup()
	m.Begin(NextPage)
	m.Complete(NextPage)
	m.Cleanup()
	m.Cleanup()
	if !m.State().IsIdle() || m.Settling() || scene.Len() != 0 {
		t.Fatalf("cleanup did not reset")
	}
	if !m.Begin(NextPage) {
		t.Fatalf("machine should accept a new flip after cleanup")
	}
}

func TestDecide(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		velocity, progress float64
		want               bool
	}{
		{0, 0.3, false},
		{0, 0.5, true},
		{-900, 0.1, true},
		{500, -0.499, false},
		{0, -0.6, true},
	}
	for _, tt := range tests {
		if got := Decide(tt.velocity, tt.progress, th); got != tt.want {
			t.Fatalf("Decide(%v, %v) = %v, want %v", tt.velocity, tt.progress, got, tt.want)
		}
	}
}

func TestEasingEndpoints(t *testing.T) {
	for _, e := range []Easing{EaseLinear, EaseIn, EaseOut, EaseInOut, EaseCubicOut} {
		if e.Apply(0) != 0 || e.Apply(1) != 1 {
			t.Fatalf("%s does not map endpoints", e)
		}
	}
}
