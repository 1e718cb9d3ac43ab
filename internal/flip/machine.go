package flip

import (
	"log/slog"
	"math"
	"time"
)

// Host is the page container the machine turns pages for. The machine holds
// it as a handle and never reaches into the view hierarchy behind it.
type Host interface {
	// PageCount is the number of pages in the book.
	PageCount() int
	// CurrentIndex is the left page of the visible spread.
	CurrentIndex() int
	// GoToPagePair settles the book on the spread starting at index.
	GoToPagePair(index int)
	// UpdateProgressOffset lets surrounding containers follow the flip.
	UpdateProgressOffset(direction Direction, progress float64)
}

// Config holds the settle animation timing.
type Config struct {
	CompleteDuration time.Duration
	CancelDuration   time.Duration
	CompleteCurve    Easing
	CancelCurve      Easing
}

// DefaultConfig matches the page-turn feel of the tablet app.
func DefaultConfig() Config {
	return Config{
		CompleteDuration: 350 * time.Millisecond,
		CancelDuration:   250 * time.Millisecond,
		CompleteCurve:    EaseOut,
		CancelCurve:      EaseOut,
	}
}

// crossover is the progress at which the turning page shows its other side.
const crossover = 0.5

type settle struct {
	from, to float64
	elapsed  time.Duration
	duration time.Duration
	curve    Easing
	commit   bool
}

// Machine drives one page turn at a time:
// Idle -> FlippingToNext|FlippingToLast -> Idle.
// It is not safe for concurrent use.
type Machine struct {
	host       Host
	compositor Compositor
	cfg        Config

	state     State
	direction Direction
	target    int

	container LayerID
	front     LayerID
	back      LayerID
	crossed   bool

	anim *settle
}

func NewMachine(host Host, compositor Compositor, cfg Config) *Machine {
	return &Machine{host: host, compositor: compositor, cfg: cfg}
}

func (m *Machine) State() State { return m.state }

// Target is the spread the in-flight flip lands on.
func (m *Machine) Target() (int, bool) {
	if m.state.IsIdle() {
		return 0, false
	}
	return m.target, true
}

// Settling reports whether a complete or cancel animation is running.
func (m *Machine) Settling() bool { return m.anim != nil }

// Begin starts a flip from Idle. It is rejected while another flip is in
// flight and when either the current or the target spread does not exist.
func (m *Machine) Begin(direction Direction) bool {
	if !m.state.IsIdle() {
		slog.Debug("flip begin rejected", "reason", "busy", "phase", m.state.Phase)
		return false
	}
	pages := m.host.PageCount()
	current := m.host.CurrentIndex()
	target := current + direction.Step()
	if !pairExists(current, pages) || !pairExists(target, pages) {
		slog.Debug("flip begin rejected", "reason", "no spread", "current", current, "target", target)
		return false
	}

	// The page that turns is the visible half next to the direction of travel;
	// its reverse side is the facing page of the target spread.
	frontPage, backPage, anchor := current+1, target, AnchorLeft
	if direction == LastPage {
		frontPage, backPage, anchor = current, target+1, AnchorRight
	}
	frontPage = min(frontPage, pages-1)
	backPage = min(backPage, pages-1)

	container := m.compositor.CreateContainer(anchor)
	front, err := m.compositor.CaptureSnapshot(frontPage)
	if err != nil {
		slog.Warn("capture front page", "page", frontPage, "error", err)
		m.compositor.RemoveLayer(container)
		return false
	}
	back, err := m.compositor.CaptureSnapshot(backPage)
	if err != nil {
		slog.Warn("capture back page", "page", backPage, "error", err)
		m.compositor.RemoveLayer(front)
		m.compositor.RemoveLayer(container)
		return false
	}

	m.compositor.AddSublayer(container, back)
	m.compositor.AddSublayer(container, front)
	m.compositor.SetRotation(back, math.Pi)
	m.compositor.SetHidden(back, true)

	m.container, m.front, m.back = container, front, back
	m.crossed = false
	m.direction = direction
	m.target = target
	m.state = State{Phase: phaseFor(direction)}
	return true
}

// Update follows the gesture. progress is in [-1, 1]; only its magnitude is
// used, the sign of the rotation comes from the flip direction. Updates are
// rejected while Idle, for the other direction, or once the flip is settling.
func (m *Machine) Update(direction Direction, progress float64) bool {
	if !m.accepts(direction) {
		slog.Debug("flip update rejected", "phase", m.state.Phase, "direction", direction)
		return false
	}
	m.apply(math.Abs(progress))
	return true
}

// Complete animates the page the rest of the way over and then commits the
// target spread.
func (m *Machine) Complete(direction Direction) bool {
	if !m.accepts(direction) {
		return false
	}
	m.startSettle(1, m.cfg.CompleteDuration, m.cfg.CompleteCurve, true)
	return true
}

// Cancel animates the page back flat. The spread index does not change.
func (m *Machine) Cancel(direction Direction) bool {
	if !m.accepts(direction) {
		return false
	}
	m.startSettle(0, m.cfg.CancelDuration, m.cfg.CancelCurve, false)
	return true
}

// Tick advances a running settle animation by dt and reports whether it is
// still running. Hosts call it once per display frame.
func (m *Machine) Tick(dt time.Duration) bool {
	a := m.anim
	if a == nil {
		return false
	}
	a.elapsed += dt
	t := 1.0
	if a.duration > 0 {
		t = min(float64(a.elapsed)/float64(a.duration), 1)
	}
	m.apply(a.from + (a.to-a.from)*a.curve.Apply(t))
	if t >= 1 {
		m.finish()
		return false
	}
	return true
}

// Cleanup tears down every transient layer and returns to Idle without
// committing. It can be called from any state, any number of times.
func (m *Machine) Cleanup() {
	for _, id := range []LayerID{m.front, m.back, m.container} {
		if id != 0 {
			m.compositor.RemoveLayer(id)
		}
	}
	m.container, m.front, m.back = 0, 0, 0
	m.crossed = false
	m.anim = nil
	m.state = State{}
}

func (m *Machine) accepts(direction Direction) bool {
	if m.state.IsIdle() || m.anim != nil {
		return false
	}
	return direction == m.direction
}

func (m *Machine) apply(progress float64) {
	progress = max(0, min(progress, 1))
	m.compositor.SetRotation(m.container, m.direction.Sign()*progress*math.Pi)

	crossed := progress >= crossover
	if crossed != m.crossed {
		m.compositor.SetHidden(m.front, crossed)
		m.compositor.SetHidden(m.back, !crossed)
		m.crossed = crossed
	}

	m.state.Progress = progress
	m.host.UpdateProgressOffset(m.direction, progress)
}

func (m *Machine) startSettle(to float64, d time.Duration, curve Easing, commit bool) {
	m.anim = &settle{
		from:     m.state.Progress,
		to:       to,
		duration: d,
		curve:    curve,
		commit:   commit,
	}
	if d <= 0 {
		m.Tick(0)
	}
}

func (m *Machine) finish() {
	commit, target := m.anim.commit, m.target
	m.Cleanup()
	if commit {
		m.host.GoToPagePair(target)
	}
}

func pairExists(index, pageCount int) bool {
	return index >= 0 && index < pageCount
}
