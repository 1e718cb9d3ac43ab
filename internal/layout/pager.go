package layout

import (
	"log/slog"

	"github.com/inkbook/inkbook/internal/flip"
)

// Host is the scrolling page container the pager works on.
type Host interface {
	// CurrentContentWidth is the on-screen width of one page, in points.
	CurrentContentWidth() float64
}

// Flipper is the part of the flip machine a pager drives.
type Flipper interface {
	Begin(direction flip.Direction) bool
	Update(direction flip.Direction, progress float64) bool
	Complete(direction flip.Direction) bool
	Cancel(direction flip.Direction) bool
}

// Pager turns horizontal pan translations into flip machine calls. A pan
// that starts moving left turns to the next spread, one moving right turns
// back. The direction is fixed by the first non-zero translation.
type Pager struct {
	host       Host
	flipper    Flipper
	thresholds flip.Thresholds

	panning   bool
	started   bool
	direction flip.Direction
	progress  float64
}

func NewPager(host Host, flipper Flipper, th flip.Thresholds) *Pager {
	return &Pager{host: host, flipper: flipper, thresholds: th}
}

// Active reports whether a pan is being tracked.
func (p *Pager) Active() bool { return p.panning }

// Progress is the signed progress last passed to the machine.
func (p *Pager) Progress() float64 { return p.progress }

func (p *Pager) PanBegan() {
	p.panning = true
	p.started = false
	p.progress = 0
}

// PanChanged feeds the cumulative horizontal translation of the pan.
func (p *Pager) PanChanged(translationX float64) {
	if !p.panning {
		return
	}
	if !p.started {
		if translationX == 0 {
			return
		}
		dir := flip.NextPage
		if translationX > 0 {
			dir = flip.LastPage
		}
		if !p.flipper.Begin(dir) {
			// Nothing to turn to; swallow the rest of this pan.
			p.panning = false
			return
		}
		p.direction = dir
		p.started = true
	}
	p.progress = p.clamp(translationX / p.width())
	p.flipper.Update(p.direction, p.progress)
}

// PanEnded decides from the release velocity and distance whether the flip
// completes or falls back. It reports whether the flip was committed.
func (p *Pager) PanEnded(translationX, velocityX float64) bool {
	if !p.panning {
		return false
	}
	p.panning = false
	if !p.started {
		return false
	}
	p.progress = p.clamp(translationX / p.width())
	commit := flip.Decide(velocityX, p.progress, p.thresholds)
	if commit {
		p.flipper.Complete(p.direction)
	} else {
		p.flipper.Cancel(p.direction)
	}
	slog.Debug("pan ended", "direction", p.direction, "progress", p.progress, "velocity", velocityX, "commit", commit)
	return commit
}

// clamp keeps progress on the half of [-1, 1] that belongs to the direction
// the pan started with.
func (p *Pager) clamp(v float64) float64 {
	if p.direction == flip.NextPage {
		return max(-1, min(v, 0))
	}
	return max(0, min(v, 1))
}

func (p *Pager) width() float64 {
	w := p.host.CurrentContentWidth()
	if w <= 0 {
		return 1
	}
	return w
}
