package layout

// Offset is the displacement of one page-pair container from the spine.
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Layout is the geometry of every container for one visible spread.
type Layout struct {
	Active  int      `json:"active"`
	Offsets []Offset `json:"offsets"`
}

// Engine stacks page-pair containers around the visible spread. Containers
// further from the open spread sit deeper in the stack, one BaseOffset per
// container of distance.
type Engine struct {
	ContainerCount int
	BaseOffset     float64
}

// ActiveContainer maps the left page index of a spread to its container.
func ActiveContainer(currentIndex int) int {
	return currentIndex / 2
}

// Compute returns the layout for the spread whose left page is currentIndex.
// The index is clamped to the book.
func (e Engine) Compute(currentIndex int) Layout {
	n := e.ContainerCount
	if n <= 0 {
		return Layout{}
	}
	active := max(0, min(ActiveContainer(currentIndex), n-1))

	offsets := make([]Offset, n)
	for i := range offsets {
		d := i - active
		offsets[i] = Offset{
			X: float64(d) * e.BaseOffset,
			Y: float64(abs(d)) * e.BaseOffset,
		}
	}

	// With a cover exposed, the cover on the far side of the book has no page
	// behind it and rests at the depth of its inner neighbour.
	if n >= 2 {
		switch active {
		case 0:
			offsets[n-1].Y = offsets[n-2].Y
		case n - 1:
			offsets[0].Y = offsets[1].Y
		}
	}
	return Layout{Active: active, Offsets: offsets}
}

// Interpolate blends two layouts with t in [0, 1]. Layouts of different
// sizes are blended over the shorter one and take the rest from to.
func Interpolate(from, to Layout, t float64) Layout {
	t = max(0, min(t, 1))
	out := Layout{Active: to.Active, Offsets: make([]Offset, len(to.Offsets))}
	copy(out.Offsets, to.Offsets)
	for i := range min(len(from.Offsets), len(to.Offsets)) {
		a, b := from.Offsets[i], to.Offsets[i]
		out.Offsets[i] = Offset{
			X: a.X + (b.X-a.X)*t,
			Y: a.Y + (b.Y-a.Y)*t,
		}
	}
	if t < 0.5 {
		out.Active = from.Active
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
