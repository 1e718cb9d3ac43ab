package ink

// Lasso is a closed freehand selection outline in page coordinates.
type Lasso []Point

// Bounds is the bounding box of the outline.
func (l Lasso) Bounds() Rect {
	if len(l) == 0 {
		return Rect{}
	}
	minX, minY := l[0].X, l[0].Y
	maxX, maxY := minX, minY
	for _, p := range l[1:] {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Contains reports whether (x, y) lies inside the outline (even-odd rule).
func (l Lasso) Contains(x, y float64) bool {
	if len(l) < 3 {
		return false
	}
	inside := false
	j := len(l) - 1
	for i := range l {
		pi, pj := l[i], l[j]
		if (pi.Y > y) != (pj.Y > y) &&
			x < (pj.X-pi.X)*(y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			inside = !inside
		}
		j = i
	}
	return inside
}

// Select returns the indices, in ascending order, of strokes that have at
// least one sample inside the outline.
func (l Lasso) Select(d Drawing) []int {
	if len(l) < 3 {
		return nil
	}
	box := l.Bounds()
	var picked []int
	for i, s := range d.strokes {
		if !box.Intersects(s.Bounds()) {
			continue
		}
		for j := range s.Points {
			if l.Contains(s.Location(j)) {
				picked = append(picked, i)
				break
			}
		}
	}
	return picked
}

// SelectionBounds is the union of the bounds of the strokes at indices.
func SelectionBounds(d Drawing, indices []int) Rect {
	var r Rect
	for _, i := range indices {
		if i < 0 || i >= d.Len() {
			continue
		}
		r = r.Union(d.strokes[i].Bounds())
	}
	return r
}
