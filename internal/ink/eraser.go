package ink

import "math"

// Hit returns the indices, ascending, of strokes touched by an eraser dragged
// along path. A stroke is touched when any of its samples lies within radius
// plus half its width of an eraser sample or of the segment between two.
func Hit(d Drawing, path []Point, radius float64) []int {
	if len(path) == 0 {
		return nil
	}
	sweep := Lasso(path).Bounds().Inset(radius)
	var hit []int
	for i, s := range d.strokes {
		if !sweep.Intersects(s.Bounds()) {
			continue
		}
		reach := radius + s.Width/2
		for j := range s.Points {
			x, y := s.Location(j)
			if pathDistance(path, x, y) <= reach {
				hit = append(hit, i)
				break
			}
		}
	}
	return hit
}

func pathDistance(path []Point, x, y float64) float64 {
	if len(path) == 1 {
		return math.Hypot(x-path[0].X, y-path[0].Y)
	}
	best := math.Inf(1)
	for i := 1; i < len(path); i++ {
		best = min(best, segmentDistance(path[i-1], path[i], x, y))
	}
	return best
}

func segmentDistance(a, b Point, x, y float64) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(x-a.X, y-a.Y)
	}
	t := max(0, min(((x-a.X)*dx+(y-a.Y)*dy)/l2, 1))
	return math.Hypot(x-(a.X+t*dx), y-(a.Y+t*dy))
}
