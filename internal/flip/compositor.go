package flip

import (
	"fmt"
	"slices"
)

// LayerID is a non-owning handle to a layer held by a Compositor.
type LayerID uint64

// Anchor is the edge of the flip container that sits on the book spine.
type Anchor int

const (
	AnchorLeft Anchor = iota
	AnchorRight
)

// DefaultPerspective is the m34 entry given to flip containers.
const DefaultPerspective = -1.0 / 2000

// Compositor owns the transient layers of a flip. The machine only keeps
// LayerID handles, so it never holds on to a view.
type Compositor interface {
	// CaptureSnapshot returns a layer holding a still image of page.
	CaptureSnapshot(page int) (LayerID, error)
	// CreateContainer returns a 3D perspective layer anchored on the spine.
	CreateContainer(anchor Anchor) LayerID
	AddSublayer(parent, child LayerID)
	SetRotation(layer LayerID, radians float64)
	SetHidden(layer LayerID, hidden bool)
	// RemoveLayer detaches layer and its sublayers. Unknown ids are ignored.
	RemoveLayer(layer LayerID)
}

// Layer is one node of a Scene.
type Layer struct {
	ID          LayerID   `json:"id"`
	Page        int       `json:"page"`
	Container   bool      `json:"container"`
	Anchor      Anchor    `json:"anchor"`
	Perspective float64   `json:"perspective,omitempty"`
	Rotation    float64   `json:"rotation"`
	Hidden      bool      `json:"hidden"`
	Parent      LayerID   `json:"parent,omitempty"`
	Children    []LayerID `json:"children,omitempty"`
}

// Scene is an in-memory Compositor. The server streams its layers to clients
// that do the actual drawing, and tests inspect it directly.
type Scene struct {
	pageCount int
	layers    map[LayerID]*Layer
	next      LayerID
}

// NewScene returns an empty scene for a notebook of pageCount pages.
func NewScene(pageCount int) *Scene {
	return &Scene{pageCount: pageCount, layers: make(map[LayerID]*Layer)}
}

func (s *Scene) CaptureSnapshot(page int) (LayerID, error) {
	if page < 0 || page >= s.pageCount {
		return 0, fmt.Errorf("capture page %d: out of range", page)
	}
	l := s.add(&Layer{Page: page})
	return l.ID, nil
}

func (s *Scene) CreateContainer(anchor Anchor) LayerID {
	l := s.add(&Layer{Page: -1, Container: true, Anchor: anchor, Perspective: DefaultPerspective})
	return l.ID
}

func (s *Scene) AddSublayer(parent, child LayerID) {
	p, ok := s.layers[parent]
	if !ok {
		return
	}
	c, ok := s.layers[child]
	if !ok {
		return
	}
	c.Parent = parent
	p.Children = append(p.Children, child)
}

func (s *Scene) SetRotation(layer LayerID, radians float64) {
	if l, ok := s.layers[layer]; ok {
		l.Rotation = radians
	}
}

func (s *Scene) SetHidden(layer LayerID, hidden bool) {
	if l, ok := s.layers[layer]; ok {
		l.Hidden = hidden
	}
}

func (s *Scene) RemoveLayer(layer LayerID) {
	l, ok := s.layers[layer]
	if !ok {
		return
	}
	for _, child := range l.Children {
		s.RemoveLayer(child)
	}
	if p, ok := s.layers[l.Parent]; ok {
		p.Children = slices.DeleteFunc(p.Children, func(id LayerID) bool { return id == layer })
	}
	delete(s.layers, layer)
}

// Layer returns a copy of the layer with the given id.
func (s *Scene) Layer(id LayerID) (Layer, bool) {
	l, ok := s.layers[id]
	if !ok {
		return Layer{}, false
	}
	out := *l
	out.Children = slices.Clone(l.Children)
	return out, true
}

// Layers returns copies of every live layer ordered by id.
func (s *Scene) Layers() []Layer {
	out := make([]Layer, 0, len(s.layers))
	for _, l := range s.layers {
		c := *l
		c.Children = slices.Clone(l.Children)
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Layer) int { return int(a.ID) - int(b.ID) })
	return out
}

func (s *Scene) Len() int { return len(s.layers) }

func (s *Scene) add(l *Layer) *Layer {
	s.next++
	l.ID = s.next
	s.layers[l.ID] = l
	return l
}
