package tool

import (
	"image/color"
	"slices"
	"sync"
	"weak"
)

type observer struct {
	id      uint64
	deliver func(State) bool
}

// Broadcaster holds the palette state shared by every canvas of a notebook
// and pushes each change to its observers. Observers are held weakly: an
// observer whose owner has been garbage collected is dropped on the next
// notification, it never has to unregister.
//
// Notification is synchronous and happens outside the lock, in registration
// order. An observer that mutates the broadcaster from its callback triggers a
// nested notification round.
type Broadcaster struct {
	mu        sync.Mutex
	state     State
	observers []observer
	nextID    uint64
}

func NewBroadcaster(initial State) *Broadcaster {
	return &Broadcaster{state: initial}
}

// Observe registers fn for owner and immediately delivers the current state.
// owner is held weakly, so fn must reach it through its first argument and
// must not capture it.
func Observe[T any](b *Broadcaster, owner *T, fn func(*T, State)) {
	ref := weak.Make(owner)
	deliver := func(s State) bool {
		o := ref.Value()
		if o == nil {
			return false
		}
		fn(o, s)
		return true
	}

	b.mu.Lock()
	b.nextID++
	b.observers = append(b.observers, observer{id: b.nextID, deliver: deliver})
	state := b.state
	b.mu.Unlock()

	deliver(state)
}

// State returns the current palette.
func (b *Broadcaster) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Broadcaster) SetTool(t Tool) {
	b.update(func(s *State) { s.Tool = t })
}

func (b *Broadcaster) SetColor(c color.NRGBA) {
	b.update(func(s *State) { s.Color = c })
}

func (b *Broadcaster) SetWidth(w float64) {
	b.update(func(s *State) { s.Width = w })
}

func (b *Broadcaster) SetPartialErase(partial bool) {
	b.update(func(s *State) { s.PartialErase = partial })
}

// Set replaces the whole palette with one notification.
func (b *Broadcaster) Set(s State) {
	b.update(func(cur *State) { *cur = s })
}

// Len reports how many registered observers are still alive.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.observers)
}

func (b *Broadcaster) update(mutate func(*State)) {
	b.mu.Lock()
	mutate(&b.state)
	state := b.state
	observers := slices.Clone(b.observers)
	b.mu.Unlock()

	var dead []uint64
	for _, o := range observers {
		if !o.deliver(state) {
			dead = append(dead, o.id)
		}
	}
	if len(dead) == 0 {
		return
	}

	b.mu.Lock()
	b.observers = slices.DeleteFunc(b.observers, func(o observer) bool {
		return slices.Contains(dead, o.id)
	})
	b.mu.Unlock()
}
