package history

import "log/slog"

// Command is an invertible edit. For every reachable surface state,
// Undo after Execute restores the state exactly.
type Command interface {
	Execute()
	Undo()
	Name() string
}

// History is a linear undo/redo timeline for one page. It is not safe for
// concurrent use; the owning page drives it from a single goroutine.
type History struct {
	undo []Command
	redo []Command
}

func New() *History {
	return &History{}
}

// Execute runs cmd, pushes it on the undo stack and discards the redo branch.
func (h *History) Execute(cmd Command) {
	cmd.Execute()
	h.undo = append(h.undo, cmd)
	clear(h.redo)
	h.redo = h.redo[:0]
}

// Undo inverts the most recent command. It reports false when there is
// nothing to undo.
func (h *History) Undo() bool {
	if len(h.undo) == 0 {
		slog.Debug("undo on empty history")
		return false
	}
	last := len(h.undo) - 1
	cmd := h.undo[last]
	h.undo[last] = nil
	h.undo = h.undo[:last]

	cmd.Undo()
	h.redo = append(h.redo, cmd)
	return true
}

// Redo re-applies the most recently undone command.
func (h *History) Redo() bool {
	if len(h.redo) == 0 {
		slog.Debug("redo on empty history")
		return false
	}
	last := len(h.redo) - 1
	cmd := h.redo[last]
	h.redo[last] = nil
	h.redo = h.redo[:last]

	cmd.Execute()
	h.undo = append(h.undo, cmd)
	return true
}

// Reset drops both stacks. The surface is left as it is.
func (h *History) Reset() {
	h.undo = nil
	h.redo = nil
}

func (h *History) CanUndo() bool  { return len(h.undo) > 0 }
func (h *History) CanRedo() bool  { return len(h.redo) > 0 }
func (h *History) UndoCount() int { return len(h.undo) }
func (h *History) RedoCount() int { return len(h.redo) }
