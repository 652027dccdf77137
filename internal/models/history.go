package models

// DefaultHistoryWindow is the number of turns a client keeps between calls.
const DefaultHistoryWindow = 20

// History is the client-side running conversation window.
// It is not safe for concurrent use.
type History struct {
	window int
	turns  []Turn
}

// NewHistory creates an empty history keeping at most window turns.
// A non-positive window uses DefaultHistoryWindow.
func NewHistory(window int) *History {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	return &History{window: window}
}

// Append records one exchange and drops the oldest turns beyond the window.
func (h *History) Append(user, assistant string) {
	h.turns = append(h.turns,
		Turn{Role: RoleUser, Content: user},
		Turn{Role: RoleAssistant, Content: assistant},
	)
	if over := len(h.turns) - h.window; over > 0 {
		h.turns = append([]Turn(nil), h.turns[over:]...)
	}
}

// Turns returns a copy of the current window, oldest first.
func (h *History) Turns() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len returns the number of turns held.
func (h *History) Len() int {
	return len(h.turns)
}

// Reset clears the history.
func (h *History) Reset() {
	h.turns = nil
}
