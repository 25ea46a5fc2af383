package domain

// HistoryTurn is one exchange in a user's conversation history.
type HistoryTurn struct {
	Role    string
	Content string
}

// History is a sliding window of recent exchanges, used as context for
// the keyword suggestion prompt. Oldest turns drop first.
type History struct {
	Turns []HistoryTurn
	Max   int
}

// Add appends a turn, evicting the oldest when over capacity.
func (h *History) Add(role, content string) {
	h.Turns = append(h.Turns, HistoryTurn{Role: role, Content: content})
	if h.Max > 0 && len(h.Turns) > h.Max {
		h.Turns = h.Turns[len(h.Turns)-h.Max:]
	}
}

// Recent returns up to limit of the latest turns.
func (h *History) Recent(limit int) []HistoryTurn {
	if limit <= 0 || len(h.Turns) <= limit {
		return h.Turns
	}
	return h.Turns[len(h.Turns)-limit:]
}
