package chat

// History is the replay buffer of broadcast wire lines, sent in full to every
// new login before the live stream begins. It is owned by the registry
// goroutine and never accessed concurrently.
type History struct {
	lines []string
}

// Append records line unless it is byte-identical to the most recent entry,
// so an immediate re-broadcast of the same line replays only once.
func (h *History) Append(line string) bool {
	if n := len(h.lines); n > 0 && h.lines[n-1] == line {
		return false
	}
	h.lines = append(h.lines, line)
	return true
}

// Lines returns the buffer in append order. Callers must not mutate it.
func (h *History) Lines() []string { return h.lines }

func (h *History) Len() int { return len(h.lines) }
