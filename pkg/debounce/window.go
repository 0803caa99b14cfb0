package debounce

// Window is a fixed-capacity FIFO of boolean frame outcomes. Pushing onto
// a full window drops the oldest entry.
type Window struct {
	buf   []bool
	start int
	n     int
}

// NewWindow creates a window holding up to size outcomes. size < 1 is
// treated as 1.
func NewWindow(size int) *Window {
	if size < 1 {
		size = 1
	}
	return &Window{buf: make([]bool, size)}
}

// Push appends an outcome, evicting the oldest when full.
func (w *Window) Push(v bool) {
	if w.n < len(w.buf) {
		w.buf[(w.start+w.n)%len(w.buf)] = v
		w.n++
		return
	}
	w.buf[w.start] = v
	w.start = (w.start + 1) % len(w.buf)
}

// Cap returns the window capacity.
func (w *Window) Cap() int { return len(w.buf) }

// Len returns the number of outcomes held.
func (w *Window) Len() int { return w.n }

// Full reports whether the window holds Cap outcomes.
func (w *Window) Full() bool { return w.n == len(w.buf) }

// AllTrue reports whether every held outcome is true. An empty window is
// not all-true.
func (w *Window) AllTrue() bool {
	if w.n == 0 {
		return false
	}
	for i := 0; i < w.n; i++ {
		if !w.buf[(w.start+i)%len(w.buf)] {
			return false
		}
	}
	return true
}

// Values returns the outcomes oldest first.
func (w *Window) Values() []bool {
	out := make([]bool, w.n)
	for i := range out {
		out[i] = w.buf[(w.start+i)%len(w.buf)]
	}
	return out
}
