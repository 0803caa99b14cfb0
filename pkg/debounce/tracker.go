package debounce

// Tracker debounces one condition. It raises an alert on the first frame
// at which the whole window is true and stays quiet until a false outcome
// breaks the run.
type Tracker struct {
	window *Window
	armed  bool
}

// NewTracker creates a tracker with the given window length.
func NewTracker(window int) *Tracker {
	return &Tracker{window: NewWindow(window)}
}

// Observe records one frame outcome and reports whether a new alert fires.
func (t *Tracker) Observe(b bool) bool {
	t.window.Push(b)

	persistent := t.window.Full() && t.window.AllTrue()
	alert := persistent && !t.armed
	if alert {
		t.armed = true
	}
	if !persistent {
		t.armed = false
	}
	return alert
}

// Persistent reports whether the condition currently holds for the whole window.
func (t *Tracker) Persistent() bool {
	return t.window.Full() && t.window.AllTrue()
}

// Armed reports whether an alert has fired for the current run.
func (t *Tracker) Armed() bool {
	return t.armed
}

// Window returns the outcomes oldest first.
func (t *Tracker) Window() []bool {
	return t.window.Values()
}
