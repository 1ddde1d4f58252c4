package list

import (
	"sync"
	"time"
)

// DebounceState is the lifecycle of a search input between keystrokes.
type DebounceState string

const (
	DebounceIdle      DebounceState = "idle"
	DebouncePending   DebounceState = "pending"
	DebounceCommitted DebounceState = "committed"
)

// DefaultDebounce is the delay between the last keystroke and the
// committed search value.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer holds back rapid search edits and commits the latest value
// once input has been quiet for the configured delay. Each new Input
// call cancels the previous pending timer, so only the final value in a
// burst is ever committed.
type Debouncer struct {
	mu        sync.Mutex
	delay     time.Duration
	state     DebounceState
	pending   string
	committed string
	timer     *time.Timer
	onCommit  func(string)
	closed    bool
}

// NewDebouncer builds a debouncer that invokes onCommit with each
// committed value. A non-positive delay falls back to DefaultDebounce.
func NewDebouncer(delay time.Duration, onCommit func(string)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{
		delay:    delay,
		state:    DebounceIdle,
		onCommit: onCommit,
	}
}

// Input records a new raw value and restarts the quiet-period timer.
func (d *Debouncer) Input(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.pending = value
	d.state = DebouncePending
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if d.closed || d.state != DebouncePending {
		d.mu.Unlock()
		return
	}
	d.committed = d.pending
	d.state = DebounceCommitted
	cb := d.onCommit
	value := d.committed
	d.mu.Unlock()

	if cb != nil {
		cb(value)
	}
}

// Flush commits the pending value immediately, skipping the timer.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
	d.fire()
}

// Committed returns the last committed value.
func (d *Debouncer) Committed() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.committed
}

// State reports where the debouncer is in its lifecycle.
func (d *Debouncer) State() DebounceState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Close cancels any pending commit. Safe to call more than once.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.closed = true
	d.state = DebounceIdle
}
