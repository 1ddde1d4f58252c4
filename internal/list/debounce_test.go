package list

import (
	"sync"
	"testing"
	"time"
)

// commits collects committed values thread-safely.
type commits struct {
	mu     sync.Mutex
	values []string
}

func (c *commits) add(v string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = append(c.values, v)
}

func (c *commits) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.values...)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestDebouncerCommitsOnlyFinalValue(t *testing.T) {
	var got commits
	d := NewDebouncer(30*time.Millisecond, got.add)
	defer d.Close()

	// A burst of keystrokes faster than the quiet window.
	d.Input("c")
	d.Input("ca")
	d.Input("cas")
	d.Input("casa")

	if d.State() != DebouncePending {
		t.Fatalf("state during burst = %s, want pending", d.State())
	}

	waitFor(t, time.Second, func() bool { return len(got.snapshot()) > 0 })

	values := got.snapshot()
	if len(values) != 1 || values[0] != "casa" {
		t.Errorf("committed values = %v, want [casa]", values)
	}
	if d.Committed() != "casa" {
		t.Errorf("Committed() = %q, want %q", d.Committed(), "casa")
	}
	if d.State() != DebounceCommitted {
		t.Errorf("state after commit = %s, want committed", d.State())
	}
}

func TestDebouncerNewInputCancelsPending(t *testing.T) {
	var got commits
	d := NewDebouncer(40*time.Millisecond, got.add)
	defer d.Close()

	d.Input("prima")
	time.Sleep(20 * time.Millisecond)
	d.Input("seconda") // restarts the window before "prima" fires

	waitFor(t, time.Second, func() bool { return len(got.snapshot()) > 0 })

	values := got.snapshot()
	if len(values) != 1 || values[0] != "seconda" {
		t.Errorf("committed values = %v, want [seconda]", values)
	}
}

func TestDebouncerFlush(t *testing.T) {
	var got commits
	d := NewDebouncer(time.Hour, got.add)
	defer d.Close()

	d.Input("subito")
	d.Flush()

	values := got.snapshot()
	if len(values) != 1 || values[0] != "subito" {
		t.Errorf("Flush() committed %v, want [subito]", values)
	}
}

func TestDebouncerCloseCancelsPending(t *testing.T) {
	var got commits
	d := NewDebouncer(30*time.Millisecond, got.add)

	d.Input("mai")
	d.Close()
	d.Close() // second close must be a no-op

	time.Sleep(60 * time.Millisecond)
	if values := got.snapshot(); len(values) != 0 {
		t.Errorf("closed debouncer still committed %v", values)
	}
	if d.State() != DebounceIdle {
		t.Errorf("state after close = %s, want idle", d.State())
	}

	// Input after close is ignored.
	d.Input("dopo")
	if d.State() != DebounceIdle {
		t.Errorf("closed debouncer accepted input")
	}
}

func TestDebouncerDefaultDelay(t *testing.T) {
	d := NewDebouncer(0, nil)
	defer d.Close()
	if d.delay != DefaultDebounce {
		t.Errorf("delay = %v, want %v", d.delay, DefaultDebounce)
	}
}
