package sim

// TimerHandle identifies a scheduled callback so it can be cancelled before
// it fires. The zero handle is never issued.
type TimerHandle int

type timerEntry struct {
	handle    TimerHandle
	remaining float32
	fn        func()
}

// Timers is a frame-driven callback queue. Callbacks fire inside Advance on
// the simulation goroutine, so they never race the scene and Cancel is
// synchronous: after Cancel returns the callback will not run.
type Timers struct {
	next    TimerHandle
	entries []timerEntry
}

func NewTimers() *Timers {
	return &Timers{next: 1}
}

// Schedule runs fn once after delay seconds of simulated time.
func (t *Timers) Schedule(delay float32, fn func()) TimerHandle {
	if delay < 0 {
		delay = 0
	}
	h := t.next
	t.next++
	t.entries = append(t.entries, timerEntry{handle: h, remaining: delay, fn: fn})
	return h
}

// Cancel drops a pending timer. Unknown or already fired handles are a no-op.
func (t *Timers) Cancel(h TimerHandle) {
	for i := range t.entries {
		if t.entries[i].handle == h {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return
		}
	}
}

// Advance counts every pending timer down by delta seconds and fires the due
// ones in scheduling order. Due timers are removed before any callback runs,
// so a callback may schedule or cancel freely; timers it schedules start
// counting on the next Advance.
func (t *Timers) Advance(delta float32) {
	if delta <= 0 {
		return
	}
	var due []func()
	kept := t.entries[:0]
	for _, e := range t.entries {
		e.remaining -= delta
		if e.remaining <= 0 {
			due = append(due, e.fn)
		} else {
			kept = append(kept, e)
		}
	}
	t.entries = kept
	for _, fn := range due {
		fn()
	}
}

func (t *Timers) Pending() int {
	return len(t.entries)
}

// Reset drops all pending timers without firing them.
func (t *Timers) Reset() {
	t.entries = t.entries[:0]
}
