package crop

import (
	"sync"
	"time"
)

// DefaultQuietPeriod is how long the widget state must hold still before it is
// committed as an undo step.
const DefaultQuietPeriod = 600 * time.Millisecond

// Origin tells the history who produced an observed state.
type Origin int

const (
	// UserEdit is a drag, zoom or aspect change made by the user.
	UserEdit Origin = iota
	// Programmatic is a state the editor set itself, such as the echo of an
	// undo. It replaces the current state without being recorded.
	Programmatic
)

func (o Origin) String() string {
	if o == Programmatic {
		return "programmatic"
	}
	return "user"
}

// stopper is the part of *time.Timer the history uses.
type stopper interface {
	Stop() bool
}

// pendingCommit is the PendingCommit state: a candidate waiting for its quiet
// period to elapse. A nil *pendingCommit is the Idle state.
type pendingCommit struct {
	timer     stopper
	candidate Snapshot
	seq       uint64
}

// State is a read-only view of the history.
type State struct {
	Current Snapshot `json:"current"`
	Live    Snapshot `json:"live"`
	Pending bool     `json:"pending"`
	CanUndo bool     `json:"can_undo"`
	CanRedo bool     `json:"can_redo"`
	Past    int      `json:"past"`
	Future  int      `json:"future"`
}

// History records debounced crop edits for undo and redo. Past is ordered
// oldest first, future soonest-redo first.
type History struct {
	mu      sync.Mutex
	quiet   time.Duration
	current Snapshot
	past    []Snapshot
	future  []Snapshot
	pending *pendingCommit
	seq     uint64
	closed  bool

	onCommit  func(State)
	afterFunc func(time.Duration, func()) stopper
}

// Option configures a History.
type Option func(*History)

// WithCommitHook registers fn to run after every debounced commit. It is called
// without the history lock held.
func WithCommitHook(fn func(State)) Option {
	return func(h *History) { h.onCommit = fn }
}

// NewHistory opens a history whose baseline is the state the editor opened
// with. The baseline is not an undo step.
func NewHistory(baseline Snapshot, quiet time.Duration, opts ...Option) *History {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	h := &History{
		quiet:   quiet,
		current: baseline.Normalize(),
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Observe feeds one widget state into the history.
func (h *History) Observe(s Snapshot, origin Origin) {
	s = s.Normalize()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	if origin == Programmatic {
		h.cancelPendingLocked()
		h.current = s
		return
	}

	if s == h.current {
		// Back to the committed state: nothing to record.
		h.cancelPendingLocked()
		return
	}
	if h.pending != nil && h.pending.candidate == s {
		return
	}

	h.cancelPendingLocked()
	h.seq++
	seq := h.seq
	h.pending = &pendingCommit{
		candidate: s,
		seq:       seq,
	}
	h.pending.timer = h.afterFunc(h.quiet, func() { h.fire(seq) })
}

// fire runs when a quiet period elapses.
func (h *History) fire(seq uint64) {
	h.mu.Lock()
	if h.closed || h.pending == nil || h.pending.seq != seq {
		h.mu.Unlock()
		return
	}
	committed := h.commitPendingLocked()
	state := h.stateLocked()
	hook := h.onCommit
	h.mu.Unlock()

	if committed && hook != nil {
		hook(state)
	}
}

// Undo steps back one committed state. A pending edit is committed first so
// that it is the step being undone.
func (h *History) Undo() (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.commitPendingLocked()
	if len(h.past) == 0 {
		return h.current, false
	}
	last := len(h.past) - 1
	h.future = append([]Snapshot{h.current}, h.future...)
	h.current = h.past[last]
	h.past = h.past[:last]
	return h.current, true
}

// Redo re-applies the most recently undone state.
func (h *History) Redo() (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.commitPendingLocked()
	if len(h.future) == 0 {
		return h.current, false
	}
	h.past = append(h.past, h.current)
	h.current = h.future[0]
	h.future = h.future[1:]
	return h.current, true
}

// Current returns the last committed state.
func (h *History) Current() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// Live returns the state the widget is showing: the pending candidate if there
// is one, otherwise the committed state.
func (h *History) Live() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pending != nil {
		return h.pending.candidate
	}
	return h.current
}

// CanUndo reports whether Undo would change the state.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.past) > 0 || (h.pending != nil && h.pending.candidate != h.current)
}

// CanRedo reports whether Redo would change the state.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.future) > 0 && h.pending == nil
}

// State returns a snapshot of the whole history.
func (h *History) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stateLocked()
}

// Close stops any pending timer. Observations after Close are ignored.
func (h *History) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cancelPendingLocked()
	h.closed = true
}

func (h *History) stateLocked() State {
	st := State{
		Current: h.current,
		Live:    h.current,
		Pending: h.pending != nil,
		CanUndo: len(h.past) > 0,
		CanRedo: len(h.future) > 0 && h.pending == nil,
		Past:    len(h.past),
		Future:  len(h.future),
	}
	if h.pending != nil {
		st.Live = h.pending.candidate
		st.CanUndo = true
	}
	return st
}

// commitPendingLocked moves the pending candidate onto the stack. A new commit
// discards the redo branch.
func (h *History) commitPendingLocked() bool {
	if h.pending == nil {
		return false
	}
	candidate := h.pending.candidate
	h.cancelPendingLocked()
	if candidate == h.current {
		return false
	}
	h.past = append(h.past, h.current)
	h.current = candidate
	h.future = nil
	return true
}

func (h *History) cancelPendingLocked() {
	if h.pending == nil {
		return
	}
	if h.pending.timer != nil {
		h.pending.timer.Stop()
	}
	h.pending = nil
}
