// Package history maintains a bounded undo/redo model over document
// snapshots. The top of the past stack always mirrors the current canonical
// document; undo therefore returns the entry below the top, or the session
// baseline once the stack is exhausted.
package history

import (
	"sync"
	"time"

	"resume-sync/internal/document"
)

const maxEntries = 100

type state int

const (
	stateIdle state = iota
	stateRecording
)

// Manager owns the past/future stacks. Rapid consecutive pushes are coalesced
// into a single entry after a quiet period so undo granularity matches logical
// edits, not keystrokes. Undo and Redo are only valid from the idle state; both
// flush any pending entry first.
type Manager struct {
	mu       sync.Mutex
	delay    time.Duration
	baseline document.Document
	past     []document.Document
	future   []document.Document
	pending  *document.Document
	timer    *time.Timer
	st       state
}

// NewManager constructs a manager coalescing pushes within delay. A zero or
// negative delay disables coalescing and commits every push immediately.
func NewManager(delay time.Duration) *Manager {
	return &Manager{delay: delay, baseline: document.Empty()}
}

// Push snapshots doc as a history candidate. The entry is committed once no
// further push arrives within the coalescing window; a burst of pushes yields
// one entry holding the last state. Callers are responsible for attribution:
// only organic user edits may be pushed.
func (m *Manager) Push(doc document.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := doc.Clone()
	m.pending = &snap
	m.st = stateRecording

	if m.delay <= 0 {
		m.commitLocked()
		return
	}
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.delay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.commitLocked()
	})
}

// Set replaces the current position. With skip=true the document becomes the
// new undo baseline: the stacks are cleared, any pending entry is discarded
// and undoing past the first subsequent edit returns to this document.
// Used for programmatic loads and one-shot imports, which must not be
// undoable. With skip=false it behaves like Push.
func (m *Manager) Set(doc document.Document, skip bool) {
	if !skip {
		m.Push(doc)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTimerLocked()
	m.pending = nil
	m.baseline = doc.Clone()
	m.past = m.past[:0]
	m.future = m.future[:0]
	m.st = stateIdle
}

// Undo flushes any pending entry, moves the top of past to future and returns
// the new top of past, or the baseline when past is exhausted. The boolean is
// false when there was nothing to undo.
func (m *Manager) Undo() (document.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushLocked()

	if len(m.past) == 0 {
		return m.baseline.Clone(), false
	}
	top := m.past[len(m.past)-1]
	m.past = m.past[:len(m.past)-1]
	m.future = append(m.future, top)

	if len(m.past) == 0 {
		return m.baseline.Clone(), true
	}
	return m.past[len(m.past)-1].Clone(), true
}

// Redo is the inverse of Undo; false when future is empty.
func (m *Manager) Redo() (document.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushLocked()

	if len(m.future) == 0 {
		return document.Empty(), false
	}
	top := m.future[len(m.future)-1]
	m.future = m.future[:len(m.future)-1]
	m.past = append(m.past, top)
	return top.Clone(), true
}

// CanUndo reports whether an undo would change state.
func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.past) > 0 || m.pending != nil
}

// CanRedo reports whether a redo would change state.
func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.future) > 0 && m.pending == nil
}

// Depth returns the number of committed past entries. Pending entries are not
// counted until the quiet period elapses.
func (m *Manager) Depth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.past)
}

// Flush commits a pending entry immediately instead of waiting out the quiet
// period. Called on session close so an in-flight keystroke burst is not lost.
func (m *Manager) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushLocked()
}

func (m *Manager) flushLocked() {
	m.stopTimerLocked()
	if m.pending != nil {
		m.commitLocked()
	}
}

func (m *Manager) commitLocked() {
	if m.pending == nil {
		m.st = stateIdle
		return
	}
	m.past = append(m.past, *m.pending)
	if len(m.past) > maxEntries {
		m.past = m.past[len(m.past)-maxEntries:]
	}
	m.future = m.future[:0]
	m.pending = nil
	m.st = stateIdle
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}
