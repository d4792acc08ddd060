package document

import (
	"sync"
)

// Source identifies which of the update paths produced a mutation. Listeners
// use it to decide whether a mutation is an organic user edit or a programmatic
// replacement that must not re-trigger history recording or re-broadcast.
type Source string

const (
	// SourceUser is a direct user edit arriving through the editor.
	SourceUser Source = "user"
	// SourceLoad is the initial session load from remote or cache.
	SourceLoad Source = "load"
	// SourceHistory is an undo/redo navigation being applied.
	SourceHistory Source = "history"
	// SourceRemote is a collaborator's edit delivered over the room channel.
	SourceRemote Source = "remote"
	// SourceImport is a one-shot import (upload, wizard).
	SourceImport Source = "import"
)

// ApplyOptions controls the side effects of a Store.Apply call.
type ApplyOptions struct {
	Source        Source
	RecordHistory bool
	Broadcast     bool
}

// UserEdit returns the default options for an organic edit: recorded in
// history and broadcast to the room.
func UserEdit() ApplyOptions {
	return ApplyOptions{Source: SourceUser, RecordHistory: true, Broadcast: true}
}

// Listener observes canonical document replacements. The document handed to a
// listener is a private deep copy.
type Listener func(doc Document, opts ApplyOptions)

// Store is the single source of truth for the current resume document. All
// five update paths funnel through Apply; calls are strictly serialized so two
// mutations can never interleave mid-apply.
type Store struct {
	mu        sync.Mutex
	current   Document
	listeners []Listener
}

// NewStore returns a store holding the empty baseline document.
func NewStore() *Store {
	return &Store{current: Empty()}
}

// Subscribe registers a listener for every apply. Must be called during
// wiring, before the first mutation.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Apply normalizes doc, replaces the canonical document and fans out to the
// listeners. The mutation is all-or-nothing: listeners only ever observe a
// fully normalized, fully stored document. The store mutex is held across the
// fan-out, which keeps Apply calls strictly sequential; listeners must not
// call back into Apply on the same store.
func (s *Store) Apply(doc Document, opts ApplyOptions) Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := Normalize(doc)
	s.current = normalized
	for _, l := range s.listeners {
		l(normalized.Clone(), opts)
	}
	return normalized
}

// Current returns a deep copy of the canonical document.
func (s *Store) Current() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}
