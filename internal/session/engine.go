// Package session composes the document store, history manager, persistence
// bridge and collaboration synchronizer into one editing session.
package session

import (
	"context"
	"time"

	"resume-sync/internal/collab"
	"resume-sync/internal/document"
	"resume-sync/internal/history"
	"resume-sync/internal/persistence"
	"resume-sync/internal/remotedoc"
	"resume-sync/internal/shared/metrics"
	"resume-sync/internal/shared/telemetry"
)

// Deps are the shared resources every engine draws on. Remote and Importer
// may be nil; the matching load rules are then skipped.
type Deps struct {
	Cache        persistence.KeyValueStore
	Remote       persistence.RemoteClient
	Importer     persistence.StagedImporter
	Channel      collab.Channel
	WriteDelay   time.Duration
	HistoryDelay time.Duration
}

// Engine owns one editing session. All mutations funnel through the store;
// the engine's listener decides, per mutation source, which side effects run:
// user edits are recorded and broadcast, programmatic replacements are not.
type Engine struct {
	id    string
	owner string

	store   *document.Store
	history *history.Manager
	bridge  *persistence.Bridge
	sync    *collab.Synchronizer
}

// NewEngine wires a session for the given owner.
func NewEngine(id, owner string, deps Deps) *Engine {
	store := document.NewStore()
	e := &Engine{
		id:      id,
		owner:   owner,
		store:   store,
		history: history.NewManager(deps.HistoryDelay),
		bridge:  persistence.NewBridge(deps.Cache, deps.Remote, deps.Importer, owner, deps.WriteDelay),
	}
	if deps.Channel != nil {
		e.sync = collab.NewSynchronizer(store, deps.Channel)
	}

	store.Subscribe(func(doc document.Document, opts document.ApplyOptions) {
		switch opts.Source {
		case document.SourceUser:
			if opts.RecordHistory {
				e.history.Push(doc)
			}
			if opts.Broadcast && e.sync != nil {
				e.sync.BroadcastLocal(doc)
			}
		case document.SourceLoad, document.SourceImport:
			e.history.Set(doc, true)
		}
		e.bridge.ScheduleWrite(doc)
	})

	return e
}

// ID returns the session id.
func (e *Engine) ID() string { return e.id }

// Owner returns the session owner.
func (e *Engine) Owner() string { return e.owner }

// Load runs the session-start precedence rules and installs the winning
// document as the new undo baseline.
func (e *Engine) Load(ctx context.Context, req persistence.LoadRequest) (document.Document, persistence.LoadSource, error) {
	doc, source, err := e.bridge.Load(ctx, req)
	if err != nil {
		return document.Document{}, "", err
	}

	applySource := document.SourceLoad
	if source == persistence.LoadImport {
		applySource = document.SourceImport
	}
	applied := e.store.Apply(doc, document.ApplyOptions{Source: applySource})

	telemetry.Info("session loaded", map[string]any{
		"session_id": e.id,
		"owner":      e.owner,
		"source":     string(source),
	})
	return applied, source, nil
}

// Apply runs one organic user edit through the store.
func (e *Engine) Apply(doc document.Document) document.Document {
	return e.store.Apply(doc, document.UserEdit())
}

// ApplyImport installs a one-shot import result (wizard or upload) as the new
// undo baseline. A non-empty template is persisted alongside.
func (e *Engine) ApplyImport(ctx context.Context, doc document.Document, template string) document.Document {
	applied := e.store.Apply(doc, document.ApplyOptions{Source: document.SourceImport})
	if template != "" {
		e.bridge.SetTemplate(ctx, template)
	}
	return applied
}

// Document returns the current canonical document.
func (e *Engine) Document() document.Document {
	return e.store.Current()
}

// Store exposes the underlying document store.
func (e *Engine) Store() *document.Store {
	return e.store
}

// Undo steps back one history entry. The restored document is applied without
// recording or broadcast so the navigation itself never becomes an edit.
func (e *Engine) Undo() (document.Document, bool) {
	doc, ok := e.history.Undo()
	if !ok {
		return e.store.Current(), false
	}
	return e.store.Apply(doc, document.ApplyOptions{Source: document.SourceHistory}), true
}

// Redo steps forward one history entry.
func (e *Engine) Redo() (document.Document, bool) {
	doc, ok := e.history.Redo()
	if !ok {
		return e.store.Current(), false
	}
	return e.store.Apply(doc, document.ApplyOptions{Source: document.SourceHistory}), true
}

// CanUndo reports whether an undo step exists.
func (e *Engine) CanUndo() bool { return e.history.CanUndo() }

// CanRedo reports whether a redo step exists.
func (e *Engine) CanRedo() bool { return e.history.CanRedo() }

// Save flushes the pending cache write and pushes the current document to the
// remote service.
func (e *Engine) Save(ctx context.Context) (remotedoc.SaveResult, error) {
	e.bridge.Flush(ctx)
	start := time.Now()
	result, err := e.bridge.SaveRemote(ctx, e.store.Current())
	if err != nil {
		metrics.IncRemoteSaveFailure()
		return result, err
	}
	metrics.IncRemoteSave()
	metrics.ObserveSaveDuration(time.Since(start))
	return result, nil
}

// Flush forces the pending debounced cache write, if any.
func (e *Engine) Flush(ctx context.Context) {
	e.bridge.Flush(ctx)
}

// Bridge exposes the persistence bridge for template and layout state.
func (e *Engine) Bridge() *persistence.Bridge { return e.bridge }

// Synchronizer exposes the collaboration synchronizer, nil when the session
// has no room channel.
func (e *Engine) Synchronizer() *collab.Synchronizer { return e.sync }

// Connect joins the shared room for this session.
func (e *Engine) Connect(roomID, userName string) error {
	if e.sync == nil {
		return collab.ErrNotConnected
	}
	return e.sync.Connect(roomID, userName)
}

// Close disconnects from the room and flushes pending persistence.
func (e *Engine) Close(ctx context.Context) {
	if e.sync != nil {
		e.sync.Disconnect()
	}
	e.history.Flush()
	e.bridge.Flush(ctx)
}
