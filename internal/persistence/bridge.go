package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"resume-sync/internal/document"
	"resume-sync/internal/remotedoc"
	"resume-sync/internal/shared/metrics"
	"resume-sync/internal/shared/telemetry"
)

// ErrSuperseded marks a load result that arrived after a newer load started;
// callers discard it silently.
var ErrSuperseded = errors.New("persistence: load superseded")

// ErrNoRemote indicates no remote document service is configured.
var ErrNoRemote = errors.New("persistence: remote service not configured")

// RemoteClient is the slice of the remote document service contract the
// bridge consumes.
type RemoteClient interface {
	GetVersion(ctx context.Context, versionID string) (document.Document, error)
	GetLatest(ctx context.Context, resumeID string) (document.Document, string, error)
	Save(ctx context.Context, req remotedoc.SaveRequest) (remotedoc.SaveResult, error)
}

// StagedImporter consumes a one-shot staged import payload by token.
type StagedImporter interface {
	Consume(ctx context.Context, token string) (document.Document, string, error)
}

// LoadSource names which precedence rule produced the session's initial
// document.
type LoadSource string

const (
	LoadRemote LoadSource = "remote"
	LoadImport LoadSource = "import"
	LoadCache  LoadSource = "cache"
	LoadEmpty  LoadSource = "empty"
)

// LoadRequest carries the navigation context evaluated by the load precedence
// rules.
type LoadRequest struct {
	ResumeID    string
	VersionID   string
	UploadToken string
	ForceNew    bool
}

// Snapshot is the durable-cache representation of a document plus the
// auxiliary UI state persisted alongside it.
type Snapshot struct {
	Document  document.Document `json:"document"`
	Template  string            `json:"template"`
	TwoColumn bool              `json:"twoColumn"`
}

// Bridge reconciles three representations of the document: remote
// (server-assigned id and version), the durable local cache and the in-memory
// store. It is the sole writer of the cached snapshot; writes are debounced,
// idempotent and last-write-wins. Remote is authoritative when both remote and
// cache exist for the same identity; no merging is attempted.
type Bridge struct {
	cache    KeyValueStore
	remote   RemoteClient
	importer StagedImporter
	owner    string

	writeDelay time.Duration

	mu        sync.Mutex
	timer     *time.Timer
	pending   *Snapshot
	template  string
	twoColumn bool
	resumeID  string
	versionID string
	loadSeq   int64
}

// NewBridge constructs a bridge for one session owner. remote and importer
// may be nil; the corresponding precedence rules are then skipped.
func NewBridge(cache KeyValueStore, remote RemoteClient, importer StagedImporter, owner string, writeDelay time.Duration) *Bridge {
	return &Bridge{
		cache:      cache,
		remote:     remote,
		importer:   importer,
		owner:      owner,
		writeDelay: writeDelay,
	}
}

// Load evaluates the session-start precedence rules in order and returns the
// first winning document. Network failure on a higher-precedence source falls
// through to the next source and is logged, never surfaced: the editor must
// always become usable.
//
// A Load superseded by a newer Load on the same bridge returns ErrSuperseded
// so a stale remote response can never overwrite a newer document.
func (b *Bridge) Load(ctx context.Context, req LoadRequest) (document.Document, LoadSource, error) {
	b.mu.Lock()
	b.loadSeq++
	seq := b.loadSeq
	b.mu.Unlock()

	if doc, ok, err := b.loadRemote(ctx, req, seq); err != nil {
		return document.Document{}, "", err
	} else if ok {
		return doc, LoadRemote, nil
	}

	if doc, ok := b.loadImport(ctx, req); ok {
		return doc, LoadImport, nil
	}

	if req.ForceNew {
		b.Purge(ctx)
		return document.Empty(), LoadEmpty, nil
	}

	if doc, ok := b.loadCache(ctx); ok {
		return doc, LoadCache, nil
	}

	return document.Empty(), LoadEmpty, nil
}

func (b *Bridge) loadRemote(ctx context.Context, req LoadRequest, seq int64) (document.Document, bool, error) {
	if b.remote == nil || (req.VersionID == "" && req.ResumeID == "") {
		return document.Document{}, false, nil
	}

	var (
		doc       document.Document
		versionID = req.VersionID
		err       error
	)
	if versionID != "" {
		doc, err = b.remote.GetVersion(ctx, versionID)
	} else {
		doc, versionID, err = b.remote.GetLatest(ctx, req.ResumeID)
	}
	if err != nil {
		telemetry.Warn("persistence.load.remote_failed", map[string]any{
			"owner":      b.owner,
			"resume_id":  req.ResumeID,
			"version_id": req.VersionID,
			"err":        err.Error(),
		})
		return document.Document{}, false, nil
	}

	b.mu.Lock()
	if b.loadSeq != seq {
		b.mu.Unlock()
		return document.Document{}, false, ErrSuperseded
	}
	b.resumeID = req.ResumeID
	b.versionID = versionID
	snap := Snapshot{Document: doc, Template: b.template, TwoColumn: b.twoColumn}
	b.mu.Unlock()

	// Cache the remote result so a later cold start without a remote ref
	// still restores it.
	b.writeSnapshot(ctx, snap)
	return doc, true, nil
}

func (b *Bridge) loadImport(ctx context.Context, req LoadRequest) (document.Document, bool) {
	if b.importer == nil || req.UploadToken == "" {
		return document.Document{}, false
	}

	// Purge before consuming: a fresh import must never be contaminated by a
	// previous session's leftovers.
	b.Purge(ctx)

	doc, template, err := b.importer.Consume(ctx, req.UploadToken)
	if err != nil {
		telemetry.Warn("persistence.load.import_failed", map[string]any{
			"owner": b.owner,
			"err":   err.Error(),
		})
		return document.Document{}, false
	}

	b.mu.Lock()
	if template != "" {
		b.template = template
	}
	snap := Snapshot{Document: doc, Template: b.template, TwoColumn: b.twoColumn}
	b.mu.Unlock()

	b.writeSnapshot(ctx, snap)
	return doc, true
}

func (b *Bridge) loadCache(ctx context.Context) (document.Document, bool) {
	raw, err := b.cache.Get(ctx, DocumentKey(b.owner))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			telemetry.Warn("persistence.load.cache_failed", map[string]any{
				"owner": b.owner,
				"err":   err.Error(),
			})
		}
		return document.Document{}, false
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		// A corrupt cache entry is recovered locally: log and fall through
		// to the empty baseline.
		telemetry.Warn("persistence.load.cache_corrupt", map[string]any{
			"owner": b.owner,
			"err":   err.Error(),
		})
		return document.Document{}, false
	}
	if snap.Document.IsEmpty() {
		return document.Document{}, false
	}

	b.mu.Lock()
	b.template = snap.Template
	b.twoColumn = snap.TwoColumn
	b.mu.Unlock()
	return snap.Document, true
}

// ScheduleWrite arms (or re-arms) the debounced write-behind of doc to the
// cache. Bursts of mutations within the write window collapse into a single
// cache write holding the final state.
func (b *Bridge) ScheduleWrite(doc document.Document) {
	b.mu.Lock()
	snap := Snapshot{Document: doc.Clone(), Template: b.template, TwoColumn: b.twoColumn}
	b.pending = &snap

	if b.writeDelay <= 0 {
		pending := b.takePendingLocked()
		b.mu.Unlock()
		if pending != nil {
			b.writeSnapshot(context.Background(), *pending)
		}
		return
	}

	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.writeDelay, b.flushPending)
	b.mu.Unlock()
}

// Flush forces any pending cache write synchronously. Called on tab-hide,
// unload and session close so no edit is lost to the debounce window.
func (b *Bridge) Flush(ctx context.Context) {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	pending := b.takePendingLocked()
	b.mu.Unlock()

	if pending != nil {
		b.writeSnapshot(ctx, *pending)
	}
}

func (b *Bridge) flushPending() {
	b.mu.Lock()
	pending := b.takePendingLocked()
	b.mu.Unlock()

	if pending != nil {
		b.writeSnapshot(context.Background(), *pending)
	}
}

func (b *Bridge) takePendingLocked() *Snapshot {
	pending := b.pending
	b.pending = nil
	return pending
}

func (b *Bridge) writeSnapshot(ctx context.Context, snap Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		telemetry.Error("persistence.write.marshal_failed", map[string]any{
			"owner": b.owner,
			"err":   err.Error(),
		})
		return
	}
	if err := b.cache.Set(ctx, DocumentKey(b.owner), string(data)); err != nil {
		telemetry.Error("persistence.write.cache_failed", map[string]any{
			"owner": b.owner,
			"err":   err.Error(),
		})
		return
	}
	metrics.IncCacheWrite()
}

// SaveRemote pushes doc to the remote document service and adopts the
// returned identifiers as the new remote reference. An optimistic local
// resume id is assigned before the first save completes. Failures are
// returned to the caller: save errors are actionable, and the document is
// still safe in memory and in the local cache.
func (b *Bridge) SaveRemote(ctx context.Context, doc document.Document) (remotedoc.SaveResult, error) {
	if b.remote == nil {
		return remotedoc.SaveResult{}, ErrNoRemote
	}

	b.mu.Lock()
	if b.resumeID == "" {
		b.resumeID = uuid.NewString()
	}
	req := remotedoc.SaveRequest{
		ResumeID:   b.resumeID,
		User:       b.owner,
		Template:   b.template,
		ResumeData: remotedoc.FromDocument(doc),
	}
	b.mu.Unlock()

	result, err := b.remote.Save(ctx, req)
	if err != nil {
		return remotedoc.SaveResult{}, err
	}

	b.mu.Lock()
	b.resumeID = result.ResumeID
	b.versionID = result.VersionID
	b.mu.Unlock()
	return result, nil
}

// RemoteRef returns the current remote reference.
func (b *Bridge) RemoteRef() (resumeID, versionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.resumeID, b.versionID
}

// SetTemplate records the selected template and mirrors it to its shared
// cache key immediately.
func (b *Bridge) SetTemplate(ctx context.Context, template string) {
	b.mu.Lock()
	b.template = template
	b.mu.Unlock()
	if err := b.cache.Set(ctx, TemplateKey(b.owner), template); err != nil {
		telemetry.Warn("persistence.template.cache_failed", map[string]any{
			"owner": b.owner,
			"err":   err.Error(),
		})
	}
}

// Template returns the selected template id.
func (b *Bridge) Template() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.template
}

// SetTwoColumn records the two-column layout flag and mirrors it to its
// shared cache key immediately.
func (b *Bridge) SetTwoColumn(ctx context.Context, on bool) {
	b.mu.Lock()
	b.twoColumn = on
	b.mu.Unlock()
	val := "false"
	if on {
		val = "true"
	}
	if err := b.cache.Set(ctx, LayoutKey(b.owner), val); err != nil {
		telemetry.Warn("persistence.layout.cache_failed", map[string]any{
			"owner": b.owner,
			"err":   err.Error(),
		})
	}
}

// Purge removes the owner's cached snapshot and auxiliary keys.
func (b *Bridge) Purge(ctx context.Context) {
	for _, key := range []string{
		DocumentKey(b.owner),
		TemplateKey(b.owner),
		LayoutKey(b.owner),
		LastScoreKey(b.owner),
	} {
		if err := b.cache.Delete(ctx, key); err != nil {
			telemetry.Warn("persistence.purge.cache_failed", map[string]any{
				"owner": b.owner,
				"key":   key,
				"err":   err.Error(),
			})
		}
	}
}
