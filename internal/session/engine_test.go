package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"resume-sync/internal/collab"
	"resume-sync/internal/document"
	"resume-sync/internal/imports"
	"resume-sync/internal/persistence"
	"resume-sync/internal/remotedoc"
)

type fakeRemote struct {
	mu     sync.Mutex
	doc    document.Document
	fail   bool
	result remotedoc.SaveResult
}

func (f *fakeRemote) GetVersion(ctx context.Context, versionID string) (document.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return document.Document{}, context.DeadlineExceeded
	}
	return f.doc.Clone(), nil
}

func (f *fakeRemote) GetLatest(ctx context.Context, resumeID string) (document.Document, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return document.Document{}, "", context.DeadlineExceeded
	}
	return f.doc.Clone(), "v-latest", nil
}

func (f *fakeRemote) Save(ctx context.Context, req remotedoc.SaveRequest) (remotedoc.SaveResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return remotedoc.SaveResult{}, context.DeadlineExceeded
	}
	return f.result, nil
}

func docWithSummary(summary string) document.Document {
	doc := document.Empty()
	doc.Identity.Name = "Test User"
	doc.Identity.Summary = summary
	return doc
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func testDeps(cache persistence.KeyValueStore, remote persistence.RemoteClient, importer persistence.StagedImporter, channel collab.Channel) Deps {
	return Deps{
		Cache:        cache,
		Remote:       remote,
		Importer:     importer,
		Channel:      channel,
		WriteDelay:   time.Millisecond,
		HistoryDelay: time.Millisecond,
	}
}

func TestRemoteUpdateDoesNotEchoOrRecord(t *testing.T) {
	hub := collab.NewHub()
	cache := persistence.NewMemoryStore()

	alice := NewEngine("s-alice", "alice", testDeps(cache, nil, nil, hub))
	bob := NewEngine("s-bob", "bob", testDeps(cache, nil, nil, hub))
	t.Cleanup(func() {
		alice.Close(context.Background())
		bob.Close(context.Background())
	})

	if _, _, err := alice.Load(context.Background(), persistence.LoadRequest{ForceNew: true}); err != nil {
		t.Fatalf("alice load: %v", err)
	}
	if _, _, err := bob.Load(context.Background(), persistence.LoadRequest{ForceNew: true}); err != nil {
		t.Fatalf("bob load: %v", err)
	}

	if err := alice.Connect("room-1", "Alice"); err != nil {
		t.Fatalf("alice connect: %v", err)
	}
	if err := bob.Connect("room-1", "Bob"); err != nil {
		t.Fatalf("bob connect: %v", err)
	}

	var aliceRemoteApplies int
	var mu sync.Mutex
	alice.Store().Subscribe(func(doc document.Document, opts document.ApplyOptions) {
		if opts.Source == document.SourceRemote {
			mu.Lock()
			aliceRemoteApplies++
			mu.Unlock()
		}
	})

	alice.Apply(docWithSummary("from alice"))

	waitFor(t, func() bool {
		return bob.Document().Identity.Summary == "from alice"
	})

	// Bob's undo stack is untouched by the remote edit.
	if bob.CanUndo() {
		t.Error("remote update must not create an undo step for the receiver")
	}

	// And the update never bounced back to Alice.
	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if aliceRemoteApplies != 0 {
		t.Errorf("alice saw %d echoed updates, want 0", aliceRemoteApplies)
	}
}

func TestLoadPrecedenceRemoteBeatsCache(t *testing.T) {
	cache := persistence.NewMemoryStore()
	snap := persistence.Snapshot{Document: docWithSummary("cached")}
	raw, _ := json.Marshal(snap)
	if err := cache.Set(context.Background(), persistence.DocumentKey("owner-1"), string(raw)); err != nil {
		t.Fatal(err)
	}

	remote := &fakeRemote{doc: docWithSummary("remote")}
	engine := NewEngine("s1", "owner-1", testDeps(cache, remote, nil, collab.NewHub()))
	t.Cleanup(func() { engine.Close(context.Background()) })

	doc, source, err := engine.Load(context.Background(), persistence.LoadRequest{ResumeID: "r1"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if source != persistence.LoadRemote {
		t.Errorf("source = %q, want remote", source)
	}
	if doc.Identity.Summary != "remote" {
		t.Errorf("summary = %q, want remote", doc.Identity.Summary)
	}
	if engine.CanUndo() {
		t.Error("load must reset the undo baseline")
	}
}

func TestLoadPrecedenceFallsBackToCache(t *testing.T) {
	cache := persistence.NewMemoryStore()
	snap := persistence.Snapshot{Document: docWithSummary("cached")}
	raw, _ := json.Marshal(snap)
	if err := cache.Set(context.Background(), persistence.DocumentKey("owner-1"), string(raw)); err != nil {
		t.Fatal(err)
	}

	remote := &fakeRemote{fail: true}
	engine := NewEngine("s1", "owner-1", testDeps(cache, remote, nil, collab.NewHub()))
	t.Cleanup(func() { engine.Close(context.Background()) })

	doc, source, err := engine.Load(context.Background(), persistence.LoadRequest{ResumeID: "r1"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if source != persistence.LoadCache {
		t.Errorf("source = %q, want cache", source)
	}
	if doc.Identity.Summary != "cached" {
		t.Errorf("summary = %q, want cached", doc.Identity.Summary)
	}
}

func TestUploadImportBecomesBaseline(t *testing.T) {
	cache := persistence.NewMemoryStore()
	uploads := imports.NewUploadStage(cache)

	token, err := uploads.Stage(context.Background(), "resume.txt", "text/plain", []byte("Jane Doe\nExperience\nDid things"))
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}

	engine := NewEngine("s1", "owner-1", testDeps(cache, nil, uploads, collab.NewHub()))
	t.Cleanup(func() { engine.Close(context.Background()) })

	doc, source, err := engine.Load(context.Background(), persistence.LoadRequest{UploadToken: token})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if source != persistence.LoadImport {
		t.Errorf("source = %q, want import", source)
	}
	if doc.Identity.Name != "Jane Doe" {
		t.Errorf("name = %q", doc.Identity.Name)
	}
	if engine.CanUndo() {
		t.Error("import must reset the undo baseline, not create an undo step")
	}
}

func TestUndoRedoThroughEngine(t *testing.T) {
	cache := persistence.NewMemoryStore()
	engine := NewEngine("s1", "owner-1", testDeps(cache, nil, nil, collab.NewHub()))
	t.Cleanup(func() { engine.Close(context.Background()) })

	if _, _, err := engine.Load(context.Background(), persistence.LoadRequest{ForceNew: true}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	engine.Apply(docWithSummary("first"))
	time.Sleep(15 * time.Millisecond)
	engine.Apply(docWithSummary("second"))
	time.Sleep(15 * time.Millisecond)

	doc, ok := engine.Undo()
	if !ok {
		t.Fatal("expected undo to step")
	}
	if doc.Identity.Summary != "first" {
		t.Errorf("after undo summary = %q, want first", doc.Identity.Summary)
	}

	doc, ok = engine.Redo()
	if !ok {
		t.Fatal("expected redo to step")
	}
	if doc.Identity.Summary != "second" {
		t.Errorf("after redo summary = %q, want second", doc.Identity.Summary)
	}

	// Undo navigation itself is not an edit: no new history entries appeared.
	if !engine.CanUndo() {
		t.Error("expected undo still available after redo")
	}
}

func TestSaveAdoptsRemoteIdentifiers(t *testing.T) {
	cache := persistence.NewMemoryStore()
	remote := &fakeRemote{result: remotedoc.SaveResult{ResumeID: "r-9", VersionID: "v-9"}}
	engine := NewEngine("s1", "owner-1", testDeps(cache, remote, nil, collab.NewHub()))
	t.Cleanup(func() { engine.Close(context.Background()) })

	if _, _, err := engine.Load(context.Background(), persistence.LoadRequest{ForceNew: true}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	engine.Apply(docWithSummary("content"))

	result, err := engine.Save(context.Background())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if result.ResumeID != "r-9" || result.VersionID != "v-9" {
		t.Errorf("unexpected result: %+v", result)
	}

	resumeID, versionID := engine.Bridge().RemoteRef()
	if resumeID != "r-9" || versionID != "v-9" {
		t.Errorf("bridge ref = %q/%q", resumeID, versionID)
	}
}
