package scoring

import (
	"context"
	"sync"
	"testing"
	"time"

	"resume-sync/internal/persistence"
)

type fakeOracle struct {
	mu    sync.Mutex
	calls []string
	score float64
}

func (f *fakeOracle) Score(ctx context.Context, jobText, resumeText string) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, jobText)
	return Result{Score: f.score}, nil
}

func (f *fakeOracle) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakePreview struct {
	mu   sync.Mutex
	text string
}

func (f *fakePreview) fn(ctx context.Context, owner string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text, nil
}

func (f *fakePreview) set(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = text
}

func waitForScore(t *testing.T, r *Resolver, owner string) Result {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		result, ok, err := r.LastScore(context.Background(), owner)
		if err != nil {
			t.Fatalf("LastScore: %v", err)
		}
		if ok {
			return result
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("no score recorded before deadline")
	return Result{}
}

func TestResolverScoresWhenPreviewReady(t *testing.T) {
	oracle := &fakeOracle{score: 91}
	preview := &fakePreview{text: "rendered resume"}
	cache := persistence.NewMemoryStore()
	r := NewResolver(oracle, cache, preview.fn, 2*time.Millisecond)
	defer r.Stop()

	r.Trigger("u1", "job text")

	result := waitForScore(t, r, "u1")
	if result.Score != 91 {
		t.Errorf("score = %v, want 91", result.Score)
	}
	if oracle.callCount() != 1 {
		t.Errorf("oracle calls = %d, want 1", oracle.callCount())
	}
}

func TestResolverRetriesUntilPreviewAppears(t *testing.T) {
	oracle := &fakeOracle{score: 55}
	preview := &fakePreview{}
	cache := persistence.NewMemoryStore()
	r := NewResolver(oracle, cache, preview.fn, 2*time.Millisecond)
	defer r.Stop()

	r.Trigger("u1", "job text")
	time.Sleep(3 * time.Millisecond)
	preview.set("now rendered")

	result := waitForScore(t, r, "u1")
	if result.Score != 55 {
		t.Errorf("score = %v, want 55", result.Score)
	}
}

func TestResolverGivesUpAfterMaxAttempts(t *testing.T) {
	oracle := &fakeOracle{}
	preview := &fakePreview{}
	cache := persistence.NewMemoryStore()
	r := NewResolver(oracle, cache, preview.fn, time.Millisecond)
	defer r.Stop()

	r.Trigger("u1", "job text")
	time.Sleep(50 * time.Millisecond)

	if oracle.callCount() != 0 {
		t.Errorf("oracle calls = %d, want 0", oracle.callCount())
	}
	if _, ok, _ := r.LastScore(context.Background(), "u1"); ok {
		t.Error("expected no score recorded")
	}
}

func TestResolverRestartsOnNewTrigger(t *testing.T) {
	oracle := &fakeOracle{score: 70}
	preview := &fakePreview{text: "rendered"}
	cache := persistence.NewMemoryStore()
	r := NewResolver(oracle, cache, preview.fn, 2*time.Millisecond)
	defer r.Stop()

	r.Trigger("u1", "first job")
	r.Trigger("u1", "second job")

	waitForScore(t, r, "u1")

	deadline := time.Now().Add(time.Second)
	for {
		oracle.mu.Lock()
		var found bool
		for _, c := range oracle.calls {
			if c == "second job" {
				found = true
			}
		}
		oracle.mu.Unlock()
		if found {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("second trigger never scored")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// gateOracle holds the scoring call for one job until released so a newer
// trigger can finish first.
type gateOracle struct {
	hold    string
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gateOracle) Score(ctx context.Context, jobText, resumeText string) (Result, error) {
	if jobText == g.hold {
		g.once.Do(func() { close(g.entered) })
		<-g.release
		return Result{Score: 10}, nil
	}
	return Result{Score: 20}, nil
}

func TestSupersededAttemptDoesNotOverwriteNewerScore(t *testing.T) {
	oracle := &gateOracle{
		hold:    "old job",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	preview := &fakePreview{text: "rendered resume"}
	cache := persistence.NewMemoryStore()
	r := NewResolver(oracle, cache, preview.fn, 2*time.Millisecond)
	defer r.Stop()

	r.Trigger("u1", "old job")
	<-oracle.entered
	r.Trigger("u1", "new job")

	deadline := time.Now().Add(time.Second)
	for {
		result, ok, err := r.LastScore(context.Background(), "u1")
		if err != nil {
			t.Fatalf("LastScore: %v", err)
		}
		if ok && result.Score == 20 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("newer trigger never scored")
		}
		time.Sleep(2 * time.Millisecond)
	}

	close(oracle.release)
	time.Sleep(20 * time.Millisecond)

	result, ok, err := r.LastScore(context.Background(), "u1")
	if err != nil || !ok {
		t.Fatalf("LastScore after release: ok=%v err=%v", ok, err)
	}
	if result.Score != 20 {
		t.Errorf("score = %v, want 20 from the newer job", result.Score)
	}
}
