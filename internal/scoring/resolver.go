package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"resume-sync/internal/persistence"
	"resume-sync/internal/shared/telemetry"
)

const maxAttempts = 5

// PreviewFunc returns the rendered preview text of the owner's resume. It
// returns empty text while the preview has not been produced yet.
type PreviewFunc func(ctx context.Context, owner string) (string, error)

// Resolver refreshes the ATS score whenever the active job description or the
// resume changes. The rendered preview text is produced elsewhere and may lag
// behind the trigger, so the resolver retries with a growing delay instead of
// failing the first miss. Every new trigger cancels the pending attempt chain
// and starts over.
type Resolver struct {
	oracle    Oracle
	cache     persistence.KeyValueStore
	preview   PreviewFunc
	baseDelay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	attempt int
	gen     uint64
}

// NewResolver constructs a resolver. baseDelay is the first retry delay;
// subsequent attempts wait attempt*baseDelay.
func NewResolver(oracle Oracle, cache persistence.KeyValueStore, preview PreviewFunc, baseDelay time.Duration) *Resolver {
	if baseDelay <= 0 {
		baseDelay = 400 * time.Millisecond
	}
	return &Resolver{oracle: oracle, cache: cache, preview: preview, baseDelay: baseDelay}
}

// Trigger starts (or restarts) a score refresh for the owner against jobText.
// The generation bump invalidates any attempt already in flight: a superseded
// attempt may still finish its oracle call, but its result is discarded.
func (r *Resolver) Trigger(owner, jobText string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.attempt = 0
	r.gen++
	gen := r.gen
	r.timer = time.AfterFunc(0, func() { r.run(gen, owner, jobText) })
}

// Stop cancels any pending attempt and invalidates in-flight ones.
func (r *Resolver) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.gen++
}

func (r *Resolver) run(gen uint64, owner, jobText string) {
	ctx := context.Background()

	text, err := r.preview(ctx, owner)
	if err != nil || text == "" {
		r.mu.Lock()
		if r.gen != gen {
			r.mu.Unlock()
			return
		}
		r.attempt++
		attempt := r.attempt
		if attempt >= maxAttempts {
			r.timer = nil
			r.mu.Unlock()
			telemetry.Warn("scoring preview unavailable, giving up", map[string]any{
				"owner":    owner,
				"attempts": attempt,
			})
			return
		}
		r.timer = time.AfterFunc(time.Duration(attempt)*r.baseDelay, func() { r.run(gen, owner, jobText) })
		r.mu.Unlock()
		return
	}

	result, err := r.oracle.Score(ctx, jobText, text)
	if err != nil {
		telemetry.Error("scoring oracle failed", map[string]any{"owner": owner, "error": err.Error()})
		return
	}

	// Check-and-persist under the lock so a newer trigger's result can never
	// be overwritten by a superseded attempt.
	r.mu.Lock()
	if r.gen != gen {
		r.mu.Unlock()
		return
	}
	err = r.persist(ctx, owner, result)
	r.mu.Unlock()
	if err != nil {
		telemetry.Error("persist last score", map[string]any{"owner": owner, "error": err.Error()})
		return
	}
	telemetry.Info("score refreshed", map[string]any{
		"owner": owner,
		"score": result.Score,
	})
}

func (r *Resolver) persist(ctx context.Context, owner string, result Result) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal score: %w", err)
	}
	return r.cache.Set(ctx, persistence.LastScoreKey(owner), string(raw))
}

// LastScore returns the cached score for the owner. The boolean reports
// whether a score was ever recorded.
func (r *Resolver) LastScore(ctx context.Context, owner string) (Result, bool, error) {
	raw, err := r.cache.Get(ctx, persistence.LastScoreKey(owner))
	if errors.Is(err, persistence.ErrNotFound) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, fmt.Errorf("read last score: %w", err)
	}
	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return Result{}, false, fmt.Errorf("decode last score: %w", err)
	}
	return result, true, nil
}
