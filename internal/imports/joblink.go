package imports

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"resume-sync/internal/persistence"
	"resume-sync/internal/shared/telemetry"
)

// JobLink seeds the active job-description session state from a deep link.
// It is not a document producer: it only decides which job the session is
// tailoring against, and later components read the result to drive scoring.
type JobLink struct {
	cache persistence.KeyValueStore
}

func NewJobLink(cache persistence.KeyValueStore) *JobLink {
	return &JobLink{cache: cache}
}

// Resolve applies the deep-link precedence for a session owner. An explicit
// job id from the navigation link wins and is written through to the cache.
// When the link is absent the cached id is reused. When neither exists the
// stale job keys are purged so scoring does not run against a dead job.
func (j *JobLink) Resolve(ctx context.Context, owner, explicitID string) (string, error) {
	explicitID = strings.TrimSpace(explicitID)
	if explicitID != "" {
		if err := j.cache.Set(ctx, persistence.JobIDKey(owner), explicitID); err != nil {
			return "", fmt.Errorf("cache job id: %w", err)
		}
		telemetry.Info("job link resolved", map[string]any{
			"owner":  owner,
			"job_id": explicitID,
			"origin": "link",
		})
		return explicitID, nil
	}

	cached, err := j.cache.Get(ctx, persistence.JobIDKey(owner))
	if err == nil && strings.TrimSpace(cached) != "" {
		telemetry.Info("job link resolved", map[string]any{
			"owner":  owner,
			"job_id": cached,
			"origin": "cache",
		})
		return strings.TrimSpace(cached), nil
	}
	if err != nil && !errors.Is(err, persistence.ErrNotFound) {
		return "", fmt.Errorf("read cached job id: %w", err)
	}

	if err := j.Purge(ctx, owner); err != nil {
		return "", err
	}
	return "", nil
}

// JobText returns the cached job-description text for the owner, if any.
func (j *JobLink) JobText(ctx context.Context, owner string) (string, error) {
	text, err := j.cache.Get(ctx, persistence.JobTextKey(owner))
	if errors.Is(err, persistence.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read job text: %w", err)
	}
	return text, nil
}

// SetJobText caches the fetched job-description text for the owner.
func (j *JobLink) SetJobText(ctx context.Context, owner, text string) error {
	if err := j.cache.Set(ctx, persistence.JobTextKey(owner), text); err != nil {
		return fmt.Errorf("cache job text: %w", err)
	}
	return nil
}

// Purge drops the owner's job id and description keys.
func (j *JobLink) Purge(ctx context.Context, owner string) error {
	for _, key := range []string{persistence.JobIDKey(owner), persistence.JobTextKey(owner)} {
		if err := j.cache.Delete(ctx, key); err != nil && !errors.Is(err, persistence.ErrNotFound) {
			return fmt.Errorf("purge job state: %w", err)
		}
	}
	return nil
}
