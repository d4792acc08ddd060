// Package persistence reconciles the in-memory document store with the
// durable local cache and the remote document service.
package persistence

import (
	"context"
	"errors"
)

// ErrNotFound indicates a cache key has no value.
var ErrNotFound = errors.New("cache: key not found")

// KeyValueStore is the durable local cache. It is shared with the rest of the
// product (other screens read the same keys), so writes must be atomic per key
// and values are treated as externally observable state. The interface is
// injected so tests can run against the in-memory implementation.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Take returns the value for key and removes it in one atomic step, so
	// concurrent takers see at most one success per key.
	Take(ctx context.Context, key string) (string, error)
	Close() error
}

// Cache key layout. Session-scoped keys embed the owner id; upload payloads
// are keyed globally by their one-time token.
const (
	keyDocument   = "resume:document:"
	keyTemplate   = "resume:template:"
	keyLayout     = "resume:layout_split:"
	keyLastScore  = "resume:last_score:"
	keyJobText    = "job:description:"
	keyJobID      = "job:id:"
	keyUploadStub = "upload:payload:"
)

// DocumentKey returns the cache key for an owner's document snapshot.
func DocumentKey(owner string) string { return keyDocument + owner }

// TemplateKey returns the cache key for the selected template id.
func TemplateKey(owner string) string { return keyTemplate + owner }

// LayoutKey returns the cache key for the two-column layout split.
func LayoutKey(owner string) string { return keyLayout + owner }

// LastScoreKey returns the cache key for the last known ATS score.
func LastScoreKey(owner string) string { return keyLastScore + owner }

// JobTextKey returns the cache key for the active job description text.
func JobTextKey(owner string) string { return keyJobText + owner }

// JobIDKey returns the cache key for the active job description identifier.
func JobIDKey(owner string) string { return keyJobID + owner }

// UploadKey returns the cache key for a one-time upload payload.
func UploadKey(token string) string { return keyUploadStub + token }
