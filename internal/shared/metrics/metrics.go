// Package metrics exposes lightweight process counters in the Prometheus
// text format without pulling in the Prometheus client library.
package metrics

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	sessionsStartedTotal     atomic.Int64
	sessionsClosedTotal      atomic.Int64
	remoteSavesTotal         atomic.Int64
	remoteSaveFailuresTotal  atomic.Int64
	remoteUpdatesApplied     atomic.Int64
	cacheWritesTotal         atomic.Int64
	importsStagedTotal       atomic.Int64
	importsConsumedTotal     atomic.Int64
	saveDurationMilliseconds = newHistogram([]float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000})
)

// IncSessionStarted records a new editing session.
func IncSessionStarted() { sessionsStartedTotal.Add(1) }

// IncSessionClosed records a session teardown.
func IncSessionClosed() { sessionsClosedTotal.Add(1) }

// IncRemoteSave records a completed remote save.
func IncRemoteSave() { remoteSavesTotal.Add(1) }

// IncRemoteSaveFailure records a remote save that returned an error.
func IncRemoteSaveFailure() { remoteSaveFailuresTotal.Add(1) }

// IncRemoteUpdateApplied records a collaborator update applied locally.
func IncRemoteUpdateApplied() { remoteUpdatesApplied.Add(1) }

// IncCacheWrite records a snapshot flushed to the cache.
func IncCacheWrite() { cacheWritesTotal.Add(1) }

// IncImportStaged records an upload staged for import.
func IncImportStaged() { importsStagedTotal.Add(1) }

// IncImportConsumed records a staged upload consumed into a session.
func IncImportConsumed() { importsConsumedTotal.Add(1) }

// ObserveSaveDuration records how long a remote save took.
func ObserveSaveDuration(d time.Duration) {
	saveDurationMilliseconds.Observe(float64(d.Milliseconds()))
}

type histogram struct {
	mu      sync.Mutex
	bounds  []float64
	buckets []int64
	count   int64
	sum     float64
}

func newHistogram(bounds []float64) *histogram {
	return &histogram{
		bounds:  bounds,
		buckets: make([]int64, len(bounds)),
	}
}

func (h *histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += v
	for i, b := range h.bounds {
		if v <= b {
			h.buckets[i]++
		}
	}
}

func (h *histogram) snapshot() (bounds []float64, buckets []int64, count int64, sum float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	bounds = append(bounds, h.bounds...)
	buckets = append(buckets, h.buckets...)
	return bounds, buckets, h.count, h.sum
}

// Handler serves the metrics in Prometheus text exposition format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		c.String(http.StatusOK, Render())
	}
}

// Render builds the exposition text. Exported for tests.
func Render() string {
	var b strings.Builder

	counters := map[string]int64{
		"editor_sessions_started_total":       sessionsStartedTotal.Load(),
		"editor_sessions_closed_total":        sessionsClosedTotal.Load(),
		"editor_remote_saves_total":           remoteSavesTotal.Load(),
		"editor_remote_save_failures_total":   remoteSaveFailuresTotal.Load(),
		"editor_remote_updates_applied_total": remoteUpdatesApplied.Load(),
		"editor_cache_writes_total":           cacheWritesTotal.Load(),
		"editor_imports_staged_total":         importsStagedTotal.Load(),
		"editor_imports_consumed_total":       importsConsumedTotal.Load(),
	}
	names := make([]string, 0, len(counters))
	for name := range counters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		writeCounter(&b, name, counters[name])
	}

	writeHistogram(&b, "editor_remote_save_duration_milliseconds", saveDurationMilliseconds)
	return b.String()
}

func writeCounter(b *strings.Builder, name string, value int64) {
	fmt.Fprintf(b, "# TYPE %s counter\n", name)
	fmt.Fprintf(b, "%s %d\n", name, value)
}

func writeHistogram(b *strings.Builder, name string, h *histogram) {
	bounds, buckets, count, sum := h.snapshot()
	fmt.Fprintf(b, "# TYPE %s histogram\n", name)
	for i, bound := range bounds {
		fmt.Fprintf(b, "%s_bucket{le=%q} %d\n", name, formatFloat(bound), buckets[i])
	}
	fmt.Fprintf(b, "%s_bucket{le=\"+Inf\"} %d\n", name, count)
	fmt.Fprintf(b, "%s_sum %s\n", name, formatFloat(sum))
	fmt.Fprintf(b, "%s_count %d\n", name, count)
}

func formatFloat(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
