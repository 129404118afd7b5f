package jira

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
)

// CursorTracker maintains per-stream replication bookmarks with two-phase
// visibility: values observed during extraction accumulate in a pending set
// and become durable only on Commit. A failed stream Discards its pending
// value so a partial pass never advances the cursor past unemitted records.
type CursorTracker struct {
	mu        sync.Mutex
	committed map[string]interface{}
	pending   map[string]interface{}
}

// NewCursorTracker returns an empty tracker.
func NewCursorTracker() *CursorTracker {
	return &CursorTracker{
		committed: make(map[string]interface{}),
		pending:   make(map[string]interface{}),
	}
}

// Seed loads previously persisted bookmarks as the committed baseline.
func (t *CursorTracker) Seed(bookmarks map[string]interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for stream, value := range bookmarks {
		t.committed[stream] = value
	}
}

// Observe folds one record's replication key value into the stream's pending
// bookmark, keeping the maximum seen. Records missing the key are ignored.
func (t *CursorTracker) Observe(stream, key string, record map[string]interface{}) {
	if key == "" {
		return
	}
	value, ok := record[key]
	if !ok || value == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	current, exists := t.pending[stream]
	if !exists {
		current, exists = t.committed[stream]
	}
	if !exists || compareBookmark(value, current) > 0 {
		t.pending[stream] = value
	}
}

// Commit promotes the stream's pending bookmark to committed. The committed
// value never moves backwards, even if a caller seeds a newer baseline
// between extraction and commit.
func (t *CursorTracker) Commit(stream string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	value, ok := t.pending[stream]
	if !ok {
		return
	}
	delete(t.pending, stream)

	current, exists := t.committed[stream]
	if !exists || compareBookmark(value, current) > 0 {
		t.committed[stream] = value
	}
}

// Discard drops the stream's pending bookmark, leaving committed state
// untouched.
func (t *CursorTracker) Discard(stream string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, stream)
}

// Bookmark returns the committed bookmark for a stream.
func (t *CursorTracker) Bookmark(stream string) (interface{}, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	value, ok := t.committed[stream]
	return value, ok
}

// Bookmarks returns a copy of all committed bookmarks.
func (t *CursorTracker) Bookmarks() map[string]interface{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]interface{}, len(t.committed))
	for stream, value := range t.committed {
		out[stream] = value
	}
	return out
}

// compareBookmark orders two bookmark values. Numeric pairs compare
// numerically; everything else falls back to lexicographic comparison of
// the canonical string form, which is correct for ISO-8601 timestamps.
func compareBookmark(a, b interface{}) int {
	av, aok := toFloat(a)
	bv, bok := toFloat(b)
	if aok && bok {
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	}

	as := formatScalar(a)
	bs := formatScalar(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// formatScalar renders a context or bookmark value for URLs and comparisons.
// Floats that carry integral identifiers print without a fraction.
func formatScalar(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}
