package jira

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorTracker_ObserveAndCommit(t *testing.T) {
	tracker := NewCursorTracker()

	tracker.Observe("issues", "id", map[string]interface{}{"id": "100"})
	tracker.Observe("issues", "id", map[string]interface{}{"id": "300"})
	tracker.Observe("issues", "id", map[string]interface{}{"id": "200"})

	// Nothing visible before commit
	_, ok := tracker.Bookmark("issues")
	assert.False(t, ok)

	tracker.Commit("issues")

	value, ok := tracker.Bookmark("issues")
	require.True(t, ok)
	assert.Equal(t, "300", value)
}

func TestCursorTracker_DiscardDropsPendingOnly(t *testing.T) {
	tracker := NewCursorTracker()

	tracker.Observe("boards", "id", map[string]interface{}{"id": float64(5)})
	tracker.Commit("boards")

	tracker.Observe("boards", "id", map[string]interface{}{"id": float64(9)})
	tracker.Discard("boards")

	value, ok := tracker.Bookmark("boards")
	require.True(t, ok)
	assert.Equal(t, float64(5), value)
}

func TestCursorTracker_CommitIsMonotonic(t *testing.T) {
	tracker := NewCursorTracker()
	tracker.Seed(map[string]interface{}{"users": "zz"})

	// A run that only saw smaller values must not move the cursor back
	tracker.Observe("users", "accountId", map[string]interface{}{"accountId": "aa"})
	tracker.Commit("users")

	value, ok := tracker.Bookmark("users")
	require.True(t, ok)
	assert.Equal(t, "zz", value)
}

func TestCursorTracker_ObserveIgnoresMissingKey(t *testing.T) {
	tracker := NewCursorTracker()

	tracker.Observe("issues", "id", map[string]interface{}{"key": "ENG-1"})
	tracker.Observe("issues", "", map[string]interface{}{"id": "7"})
	tracker.Commit("issues")

	_, ok := tracker.Bookmark("issues")
	assert.False(t, ok)
}

func TestCursorTracker_SeedProvidesFloor(t *testing.T) {
	tracker := NewCursorTracker()
	tracker.Seed(map[string]interface{}{"issues": "500"})

	// Observed values below the seeded floor never become pending
	tracker.Observe("issues", "id", map[string]interface{}{"id": "400"})
	tracker.Commit("issues")

	value, ok := tracker.Bookmark("issues")
	require.True(t, ok)
	assert.Equal(t, "500", value)
}

func TestCursorTracker_StreamsAreIndependent(t *testing.T) {
	tracker := NewCursorTracker()

	tracker.Observe("issues", "id", map[string]interface{}{"id": "10"})
	tracker.Observe("boards", "id", map[string]interface{}{"id": "20"})
	tracker.Commit("issues")
	tracker.Discard("boards")

	bookmarks := tracker.Bookmarks()
	assert.Equal(t, map[string]interface{}{"issues": "10"}, bookmarks)
}

func TestCursorTracker_ConcurrentObserve(t *testing.T) {
	tracker := NewCursorTracker()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			tracker.Observe("audit_records", "created", map[string]interface{}{"created": float64(n)})
		}(i)
	}
	wg.Wait()
	tracker.Commit("audit_records")

	value, ok := tracker.Bookmark("audit_records")
	require.True(t, ok)
	assert.Equal(t, float64(49), value)
}

func TestCompareBookmark(t *testing.T) {
	tests := []struct {
		name string
		a, b interface{}
		want int
	}{
		{"numeric ascending", float64(2), float64(10), -1},
		{"numeric equal", float64(3), 3, 0},
		{"numeric string vs number", "9", float64(10), -1},
		{"timestamps lexicographic", "2024-01-02T00:00:00Z", "2024-01-10T00:00:00Z", -1},
		{"strings descending", "beta", "alpha", 1},
		{"equal strings", "x", "x", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compareBookmark(tt.a, tt.b))
		})
	}
}
