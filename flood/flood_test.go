package flood

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrackerTripsAboveLimit(t *testing.T) {
	assert := assert.New(t)

	tr := NewTracker(DefaultConfig())
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < DefaultLimit; i++ {
		d := tr.Record("room1", "alice", start.Add(time.Duration(i)*time.Second))
		assert.False(d.Mute, "message %d", i+1)
		assert.Equal(i+1, d.Count)
	}
	d := tr.Record("room1", "alice", start.Add(5*time.Second))
	assert.True(d.Mute)
	assert.Equal(5*time.Minute, d.Duration)

	// history was reset, so the next message starts over
	assert.Equal(0, tr.Pending("room1", "alice"))
	d = tr.Record("room1", "alice", start.Add(6*time.Second))
	assert.False(d.Mute)
	assert.Equal(1, d.Count)
}

func TestTrackerLimitAllowed(t *testing.T) {
	assert := assert.New(t)

	tr := NewTracker(DefaultConfig())
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < DefaultLimit; i++ {
		assert.False(tr.Record("r", "u", now).Mute)
	}
}

func TestTrackerSpacedMessagesNeverAccumulate(t *testing.T) {
	assert := assert.New(t)

	tr := NewTracker(DefaultConfig())
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		d := tr.Record("r", "u", now)
		assert.False(d.Mute)
		assert.Equal(1, d.Count)
		now = now.Add(DefaultWindow + time.Millisecond)
	}
}

func TestTrackerWindowBoundaryInclusive(t *testing.T) {
	assert := assert.New(t)

	tr := NewTracker(Config{Limit: 1, Window: 10 * time.Second})
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.False(tr.Record("r", "u", now).Mute)
	// exactly one window later the first timestamp is still retained
	assert.True(tr.Record("r", "u", now.Add(10*time.Second)).Mute)
}

func TestTrackerKeysAreIndependent(t *testing.T) {
	assert := assert.New(t)

	tr := NewTracker(DefaultConfig())
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < DefaultLimit; i++ {
		tr.Record("room1", "alice", now)
		tr.Record("room2", "alice", now)
		tr.Record("room1", "bob", now)
	}
	assert.Equal(DefaultLimit, tr.Pending("room1", "alice"))
	assert.Equal(DefaultLimit, tr.Pending("room2", "alice"))
	assert.Equal(DefaultLimit, tr.Pending("room1", "bob"))
}

func TestTrackerSweep(t *testing.T) {
	assert := assert.New(t)

	tr := NewTracker(DefaultConfig())
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tr.Record("r", "old", now)
	tr.Record("r", "fresh", now.Add(9*time.Second))

	assert.Equal(1, tr.Sweep(now.Add(15*time.Second)))
	assert.Equal(0, tr.Pending("r", "old"))
	assert.Equal(1, tr.Pending("r", "fresh"))
}

func TestTrackerOutOfOrderTimestamps(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	at := func(secs ...float64) []time.Time {
		out := make([]time.Time, 0, len(secs))
		for _, s := range secs {
			out = append(out, start.Add(time.Duration(s*float64(time.Second))))
		}
		return out
	}

	tests := []struct {
		name    string
		times   []time.Time
		tripAt  int
		pending int
	}{
		{name: "equal timestamps trip on the sixth", times: at(0, 0, 0, 0, 0, 0), tripAt: 5},
		{name: "late message inside the window counts", times: at(5, 6, 7, 8, 9, 4), tripAt: 5},
		{name: "late message outside the window is ignored", times: at(20, 21, 22, 23, 24, 1), tripAt: -1, pending: 5},
		{name: "stale history is pruned against the newest", times: at(10, 11, 2, 3, 30), tripAt: -1, pending: 1},
		{name: "shuffled burst", times: at(3, 1, 4, 1, 5, 9), tripAt: 5},
	}
	for _, tt := range tests {
		assert := assert.New(t)
		tr := NewTracker(DefaultConfig())
		trip := -1
		for i, ts := range tt.times {
			if tr.Record("r", "u", ts).Mute {
				trip = i
				break
			}
		}
		assert.Equal(tt.tripAt, trip, tt.name)
		assert.Equal(tt.pending, tr.Pending("r", "u"), tt.name)
	}
}

func TestTrackerSweepUsesNewest(t *testing.T) {
	assert := assert.New(t)

	tr := NewTracker(DefaultConfig())
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tr.Record("r", "u", now.Add(9*time.Second))
	tr.Record("r", "u", now)

	assert.Equal(0, tr.Sweep(now.Add(15*time.Second)))
	assert.Equal(2, tr.Pending("r", "u"))
}

func TestTrackerSeparatorInIDs(t *testing.T) {
	assert := assert.New(t)

	tr := NewTracker(DefaultConfig())
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tr.Record("a/b", "c", now)
	tr.Record("a", "b/c", now)
	assert.Equal(1, tr.Pending("a/b", "c"))
	assert.Equal(1, tr.Pending("a", "b/c"))
}
