package ranking

import (
	"context"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/groupmod/groupmod/event"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day1 = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func alice() event.User { return event.User{ID: "a", Name: "Alice", Username: "alice"} }
func bob() event.User   { return event.User{ID: "b", Name: "Bob", Username: "bob"} }

func TestFirstMessage(t *testing.T) {
	assert := assert.New(t)

	e := NewEngine(DefaultSettings())
	ups := e.Update(alice(), "hello there everyone and more", day1)
	assert.Empty(ups)

	p, err := e.Profile("a")
	require.NoError(t, err)
	assert.Equal(3, p.XP)
	assert.Equal(1, p.Level)
	assert.Equal(0, p.Streak)
	assert.Equal(1, p.Messages)
	assert.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), p.LastActive)

	rank, err := e.Rank("a")
	assert.NoError(err)
	assert.Equal(1, rank)
}

func TestMessageXP(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(1, MessageXP(""))
	assert.Equal(1, MessageXP("one"))
	assert.Equal(2, MessageXP("  two   words "))
	assert.Equal(3, MessageXP("a b c d e f"))
}

func TestLevelUpSingleCrossing(t *testing.T) {
	assert := assert.New(t)

	e := NewEngine(DefaultSettings())
	ups := e.AddXP(alice(), 305, day1)
	assert.Len(ups, 1)
	assert.Equal(2, ups[0].Level)
	assert.Equal("🎉 Alice leveled up to Level 2!", ups[0].Message())

	p, _ := e.Profile("a")
	assert.Equal(2, p.Level)

	// a small award that does not reach the next threshold announces nothing
	assert.Empty(e.AddXP(alice(), 5, day1))
}

func TestLevelUpMultipleCrossings(t *testing.T) {
	assert := assert.New(t)

	e := NewEngine(DefaultSettings())
	ups := e.AddXP(alice(), 905, day1)
	assert.Len(ups, 3)
	levels := []int{}
	for _, u := range ups {
		levels = append(levels, u.Level)
	}
	assert.Equal([]int{2, 3, 4}, levels)

	p, _ := e.Profile("a")
	assert.Equal(4, p.Level)
	assert.Equal(905, p.XP)
}

func TestDailyBonusAndStreak(t *testing.T) {
	assert := assert.New(t)

	e := NewEngine(DefaultSettings())
	e.Update(alice(), "hi", day1)
	p, _ := e.Profile("a")
	assert.Equal(1, p.XP)

	// same day, no bonus
	e.Update(alice(), "hi", day1.Add(time.Hour))
	p, _ = e.Profile("a")
	assert.Equal(2, p.XP)

	// next day: streak 1, daily bonus
	e.Update(alice(), "hi", day1.Add(24*time.Hour))
	p, _ = e.Profile("a")
	assert.Equal(1, p.Streak)
	assert.Equal(2+50+1, p.XP)

	// days 3 and 4: streak reaches 3 and collects the 3-day bonus
	e.Update(alice(), "hi", day1.Add(48*time.Hour))
	e.Update(alice(), "hi", day1.Add(72*time.Hour))
	p, _ = e.Profile("a")
	assert.Equal(3, p.Streak)
	assert.Equal(53+51+(50+100+1), p.XP)

	// gap of two days resets the streak to zero, bonus still paid
	before := p.XP
	e.Update(alice(), "hi", day1.Add(6*24*time.Hour))
	p, _ = e.Profile("a")
	assert.Equal(0, p.Streak)
	assert.Equal(before+51, p.XP)
}

func TestOutOfOrderTimestamps(t *testing.T) {
	assert := assert.New(t)

	d1 := time.Date(2024, 3, 1, 23, 59, 59, 0, time.UTC)
	d2 := time.Date(2024, 3, 2, 0, 0, 1, 0, time.UTC)
	tests := []struct {
		name       string
		times      []time.Time
		xp         int
		streak     int
		lastActive time.Time
	}{
		{
			name:       "repeated timestamp",
			times:      []time.Time{d1, d1, d1},
			xp:         3,
			lastActive: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "late message from the previous day",
			times:      []time.Time{d1, d2, d1.Add(-time.Second), d2.Add(time.Minute)},
			xp:         4 + 50,
			streak:     1,
			lastActive: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "redelivered day does not restart the streak",
			times:      []time.Time{d1, d2, d2.Add(24 * time.Hour), d1, d2},
			xp:         5 + 50 + 50,
			streak:     2,
			lastActive: time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		e := NewEngine(DefaultSettings())
		for _, ts := range tt.times {
			e.Update(alice(), "x", ts)
		}
		p, err := e.Profile("a")
		require.NoError(t, err)
		assert.Equal(tt.xp, p.XP, tt.name)
		assert.Equal(tt.streak, p.Streak, tt.name)
		assert.Equal(tt.lastActive, p.LastActive, tt.name)
		assert.Equal(len(tt.times), p.Messages, tt.name)
	}
}

func TestStreakAcrossDST(t *testing.T) {
	assert := assert.New(t)

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	e := NewEngine(DefaultSettings(), WithLocation(loc))

	// clocks spring forward on 2024-03-10, so that day is 23 hours long
	e.Update(alice(), "x", time.Date(2024, 3, 9, 12, 0, 0, 0, loc))
	e.Update(alice(), "x", time.Date(2024, 3, 10, 12, 0, 0, 0, loc))
	e.Update(alice(), "x", time.Date(2024, 3, 11, 0, 30, 0, 0, loc))
	p, _ := e.Profile("a")
	assert.Equal(2, p.Streak)
	assert.Equal(time.Date(2024, 3, 11, 0, 0, 0, 0, loc), p.LastActive)

	// a day after falling back (25 hours) is still consecutive
	e = NewEngine(DefaultSettings(), WithLocation(loc))
	e.Update(alice(), "x", time.Date(2024, 11, 3, 0, 10, 0, 0, loc))
	e.Update(alice(), "x", time.Date(2024, 11, 4, 0, 10, 0, 0, loc))
	p, _ = e.Profile("a")
	assert.Equal(1, p.Streak)

	// 47 hours apart, but two calendar days: the streak breaks
	e = NewEngine(DefaultSettings(), WithLocation(loc))
	e.Update(alice(), "x", time.Date(2024, 3, 8, 12, 0, 0, 0, loc))
	e.Update(alice(), "x", time.Date(2024, 3, 9, 0, 30, 0, 0, loc))
	e.Update(alice(), "x", time.Date(2024, 3, 11, 0, 30, 0, 0, loc))
	p, _ = e.Profile("a")
	assert.Equal(0, p.Streak)

	assert.Equal(1, daysBetween(time.Date(2024, 3, 10, 0, 0, 0, 0, loc), time.Date(2024, 3, 11, 0, 0, 0, 0, loc)))
	assert.Equal(2, daysBetween(time.Date(2024, 3, 9, 0, 0, 0, 0, loc), time.Date(2024, 3, 11, 0, 0, 0, 0, loc)))
}

func TestStreakBonusesAreAdditive(t *testing.T) {
	assert := assert.New(t)

	e := NewEngine(Settings{XPPerLevel: 100000, DailyBonus: 0, StreakBonus: map[int]int{3: 100, 7: 300}})
	for i := 0; i < 7; i++ {
		e.Update(alice(), "x", day1.Add(time.Duration(i)*24*time.Hour))
	}
	before, _ := e.Profile("a")
	assert.Equal(6, before.Streak)

	e.Update(alice(), "x", day1.Add(7*24*time.Hour))
	p, _ := e.Profile("a")
	assert.Equal(7, p.Streak)
	assert.Equal(before.XP+100+300+1, p.XP)
}

func TestLeaderboardTieBreak(t *testing.T) {
	assert := assert.New(t)

	e := NewEngine(DefaultSettings())
	day2 := day1.Add(24 * time.Hour)
	// insert B first so ordering cannot come from insertion order
	e.Restore([]Profile{
		{UserID: "b", Name: "B", Level: 5, XP: 100, LastActive: day2},
		{UserID: "a", Name: "A", Level: 5, XP: 100, LastActive: day1},
		{UserID: "c", Name: "C", Level: 5, XP: 200, LastActive: day2},
		{UserID: "d", Name: "D", Level: 6, XP: 10, LastActive: day2},
	}, day2)

	top, err := e.Top(10)
	require.NoError(t, err)
	ids := []string{}
	for _, p := range top {
		ids = append(ids, p.UserID)
	}
	assert.Equal([]string{"d", "c", "a", "b"}, ids)

	rank, err := e.Rank("b")
	assert.NoError(err)
	assert.Equal(4, rank)

	_, err = e.Rank("nobody")
	assert.ErrorIs(err, ErrNotRanked)
	_, err = e.Profile("nobody")
	assert.ErrorIs(err, ErrNotRanked)
}

func TestTopLimit(t *testing.T) {
	assert := assert.New(t)

	e := NewEngine(DefaultSettings())
	e.Update(alice(), "a", day1)
	e.Update(bob(), "a b c", day1)
	top, err := e.Top(1)
	assert.NoError(err)
	assert.Len(top, 1)
	assert.Equal("b", top[0].UserID)
	assert.Equal(2, e.Len())
}

func TestRecomputeIsSerialized(t *testing.T) {
	e := NewEngine(DefaultSettings())
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			e.Recompute(day1)
		}
		close(done)
	}()
	for i := 0; i < 200; i++ {
		e.Update(alice(), "hi", day1)
	}
	<-done
	p, err := e.Profile("a")
	assert.NoError(t, err)
	assert.Equal(t, 200, p.Messages)
	assert.Equal(t, day1, e.LastRecompute())
}

func TestCardAndBoard(t *testing.T) {
	assert := assert.New(t)

	p := Profile{UserID: "a", Name: "Alice", Username: "alice", XP: 450, Level: 2, Streak: 4}
	card := Card(p, 3, DefaultSettings())
	assert.Contains(card, "<b>Alice</b>\n@alice\n")
	assert.Contains(card, "LEVEL 2\nRANK #3")
	assert.Contains(card, "450 / 600 XP")
	assert.Contains(card, "50%")
	assert.Contains(card, "Daily Streak: 4 🔥")

	assert.Equal("┃"+"███████━━━━━━━━"+"┃", ProgressBar(45))
	assert.Equal("┃━━━━━━━━━━━━━━━┃", ProgressBar(0))
	assert.Equal("┃███████████████┃", ProgressBar(100))

	board := Board([]Profile{p, {Name: "Bob", Level: 1, XP: 7}})
	assert.Contains(board, "1. Alice (@alice) - Level 2 (450 XP)")
	assert.Contains(board, "2. Bob - Level 1 (7 XP)")
}

func TestSyncWorkerRoundTrip(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	store := NewMemProfileStore()
	e := NewEngine(DefaultSettings())
	e.Update(alice(), "hello", day1)
	e.Update(bob(), "hello", day1)

	w := NewSyncWorker(e, store, time.Hour, nil)
	assert.NoError(w.Flush(ctx))

	restored := NewEngine(DefaultSettings())
	w2 := NewSyncWorker(restored, store, time.Hour, nil)
	assert.NoError(w2.Restore(ctx))
	assert.Equal(e.Snapshot(), restored.Snapshot())

	w2.Start(ctx)
	assert.NoError(w2.Stop(ctx))
	// stopping twice is harmless
	assert.NoError(w2.Stop(ctx))
}
