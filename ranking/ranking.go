// XP, level and daily-streak tracking for chat members, plus the leaderboard derived from it.
//
// Profiles are global (not per room). All mutation goes through one mutex, so a per-message update and a scheduled
// Recompute never interleave.
package ranking

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/groupmod/groupmod/event"
)

var (
	ErrNotRanked = errors.New("user has no ranking profile")
	// Returned when a cached leaderboard entry has no backing profile and strict invariant checking is enabled.
	ErrInvariant = errors.New("ranking invariant violated")
)

type Settings struct {
	XPPerLevel int `yaml:"xp_per_level"`
	DailyBonus int `yaml:"daily_bonus"`
	// Streak length (days) to bonus XP. Every threshold met is awarded.
	StreakBonus map[int]int `yaml:"streak_bonus"`
}

func DefaultSettings() Settings {
	return Settings{
		XPPerLevel:  300,
		DailyBonus:  50,
		StreakBonus: map[int]int{3: 100, 7: 300},
	}
}

type Profile struct {
	UserID   string
	Name     string
	Username string
	XP       int
	Level    int
	Streak   int
	// Calendar day (midnight, engine location) of the last ranked message.
	LastActive time.Time
	Messages   int
}

// Emitted once for every level gained, in ascending order.
type LevelUp struct {
	UserID string
	Name   string
	Level  int
}

func (l LevelUp) Message() string {
	return fmt.Sprintf("🎉 %s leveled up to Level %d!", l.Name, l.Level)
}

type Option func(*Engine)

// Makes leaderboard lookups fail with ErrInvariant instead of silently skipping broken entries.
func WithStrictInvariants(strict bool) Option {
	return func(e *Engine) { e.strict = strict }
}

// Location used to decide calendar-day boundaries for streaks. Defaults to UTC; nil keeps the default.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

type Engine struct {
	settings Settings
	strict   bool
	loc      *time.Location

	lk       sync.Mutex
	profiles map[string]*Profile
	// insertion order of profiles, the stable base for leaderboard sorting
	order       []string
	board       []string
	lastCompute time.Time
}

func NewEngine(s Settings, opts ...Option) *Engine {
	def := DefaultSettings()
	if s.XPPerLevel <= 0 {
		s.XPPerLevel = def.XPPerLevel
	}
	if s.StreakBonus == nil {
		s.StreakBonus = def.StreakBonus
	}
	e := &Engine{
		settings: s,
		loc:      time.UTC,
		profiles: make(map[string]*Profile),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Settings() Settings {
	return e.settings
}

func (e *Engine) day(t time.Time) time.Time {
	t = t.In(e.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, e.loc)
}

// Whole calendar days from a to b, both midnights in the same location. Counted on the date alone, so a DST shift in
// between does not change the result.
func daysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua) / (24 * time.Hour))
}

// XP for a message body: one per whitespace-separated word, at least 1 and at most 3.
func MessageXP(text string) int {
	n := len(strings.Fields(text))
	if n < 1 {
		return 1
	}
	if n > 3 {
		return 3
	}
	return n
}

// Runs the per-message state machine for the sender: profile creation, daily and streak bonuses, message XP, level-ups, and
// leaderboard recompute.
func (e *Engine) Update(u event.User, text string, now time.Time) []LevelUp {
	e.lk.Lock()
	defer e.lk.Unlock()

	today := e.day(now)
	p := e.getOrCreate(u, today)
	p.Messages++

	// a message dated before the last active day (late delivery, replays) earns message XP only
	if today.After(p.LastActive) {
		if daysBetween(p.LastActive, today) > 1 {
			p.Streak = 0
		} else {
			p.Streak++
		}
		p.LastActive = today
		p.XP += e.settings.DailyBonus
		for threshold, bonus := range e.settings.StreakBonus {
			if p.Streak >= threshold {
				p.XP += bonus
			}
		}
	}

	p.XP += MessageXP(text)
	ups := e.levelUp(p)
	e.recompute(now)
	return ups
}

// Adds XP to an existing or new profile outside the message flow.
func (e *Engine) AddXP(u event.User, amount int, now time.Time) []LevelUp {
	e.lk.Lock()
	defer e.lk.Unlock()

	p := e.getOrCreate(u, e.day(now))
	if amount > 0 {
		p.XP += amount
	}
	ups := e.levelUp(p)
	e.recompute(now)
	return ups
}

func (e *Engine) getOrCreate(u event.User, today time.Time) *Profile {
	p, ok := e.profiles[u.ID]
	if !ok {
		p = &Profile{
			UserID:     u.ID,
			Name:       u.Name,
			Username:   u.Username,
			Level:      1,
			LastActive: today,
		}
		e.profiles[u.ID] = p
		e.order = append(e.order, u.ID)
	}
	return p
}

func (e *Engine) levelUp(p *Profile) []LevelUp {
	var ups []LevelUp
	for p.XP >= p.Level*e.settings.XPPerLevel {
		p.Level++
		ups = append(ups, LevelUp{UserID: p.UserID, Name: p.Name, Level: p.Level})
	}
	return ups
}

// Rebuilds the leaderboard from the current profiles. Safe to call from a timer alongside message updates.
func (e *Engine) Recompute(now time.Time) {
	e.lk.Lock()
	defer e.lk.Unlock()
	e.recompute(now)
}

func (e *Engine) recompute(now time.Time) {
	board := make([]string, len(e.order))
	copy(board, e.order)
	sort.SliceStable(board, func(i, j int) bool {
		a, b := e.profiles[board[i]], e.profiles[board[j]]
		if a.Level != b.Level {
			return a.Level > b.Level
		}
		if a.XP != b.XP {
			return a.XP > b.XP
		}
		return a.LastActive.Before(b.LastActive)
	})
	e.board = board
	e.lastCompute = now
}

func (e *Engine) LastRecompute() time.Time {
	e.lk.Lock()
	defer e.lk.Unlock()
	return e.lastCompute
}

// Copy of the user's profile.
func (e *Engine) Profile(userID string) (Profile, error) {
	e.lk.Lock()
	defer e.lk.Unlock()
	p, ok := e.profiles[userID]
	if !ok {
		return Profile{}, ErrNotRanked
	}
	return *p, nil
}

// One-based leaderboard position of the user.
func (e *Engine) Rank(userID string) (int, error) {
	e.lk.Lock()
	defer e.lk.Unlock()
	for i, id := range e.board {
		if id == userID {
			return i + 1, nil
		}
	}
	return 0, ErrNotRanked
}

// First n leaderboard profiles. Entries without a profile are skipped, or reported as ErrInvariant in strict mode.
func (e *Engine) Top(n int) ([]Profile, error) {
	e.lk.Lock()
	defer e.lk.Unlock()
	out := make([]Profile, 0, n)
	for _, id := range e.board {
		if len(out) >= n {
			break
		}
		p, ok := e.profiles[id]
		if !ok {
			if e.strict {
				return nil, fmt.Errorf("%w: leaderboard entry %s has no profile", ErrInvariant, id)
			}
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

// All profiles in insertion order.
func (e *Engine) Snapshot() []Profile {
	e.lk.Lock()
	defer e.lk.Unlock()
	out := make([]Profile, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, *e.profiles[id])
	}
	return out
}

// Replaces all profiles with the given set and recomputes the leaderboard.
func (e *Engine) Restore(profiles []Profile, now time.Time) {
	e.lk.Lock()
	defer e.lk.Unlock()
	e.profiles = make(map[string]*Profile, len(profiles))
	e.order = e.order[:0]
	for i := range profiles {
		p := profiles[i]
		if p.Level < 1 {
			p.Level = 1
		}
		if _, dup := e.profiles[p.UserID]; dup {
			continue
		}
		e.profiles[p.UserID] = &p
		e.order = append(e.order, p.UserID)
	}
	e.recompute(now)
}

func (e *Engine) Len() int {
	e.lk.Lock()
	defer e.lk.Unlock()
	return len(e.profiles)
}
