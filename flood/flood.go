// Sliding-window flood detection for chat senders.
//
// A Tracker keeps, for every (room, user) pair, the timestamps of recent messages. Once more than Limit messages fall inside
// the trailing Window the sender is due a mute, and their history is cleared so the next message starts a fresh window.
package flood

import (
	"slices"
	"sync"
	"time"
)

const (
	DefaultLimit        = 5
	DefaultWindow       = 10 * time.Second
	DefaultMuteDuration = 5 * time.Minute
)

type Config struct {
	Limit        int
	Window       time.Duration
	MuteDuration time.Duration
}

func DefaultConfig() Config {
	return Config{
		Limit:        DefaultLimit,
		Window:       DefaultWindow,
		MuteDuration: DefaultMuteDuration,
	}
}

// Result of recording a single message.
type Decision struct {
	// Messages inside the window, including this one. Zero after a trip.
	Count    int
	Mute     bool
	Duration time.Duration
}

type memberKey struct {
	room string
	user string
}

type Tracker struct {
	cfg Config

	lk sync.Mutex
	// per member, oldest first
	hits map[memberKey][]time.Time
}

func NewTracker(cfg Config) *Tracker {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MuteDuration <= 0 {
		cfg.MuteDuration = DefaultMuteDuration
	}
	return &Tracker{
		cfg:  cfg,
		hits: make(map[memberKey][]time.Time),
	}
}

func (t *Tracker) Config() Config {
	return t.cfg
}

// Adds now to the sender's history, prunes anything older than the window, and decides whether to mute.
//
// Exactly Limit messages inside the window is allowed; the next one trips. The history is reset on a trip even if the caller
// later fails to apply the mute. The window trails the newest timestamp seen, so a message that arrives late only counts if
// it falls inside it.
func (t *Tracker) Record(room, user string, now time.Time) Decision {
	t.lk.Lock()
	defer t.lk.Unlock()

	k := memberKey{room: room, user: user}
	prev := t.hits[k]
	newest := now
	if n := len(prev); n > 0 && prev[n-1].After(newest) {
		newest = prev[n-1]
	}
	i, _ := slices.BinarySearchFunc(prev, now, func(ts, target time.Time) int {
		if ts.After(target) {
			return 1
		}
		return -1
	})
	hist := slices.Insert(prev, i, now)
	kept := hist[:0]
	for _, ts := range hist {
		if newest.Sub(ts) <= t.cfg.Window {
			kept = append(kept, ts)
		}
	}

	if len(kept) > t.cfg.Limit {
		delete(t.hits, k)
		return Decision{Mute: true, Duration: t.cfg.MuteDuration}
	}
	t.hits[k] = kept
	return Decision{Count: len(kept)}
}

// Number of timestamps currently retained for the sender.
func (t *Tracker) Pending(room, user string) int {
	t.lk.Lock()
	defer t.lk.Unlock()
	return len(t.hits[memberKey{room: room, user: user}])
}

// Drops histories whose newest timestamp is already outside the window. Returns the number of histories removed.
func (t *Tracker) Sweep(now time.Time) int {
	t.lk.Lock()
	defer t.lk.Unlock()

	removed := 0
	for k, l := range t.hits {
		if len(l) == 0 || now.Sub(l[len(l)-1]) > t.cfg.Window {
			delete(t.hits, k)
			removed++
		}
	}
	return removed
}
