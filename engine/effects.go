package engine

import (
	"sync"
)

var (
	// Moderation flags, recorded per room member.
	FlagSpam    = "spam"
	FlagBadWord = "bad-word"
	FlagLink    = "link"
	FlagFlood   = "flood"
	// Set once a member's warning count reaches the limit.
	FlagWarnLimit = "warn-limit"
)

// Ordered group of actions. Once one fails, the rest of the bundle is skipped and Fallback (if any) runs instead.
type Bundle struct {
	Actions  []Action
	Fallback []Action
}

type CounterRef struct {
	Name   string
	Val    string
	Period *string
}

type CounterDistinctRef struct {
	Name   string
	Bucket string
	Val    string
}

type FlagRef struct {
	Key  string
	Flag string
}

// Mutable container for all the side-effects from processing a single event.
//
// These are the "effects" of rules on a single event. Counters and flags are persisted once all rules have run; outbound
// actions are handed to the transport after that, in the order they were queued.
//
// The sync.Mutex is held for all method calls, so a rule may fan out to goroutines without racing on the lists.
type Effects struct {
	mu sync.Mutex
	// List of outbound action bundles, in the order they were queued
	Bundles []Bundle
	// List of counters which should be incremented as part of processing this event. These are collected during rule
	// execution and persisted in bulk at the end.
	CounterIncrements []CounterRef
	// Similar to "CounterIncrements", but for "distinct" style counters
	CounterDistinctIncrements []CounterDistinctRef
	// Moderation flags to add to room members
	Flags []FlagRef
}

// Queues a single action in its own bundle.
func (e *Effects) Queue(a Action) {
	e.QueueBundle(Bundle{Actions: []Action{a}})
}

func (e *Effects) QueueBundle(b Bundle) {
	if len(b.Actions) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Bundles = append(e.Bundles, b)
}

// Enqueues the named counter to be incremented at the end of all rule processing. Will automatically increment for all
// time periods.
//
// "name" is the counter namespace.
// "val" is the specific counter with that namespace.
func (e *Effects) Increment(name, val string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.CounterIncrements = append(e.CounterIncrements, CounterRef{Name: name, Val: val})
}

// Number of increments queued for the counter, not yet persisted.
func (e *Effects) Pending(name, val string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, ref := range e.CounterIncrements {
		if ref.Name == name && ref.Val == val {
			n++
		}
	}
	return n
}

// Enqueues the named "distinct value" counter based on the supplied string value ("val") to be incremented at the end of
// all rule processing.
func (e *Effects) IncrementDistinct(name, bucket, val string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.CounterDistinctIncrements = append(e.CounterDistinctIncrements, CounterDistinctRef{Name: name, Bucket: bucket, Val: val})
}

// Enqueues the provided flag to be added to the member identified by key. Duplicates are dropped.
func (e *Effects) AddFlag(key, flag string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, f := range e.Flags {
		if f.Key == key && f.Flag == flag {
			return
		}
	}
	e.Flags = append(e.Flags, FlagRef{Key: key, Flag: flag})
}

// Number of queued actions of the given kind.
func (e *Effects) Count(kind string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, b := range e.Bundles {
		for _, a := range b.Actions {
			if a.Kind() == kind {
				n++
			}
		}
	}
	return n
}

func (e *Effects) flagNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.Flags))
	for _, f := range e.Flags {
		out = append(out, f.Flag)
	}
	return out
}
