package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/groupmod/groupmod/cachestore"
	"github.com/groupmod/groupmod/countstore"
	"github.com/groupmod/groupmod/event"
	"github.com/groupmod/groupmod/flagstore"
	"github.com/groupmod/groupmod/policy"
)

// Records every executed action. Actions of a kind listed in Fail return that error instead.
type CaptureTransport struct {
	mu      sync.Mutex
	Actions []Action
	Fail    map[string]error
}

var _ Transport = (*CaptureTransport)(nil)

func NewCaptureTransport() *CaptureTransport {
	return &CaptureTransport{Fail: make(map[string]error)}
}

func (t *CaptureTransport) Execute(ctx context.Context, a Action) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err, ok := t.Fail[a.Kind()]; ok {
		return err
	}
	t.Actions = append(t.Actions, a)
	return nil
}

func (t *CaptureTransport) FailKind(kind string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Fail[kind] = fmt.Errorf("%s rejected", kind)
}

// Text of every SendText, in order.
func (t *CaptureTransport) Texts() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []string
	for _, a := range t.Actions {
		if st, ok := a.(SendText); ok {
			out = append(out, st.Text)
		}
	}
	return out
}

func (t *CaptureTransport) OfKind(kind string) []Action {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Action
	for _, a := range t.Actions {
		if a.Kind() == kind {
			out = append(out, a)
		}
	}
	return out
}

func (t *CaptureTransport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Actions = nil
}

// Fixed admin lists per room.
type StaticRoster struct {
	mu    sync.Mutex
	Rooms map[string][]event.User
	Calls int
}

var _ Roster = (*StaticRoster)(nil)

func (r *StaticRoster) Admins(ctx context.Context, room string) ([]event.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls++
	return r.Rooms[room], nil
}

var TestAdmin = event.User{ID: "admin1", Name: "Alice", Username: "alice"}

// Engine over in-memory stores, with a capturing transport, deterministic randomness and a fixed clock. Rules are left
// empty; callers install what they exercise.
func EngineTestFixture() (*Engine, *CaptureTransport) {
	eng, err := NewEngine(slog.Default(), policy.DefaultConfig(), Config{})
	if err != nil {
		panic(err)
	}
	tr := NewCaptureTransport()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	eng.Counters = countstore.NewMemCountStore()
	eng.Flags = flagstore.NewMemFlagStore()
	eng.Cache = cachestore.NewMemCacheStore(10, time.Hour)
	eng.Transport = tr
	eng.Roster = &StaticRoster{Rooms: map[string][]event.User{"room1": {TestAdmin}}}
	eng.Intn = func(n int) int { return 0 }
	eng.Clock = func() time.Time { return now }
	return eng, tr
}
