package transport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/groupmod/groupmod/engine"
	"github.com/groupmod/groupmod/event"
)

// Dry-run transport: logs every action and, if Out is set, writes it there as a JSON line. Admin rosters come from a
// fixed map.
type Log struct {
	Logger  *slog.Logger
	Out     io.Writer
	Rosters map[string][]event.User

	mu sync.Mutex
}

var (
	_ engine.Transport = (*Log)(nil)
	_ engine.Roster    = (*Log)(nil)
)

func (l *Log) Execute(ctx context.Context, a engine.Action) error {
	if l.Logger != nil {
		l.Logger.Info("action", "kind", a.Kind(), "room", a.RoomID())
	}
	if l.Out == nil {
		return nil
	}
	b, err := json.Marshal(actionBody{Type: a.Kind(), Action: a})
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.Out.Write(append(b, '\n'))
	return err
}

func (l *Log) Admins(ctx context.Context, room string) ([]event.User, error) {
	return l.Rosters[room], nil
}
