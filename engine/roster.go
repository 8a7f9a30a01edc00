package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/groupmod/groupmod/event"
)

const adminCacheName = "admins"

// Lists the room's administrators, going through the cache before asking the roster.
func (eng *Engine) Admins(ctx context.Context, room string) ([]event.User, error) {
	if eng.Cache != nil {
		raw, err := eng.Cache.Get(ctx, adminCacheName, room)
		if err != nil {
			eng.Logger.Warn("admin cache read failed", "room", room, "err", err)
		} else if raw != "" {
			var admins []event.User
			if err := json.Unmarshal([]byte(raw), &admins); err == nil {
				rosterLookupCount.WithLabelValues("hit").Inc()
				return admins, nil
			}
		}
	}
	rosterLookupCount.WithLabelValues("miss").Inc()
	if eng.Roster == nil {
		return nil, nil
	}
	admins, err := eng.Roster.Admins(ctx, room)
	if err != nil {
		return nil, fmt.Errorf("fetching admins for room %s: %w", room, err)
	}
	if admins == nil {
		admins = []event.User{}
	}
	if eng.Cache != nil {
		b, err := json.Marshal(admins)
		if err != nil {
			return nil, err
		}
		if err := eng.Cache.Set(ctx, adminCacheName, room, string(b)); err != nil {
			eng.Logger.Warn("admin cache write failed", "room", room, "err", err)
		}
	}
	return admins, nil
}

func (eng *Engine) IsAdmin(ctx context.Context, room, userID string) (bool, error) {
	admins, err := eng.Admins(ctx, room)
	if err != nil {
		return false, err
	}
	for _, a := range admins {
		if a.ID == userID {
			return true, nil
		}
	}
	return false, nil
}

// Drops the cached roster, so the next lookup goes to the transport.
func (eng *Engine) PurgeAdmins(ctx context.Context, room string) error {
	if eng.Cache == nil {
		return nil
	}
	return eng.Cache.Purge(ctx, adminCacheName, room)
}
