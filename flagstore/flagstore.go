// Moderation flags attached to room members ("spam", "link", "flood", ...). Flags are a set per key; adding is idempotent.
package flagstore

import (
	"context"
	"fmt"
)

type FlagStore interface {
	Get(ctx context.Context, key string) ([]string, error)
	Add(ctx context.Context, key string, flags []string) error
	Remove(ctx context.Context, key string, flags []string) error
}

// Same layout as countstore.MemberKey.
func MemberKey(room, user string) string {
	return fmt.Sprintf("%d:%s/%s", len(room), room, user)
}
