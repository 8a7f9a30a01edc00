package engine

import (
	"sort"
	"time"

	"github.com/groupmod/groupmod/games/truthordare"
	"github.com/groupmod/groupmod/games/wordgame"

	"github.com/puzpuzpuz/xsync/v3"
)

// Per-room state. Only the worker currently serving the room's events may touch it.
type Room struct {
	ID    string
	Title string

	// non-command text messages per user ID
	Counts map[string]int
	// last-seen display name per user ID
	Names map[string]string
	// user IDs in first-seen order, for stable tie-breaks
	seen []string

	Word *wordgame.Session
	ToD  *truthordare.Session
}

func newRoom(id string) *Room {
	return &Room{
		ID:     id,
		Counts: make(map[string]int),
		Names:  make(map[string]string),
	}
}

func (r *Room) Touch(userID, name string) {
	if _, ok := r.Names[userID]; !ok {
		r.seen = append(r.seen, userID)
	}
	r.Names[userID] = name
}

func (r *Room) Count(userID string) {
	r.Counts[userID]++
}

type ChatterCount struct {
	UserID string
	Name   string
	Count  int
}

// Users with the most counted messages. Ties keep first-seen order.
func (r *Room) TopChatters(n int) []ChatterCount {
	out := make([]ChatterCount, 0, len(r.Counts))
	for _, id := range r.seen {
		if c, ok := r.Counts[id]; ok {
			out = append(out, ChatterCount{UserID: id, Name: r.Names[id], Count: c})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Returns the active word game, dropping it first if it has been idle past ttl.
func (r *Room) WordGame(now time.Time, ttl time.Duration) *wordgame.Session {
	if r.Word != nil && r.Word.Expired(now, ttl) {
		r.Word = nil
	}
	return r.Word
}

func (r *Room) TruthOrDare(now time.Time, ttl time.Duration) *truthordare.Session {
	if r.ToD != nil && r.ToD.Expired(now, ttl) {
		r.ToD = nil
	}
	return r.ToD
}

// Get-or-create repository of rooms. Rooms live for the life of the process.
type RoomStore struct {
	rooms *xsync.MapOf[string, *Room]
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms: xsync.NewMapOf[string, *Room](),
	}
}

func (s *RoomStore) Get(id string) *Room {
	r, _ := s.rooms.LoadOrCompute(id, func() *Room {
		return newRoom(id)
	})
	return r
}

// Returns the room without creating it.
func (s *RoomStore) Lookup(id string) (*Room, bool) {
	return s.rooms.Load(id)
}

func (s *RoomStore) Len() int {
	return s.rooms.Size()
}
