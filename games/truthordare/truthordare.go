// Truth-or-Dare sessions: a per-room participant list and a deck to draw prompts from.
package truthordare

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

var (
	ErrNoSession   = errors.New("no active truth or dare game")
	ErrNotJoined   = errors.New("player has not joined the game")
	ErrEmptyDeck   = errors.New("no prompts of that kind")
	ErrUnknownKind = errors.New("unknown prompt kind")
)

type Kind string

const (
	KindTruth Kind = "truth"
	KindDare  Kind = "dare"
)

func ParseKind(raw string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(raw))); k {
	case KindTruth, KindDare:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, raw)
}

type Deck struct {
	Truths []string `yaml:"truths"`
	Dares  []string `yaml:"dares"`
}

func DefaultDeck() Deck {
	return Deck{
		Truths: []string{
			"What's your most embarrassing moment?",
			"Have you ever cheated in an exam?",
			"What's the weirdest thing you've ever eaten?",
		},
		Dares: []string{
			"Send a voice message singing for 30 seconds",
			"Post a childhood photo in this chat",
			"Text your crush right now and screenshot it",
		},
	}
}

// Uniformly random prompt of the given kind.
func (d Deck) Draw(kind Kind, intn func(int) int) (string, error) {
	var items []string
	switch kind {
	case KindTruth:
		items = d.Truths
	case KindDare:
		items = d.Dares
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if len(items) == 0 {
		return "", ErrEmptyDeck
	}
	return items[intn(len(items))], nil
}

type Session struct {
	Players    []string
	LastActive time.Time
}

func NewSession(now time.Time) *Session {
	return &Session{Players: []string{}, LastActive: now}
}

// Adds the player. Returns false if they were already in the game.
func (s *Session) Join(userID string, now time.Time) bool {
	s.LastActive = now
	if s.Has(userID) {
		return false
	}
	s.Players = append(s.Players, userID)
	return true
}

func (s *Session) Has(userID string) bool {
	return slices.Contains(s.Players, userID)
}

func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.LastActive) > ttl
}

// Draws a prompt for a player. A nil session or a player who has not joined is rejected.
func Draw(s *Session, userID string, d Deck, kind Kind, intn func(int) int, now time.Time) (string, error) {
	if s == nil {
		return "", ErrNoSession
	}
	if !s.Has(userID) {
		return "", ErrNotJoined
	}
	s.LastActive = now
	return d.Draw(kind, intn)
}

const StartMessage = "🎮 Truth or Dare started!\nUse /tod_join to join the game\nThen use /truth or /dare when ready"

func PromptMessage(name string, kind Kind, item string) string {
	return fmt.Sprintf("🔮 %s, your %s:\n\n%s\n\nReact with ✅ when done!", name, kind, item)
}
