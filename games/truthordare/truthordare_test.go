package truthordare

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func first(n int) int { return 0 }

func TestJoinIdempotent(t *testing.T) {
	assert := assert.New(t)

	s := NewSession(now)
	assert.True(s.Join("u1", now))
	assert.False(s.Join("u1", now))
	assert.True(s.Join("u2", now))
	assert.Equal([]string{"u1", "u2"}, s.Players)
}

func TestDraw(t *testing.T) {
	assert := assert.New(t)
	deck := DefaultDeck()

	_, err := Draw(nil, "u1", deck, KindTruth, first, now)
	assert.ErrorIs(err, ErrNoSession)

	s := NewSession(now)
	_, err = Draw(s, "u1", deck, KindTruth, first, now)
	assert.ErrorIs(err, ErrNotJoined)

	s.Join("u1", now)
	item, err := Draw(s, "u1", deck, KindTruth, first, now)
	assert.NoError(err)
	assert.Equal(deck.Truths[0], item)

	item, err = Draw(s, "u1", deck, KindDare, func(n int) int { return n - 1 }, now)
	assert.NoError(err)
	assert.Equal(deck.Dares[2], item)

	_, err = Draw(s, "u1", Deck{}, KindDare, first, now)
	assert.ErrorIs(err, ErrEmptyDeck)
}

func TestDrawUniform(t *testing.T) {
	assert := assert.New(t)

	deck := DefaultDeck()
	seen := map[string]bool{}
	for i := 0; i < len(deck.Truths); i++ {
		i := i
		item, err := deck.Draw(KindTruth, func(n int) int { return i % n })
		assert.NoError(err)
		seen[item] = true
	}
	assert.Len(seen, len(deck.Truths))
}

func TestParseKind(t *testing.T) {
	assert := assert.New(t)

	k, err := ParseKind("Dare")
	assert.NoError(err)
	assert.Equal(KindDare, k)
	_, err = ParseKind("both")
	assert.ErrorIs(err, ErrUnknownKind)
}

func TestMessages(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("🔮 Ann, your truth:\n\nQ?\n\nReact with ✅ when done!", PromptMessage("Ann", KindTruth, "Q?"))
	assert.True(NewSession(now).Expired(now.Add(time.Hour), time.Minute))
}
