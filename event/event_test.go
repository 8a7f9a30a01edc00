package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	assert := assert.New(t)

	name, args, ok := ParseCommand("/BlockDomain@groupmod_bot example.com extra")
	assert.True(ok)
	assert.Equal("blockdomain", name)
	assert.Equal([]string{"example.com", "extra"}, args)

	name, args, ok = ParseCommand("  /rank  ")
	assert.True(ok)
	assert.Equal("rank", name)
	assert.Empty(args)

	_, _, ok = ParseCommand("hello /rank")
	assert.False(ok)
	_, _, ok = ParseCommand("/")
	assert.False(ok)
	_, _, ok = ParseCommand("/@bot")
	assert.False(ok)
}

func TestQuotedArgs(t *testing.T) {
	assert := assert.New(t)

	assert.Equal([]string{"Lunch?", "Pizza", "Sushi bar"}, QuotedArgs([]string{`"Lunch?"`, `"Pizza"`, `"Sushi`, `bar"`}))
	assert.Equal([]string{"only"}, QuotedArgs([]string{`"only"`, `"dangling`}))
	assert.Empty(QuotedArgs([]string{"no", "quotes"}))
}

func TestEnvelopeValidate(t *testing.T) {
	assert := assert.New(t)

	var env Envelope
	raw := `{"type":"message","message":{"room":"r1","user":{"id":"u1","name":"Ann"},"text":"hi","messageId":"10"}}`
	assert.NoError(json.Unmarshal([]byte(raw), &env))
	assert.NoError(env.Validate())
	assert.Equal("r1", env.RoomID())

	assert.Error((&Envelope{Type: TypeButton}).Validate())
	assert.Error((&Envelope{Type: "sticker"}).Validate())
	assert.Error((&Envelope{Type: TypeCommand, Command: &Command{Name: "rank"}}).Validate())
}

func TestCommandFromMessage(t *testing.T) {
	assert := assert.New(t)

	msg := TextMessage{Room: "r1", User: User{ID: "u1"}, Text: "/wordgame tech", MessageID: "5"}
	cmd, ok := CommandFromMessage(&msg)
	assert.True(ok)
	assert.Equal("wordgame", cmd.Name)
	assert.Equal([]string{"tech"}, cmd.Args)
	assert.Equal("5", cmd.MessageID)

	msg.Text = "just chatting"
	_, ok = CommandFromMessage(&msg)
	assert.False(ok)
}
