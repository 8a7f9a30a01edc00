// Inbound chat events consumed by the engine.
//
// Events are delivered by a transport collaborator (HTTP bridge, Kafka topic, replay file) wrapped in an `Envelope`, which carries a type discriminator and exactly one event body.
package event

import (
	"fmt"
	"strings"
	"time"
)

const (
	TypeMessage    = "message"
	TypeMembership = "membership"
	TypeButton     = "button"
	TypeCommand    = "command"
)

// A chat participant, as described by the transport.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
}

// Returns "@username" if known, otherwise the display name.
func (u User) Mention() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.Name
}

// A plain text message posted in a room.
type TextMessage struct {
	Room      string `json:"room"`
	RoomTitle string `json:"roomTitle,omitempty"`
	User      User   `json:"user"`
	// nil when the transport did not resolve admin status; the engine then asks the roster
	IsAdmin   *bool     `json:"isAdmin,omitempty"`
	Text      string    `json:"text"`
	MessageID string    `json:"messageId"`
	Timestamp time.Time `json:"timestamp"`
}

// Users joining or leaving a room.
type MembershipChange struct {
	Room      string `json:"room"`
	RoomTitle string `json:"roomTitle,omitempty"`
	Joined    []User `json:"joined,omitempty"`
	Left      []User `json:"left,omitempty"`
}

// An inline keyboard button press. MessageID identifies the message carrying the keyboard.
type ButtonPress struct {
	Room       string `json:"room"`
	User       User   `json:"user"`
	IsAdmin    *bool  `json:"isAdmin,omitempty"`
	CallbackID string `json:"callbackId"`
	MessageID  string `json:"messageId,omitempty"`
}

// A slash command (user or admin). The wire format calls this "AdminCommand"; admin gating happens per command.
type Command struct {
	Room      string    `json:"room"`
	RoomTitle string    `json:"roomTitle,omitempty"`
	User      User      `json:"user"`
	IsAdmin   *bool     `json:"isAdmin,omitempty"`
	Name      string    `json:"commandName"`
	Args      []string  `json:"args,omitempty"`
	MessageID string    `json:"messageId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Envelope is the unit of ingest. Exactly one body field must be set, matching Type.
type Envelope struct {
	ID         string            `json:"id,omitempty"`
	Type       string            `json:"type"`
	Message    *TextMessage      `json:"message,omitempty"`
	Membership *MembershipChange `json:"membership,omitempty"`
	Button     *ButtonPress      `json:"button,omitempty"`
	Command    *Command          `json:"command,omitempty"`
}

// Checks that the envelope body matches its type, and that a room is set.
func (e *Envelope) Validate() error {
	var ok bool
	switch e.Type {
	case TypeMessage:
		ok = e.Message != nil
	case TypeMembership:
		ok = e.Membership != nil
	case TypeButton:
		ok = e.Button != nil
	case TypeCommand:
		ok = e.Command != nil
	default:
		return fmt.Errorf("unknown event type: %q", e.Type)
	}
	if !ok {
		return fmt.Errorf("event of type %q is missing its body", e.Type)
	}
	if e.RoomID() == "" {
		return fmt.Errorf("event of type %q has no room", e.Type)
	}
	return nil
}

// The room the event belongs to; used as the serialization key.
func (e *Envelope) RoomID() string {
	switch {
	case e.Message != nil:
		return e.Message.Room
	case e.Membership != nil:
		return e.Membership.Room
	case e.Button != nil:
		return e.Button.Room
	case e.Command != nil:
		return e.Command.Room
	}
	return ""
}

// Splits "/name@bot arg1 arg2" into a lower-cased command name and whitespace separated args. Returns false if text is not a command.
func ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}
	fields := strings.Fields(text[1:])
	if len(fields) == 0 {
		return "", nil, false
	}
	name := fields[0]
	if i := strings.Index(name, "@"); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return "", nil, false
	}
	return strings.ToLower(name), fields[1:], true
}

// Converts a slash-command text message into a Command event.
func CommandFromMessage(msg *TextMessage) (*Command, bool) {
	name, args, ok := ParseCommand(msg.Text)
	if !ok {
		return nil, false
	}
	return &Command{
		Room:      msg.Room,
		RoomTitle: msg.RoomTitle,
		User:      msg.User,
		IsAdmin:   msg.IsAdmin,
		Name:      name,
		Args:      args,
		MessageID: msg.MessageID,
		Timestamp: msg.Timestamp,
	}, true
}

// Extracts double-quoted segments from a joined argument list: `"Q" "A" "B"` becomes [Q A B]. Unquoted text is ignored.
func QuotedArgs(args []string) []string {
	joined := strings.Join(args, " ")
	var out []string
	for {
		start := strings.IndexByte(joined, '"')
		if start < 0 {
			return out
		}
		rest := joined[start+1:]
		end := strings.IndexByte(rest, '"')
		if end < 0 {
			return out
		}
		out = append(out, rest[:end])
		joined = rest[end+1:]
	}
}
