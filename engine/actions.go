package engine

import (
	"time"
)

const (
	KindSendText      = "send_text"
	KindSendPhoto     = "send_photo"
	KindSendVideo     = "send_video"
	KindSendPoll      = "send_poll"
	KindDeleteMessage = "delete_message"
	KindMuteUser      = "mute_user"
	KindEditMessage   = "edit_message"
)

// Outbound side effect for the transport to execute.
type Action interface {
	Kind() string
	RoomID() string
}

type Button struct {
	Text       string `json:"text"`
	CallbackID string `json:"callbackId"`
}

// Rows of inline buttons.
type Keyboard [][]Button

const ParseModeHTML = "HTML"

type SendText struct {
	Room      string   `json:"room"`
	Text      string   `json:"text"`
	ReplyToID string   `json:"replyToId,omitempty"`
	ParseMode string   `json:"parseMode,omitempty"`
	Keyboard  Keyboard `json:"keyboard,omitempty"`
}

type SendPhoto struct {
	Room      string `json:"room"`
	URL       string `json:"url"`
	Caption   string `json:"caption,omitempty"`
	ReplyToID string `json:"replyToId,omitempty"`
}

type SendVideo struct {
	Room      string `json:"room"`
	URL       string `json:"url"`
	Caption   string `json:"caption,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	ReplyToID string `json:"replyToId,omitempty"`
}

type SendPoll struct {
	Room     string   `json:"room"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type DeleteMessage struct {
	Room      string `json:"room"`
	MessageID string `json:"messageId"`
}

type MuteUser struct {
	Room            string `json:"room"`
	UserID          string `json:"userId"`
	DurationSeconds int    `json:"durationSeconds"`
}

func (m MuteUser) Duration() time.Duration {
	return time.Duration(m.DurationSeconds) * time.Second
}

// Replaces the text (or media, when MediaURL is set) of an earlier message.
type EditMessage struct {
	Room      string   `json:"room"`
	MessageID string   `json:"messageId"`
	Text      string   `json:"text,omitempty"`
	MediaURL  string   `json:"mediaUrl,omitempty"`
	ParseMode string   `json:"parseMode,omitempty"`
	Keyboard  Keyboard `json:"keyboard,omitempty"`
}

func (a SendText) Kind() string      { return KindSendText }
func (a SendPhoto) Kind() string     { return KindSendPhoto }
func (a SendVideo) Kind() string     { return KindSendVideo }
func (a SendPoll) Kind() string      { return KindSendPoll }
func (a DeleteMessage) Kind() string { return KindDeleteMessage }
func (a MuteUser) Kind() string      { return KindMuteUser }
func (a EditMessage) Kind() string   { return KindEditMessage }

func (a SendText) RoomID() string      { return a.Room }
func (a SendPhoto) RoomID() string     { return a.Room }
func (a SendVideo) RoomID() string     { return a.Room }
func (a SendPoll) RoomID() string      { return a.Room }
func (a DeleteMessage) RoomID() string { return a.Room }
func (a MuteUser) RoomID() string      { return a.Room }
func (a EditMessage) RoomID() string   { return a.Room }
