package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/groupmod/groupmod/countstore"
	"github.com/groupmod/groupmod/event"
	"github.com/groupmod/groupmod/flagstore"
	"github.com/groupmod/groupmod/flood"
	"github.com/groupmod/groupmod/policy"
	"github.com/groupmod/groupmod/ranking"
)

const (
	CounterWarnings  = "warnings"
	CounterWarned    = "warned"
	CounterDeletions = "deletions"
	CounterMutes     = "mutes"
)

// The primary interface exposed to rules and commands. All other contexts derive from this "base" struct.
type BaseContext struct {
	// Actual golang "context.Context", if needed for timeouts etc
	Ctx context.Context
	// Any errors encountered while processing methods on this struct (or sub-types) get rolled up in this nullable field
	Err error
	// slog logger handle, with event-specific structured fields pre-populated. Pointer, but expected to never be nil.
	Logger *slog.Logger
	// Room the event belongs to. Never nil.
	Room *Room
	// Event time, or the engine clock if the transport did not supply one
	Now time.Time

	engine  *Engine // NOTE: pointer, but expected never to be nil
	effects *Effects
}

// Context for events caused by a single user: messages, commands and button presses.
type ActorContext struct {
	BaseContext

	User event.User
	// Message the event refers to, if any. Replies thread onto it.
	MessageID string

	adminHint *bool
	admin     *bool
}

type MessageContext struct {
	ActorContext

	Message *event.TextMessage
}

type CommandContext struct {
	ActorContext

	Command *event.Command
}

type ButtonContext struct {
	ActorContext

	Press *event.ButtonPress
}

type MembershipContext struct {
	BaseContext

	Change *event.MembershipChange
}

func (eng *Engine) eventTime(ts time.Time) time.Time {
	if ts.IsZero() {
		return eng.Clock()
	}
	return ts
}

func newBaseContext(ctx context.Context, eng *Engine, room *Room, now time.Time, logger *slog.Logger) BaseContext {
	return BaseContext{
		Ctx:     ctx,
		Logger:  logger,
		Room:    room,
		Now:     now,
		engine:  eng,
		effects: &Effects{},
	}
}

func newActorContext(ctx context.Context, eng *Engine, room *Room, user event.User, isAdmin *bool, messageID string, now time.Time, typ string) ActorContext {
	logger := eng.Logger.With("room", room.ID, "user", user.ID, "event", typ)
	return ActorContext{
		BaseContext: newBaseContext(ctx, eng, room, now, logger),
		User:        user,
		MessageID:   messageID,
		adminHint:   isAdmin,
	}
}

func NewMessageContext(ctx context.Context, eng *Engine, room *Room, msg *event.TextMessage) MessageContext {
	ac := newActorContext(ctx, eng, room, msg.User, msg.IsAdmin, msg.MessageID, eng.eventTime(msg.Timestamp), event.TypeMessage)
	return MessageContext{
		ActorContext: ac,
		Message:      msg,
	}
}

func NewCommandContext(ctx context.Context, eng *Engine, room *Room, cmd *event.Command) CommandContext {
	ac := newActorContext(ctx, eng, room, cmd.User, cmd.IsAdmin, cmd.MessageID, eng.eventTime(cmd.Timestamp), event.TypeCommand)
	ac.Logger = ac.Logger.With("command", cmd.Name)
	return CommandContext{
		ActorContext: ac,
		Command:      cmd,
	}
}

func NewButtonContext(ctx context.Context, eng *Engine, room *Room, press *event.ButtonPress) ButtonContext {
	ac := newActorContext(ctx, eng, room, press.User, press.IsAdmin, press.MessageID, eng.Clock(), event.TypeButton)
	ac.Logger = ac.Logger.With("callback", press.CallbackID)
	return ButtonContext{
		ActorContext: ac,
		Press:        press,
	}
}

func NewMembershipContext(ctx context.Context, eng *Engine, room *Room, change *event.MembershipChange) MembershipContext {
	logger := eng.Logger.With("room", room.ID, "event", event.TypeMembership)
	return MembershipContext{
		BaseContext: newBaseContext(ctx, eng, room, eng.Clock(), logger),
		Change:      change,
	}
}

func (c *BaseContext) Enabled(feature string) bool {
	return c.engine.Policy.Enabled(feature)
}

func (c *BaseContext) Policy() *policy.Store {
	return c.engine.Policy
}

func (c *BaseContext) Ranking() *ranking.Engine {
	return c.engine.Ranking
}

func (c *BaseContext) Flood() *flood.Tracker {
	return c.engine.Flood
}

func (c *BaseContext) Config() Config {
	return c.engine.Config
}

// Random index in [0, n).
func (c *BaseContext) Intn(n int) int {
	return c.engine.Intn(n)
}

// records the first error only
func (c *BaseContext) fail(err error) {
	if nil == c.Err {
		c.Err = err
	}
}

// request external state via engine (indirect)
func (c *BaseContext) GetCount(name, val, period string) int {
	out, err := c.engine.Counters.GetCount(c.Ctx, name, val, period)
	if err != nil {
		c.fail(err)
		return 0
	}
	return out
}

func (c *BaseContext) GetCountDistinct(name, bucket, period string) int {
	out, err := c.engine.Counters.GetCountDistinct(c.Ctx, name, bucket, period)
	if err != nil {
		c.fail(err)
		return 0
	}
	return out
}

// Moderation flags currently stored for key. A failed read counts as none.
func (c *BaseContext) GetFlags(key string) []string {
	if c.engine.Flags == nil {
		return nil
	}
	out, err := c.engine.Flags.Get(c.Ctx, key)
	if err != nil {
		c.fail(err)
		return nil
	}
	return out
}

// update effects (indirect) ======

func (c *BaseContext) Increment(name, val string) {
	c.effects.Increment(name, val)
}

func (c *BaseContext) IncrementDistinct(name, bucket, val string) {
	c.effects.IncrementDistinct(name, bucket, val)
}

func (c *BaseContext) Queue(a Action) {
	c.effects.Queue(a)
}

func (c *BaseContext) QueueBundle(b Bundle) {
	c.effects.QueueBundle(b)
}

// Posts text to the room, not threaded to any message.
func (c *BaseContext) Send(text string) {
	c.Queue(SendText{Room: c.Room.ID, Text: text})
}

// Whether the acting user administers the room. Uses the transport's hint when present, otherwise the (cached) roster. A
// failed lookup counts as "not admin" for this event.
func (c *ActorContext) IsAdmin() bool {
	if c.adminHint != nil {
		return *c.adminHint
	}
	if c.admin != nil {
		return *c.admin
	}
	ok, err := c.engine.IsAdmin(c.Ctx, c.Room.ID, c.User.ID)
	if err != nil {
		c.Logger.Warn("admin lookup failed", "err", err)
	}
	c.admin = &ok
	return ok
}

func (c *ActorContext) MemberKey() string {
	return countstore.MemberKey(c.Room.ID, c.User.ID)
}

// Replies in the room, threaded to the triggering message.
func (c *ActorContext) Reply(text string) {
	c.Queue(SendText{Room: c.Room.ID, Text: text, ReplyToID: c.MessageID})
}

func (c *ActorContext) ReplyHTML(text string, kb Keyboard) {
	c.Queue(SendText{Room: c.Room.ID, Text: text, ReplyToID: c.MessageID, ParseMode: ParseModeHTML, Keyboard: kb})
}

func (c *ActorContext) AddFlag(flag string) {
	c.effects.AddFlag(flagstore.MemberKey(c.Room.ID, c.User.ID), flag)
}

// Counts a warning against the acting user, flagging them once the configured limit is reached. Warnings queued earlier
// for the same event count towards the limit.
func (c *ActorContext) Warn() {
	key := c.MemberKey()
	c.Increment(CounterWarnings, key)
	c.IncrementDistinct(CounterWarned, c.Room.ID, c.User.ID)
	n := c.GetCount(CounterWarnings, key, countstore.PeriodTotal) + c.effects.Pending(CounterWarnings, key)
	if n >= c.engine.Config.WarnLimit {
		c.AddFlag(FlagWarnLimit)
	}
}

// Deletes the triggering message and posts a notice. The notice is skipped if the delete fails.
func (c *ActorContext) DeleteWithNotice(reason, notice string) {
	if c.MessageID == "" {
		c.Logger.Warn("no message to delete", "reason", reason)
		return
	}
	moderationCount.WithLabelValues(reason).Inc()
	c.Increment(CounterDeletions, c.Room.ID)
	c.QueueBundle(Bundle{Actions: []Action{
		DeleteMessage{Room: c.Room.ID, MessageID: c.MessageID},
		SendText{Room: c.Room.ID, Text: notice},
	}})
}

// Mutes the acting user and posts a notice. The notice is skipped if the mute fails.
func (c *ActorContext) Mute(d time.Duration, notice string) {
	moderationCount.WithLabelValues(FlagFlood).Inc()
	c.Increment(CounterMutes, c.Room.ID)
	c.QueueBundle(Bundle{Actions: []Action{
		MuteUser{Room: c.Room.ID, UserID: c.User.ID, DurationSeconds: int(d / time.Second)},
		SendText{Room: c.Room.ID, Text: notice},
	}})
}

// Formats a duration the way notices phrase it, eg "5 minutes".
func HumanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	}
	return plural(int(d/time.Second), "second")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
