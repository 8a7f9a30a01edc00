// Event dispatch for group chat moderation: routes each inbound event through the rule pipeline or command router,
// persists counters and flags, then hands the queued actions to the transport.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/groupmod/groupmod/cachestore"
	"github.com/groupmod/groupmod/countstore"
	"github.com/groupmod/groupmod/event"
	"github.com/groupmod/groupmod/flagstore"
	"github.com/groupmod/groupmod/flood"
	"github.com/groupmod/groupmod/games/truthordare"
	"github.com/groupmod/groupmod/games/wordgame"
	"github.com/groupmod/groupmod/policy"
	"github.com/groupmod/groupmod/ranking"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const DefaultWarnLimit = 3

type Config struct {
	// Warnings after which a member is flagged
	WarnLimit int
	// Idle time after which game sessions are dropped. Zero keeps them forever.
	SessionTTL time.Duration
	// Fail commands on internal inconsistencies instead of degrading output
	StrictInvariants bool
	// Where ranking calendar days begin. Defaults to UTC.
	Location *time.Location
}

// runtime for executing rules and commands against chat events
type Engine struct {
	Logger *slog.Logger
	Rules  RuleSet
	// Slash commands. Populated with DefaultCommands() by NewEngine.
	Commands *CommandSet
	Buttons  map[string]ButtonFunc

	Policy  *policy.Store
	Ranking *ranking.Engine
	Flood   *flood.Tracker
	Rooms   *RoomStore

	Counters countstore.CountStore
	Flags    flagstore.FlagStore
	// used for admin rosters
	Cache cachestore.CacheStore

	Transport Transport
	Roster    Roster

	Words      wordgame.Bank
	HintBudget int
	Deck       truthordare.Deck
	Media      policy.Media

	Config Config
	// Random source; must return a value in [0, n)
	Intn  func(int) int
	Clock func() time.Time
}

// Builds an engine with in-memory state from a policy config. Stores, transport and roster are left for the caller.
func NewEngine(logger *slog.Logger, cfg policy.Config, conf Config) (*Engine, error) {
	store, err := policy.NewStore(cfg)
	if err != nil {
		return nil, err
	}
	if conf.WarnLimit <= 0 {
		conf.WarnLimit = DefaultWarnLimit
	}
	return &Engine{
		Logger:     logger,
		Commands:   DefaultCommands(),
		Buttons:    DefaultButtons(),
		Policy:     store,
		Ranking:    ranking.NewEngine(cfg.Ranking, ranking.WithStrictInvariants(conf.StrictInvariants), ranking.WithLocation(conf.Location)),
		Flood:      flood.NewTracker(flood.DefaultConfig()),
		Rooms:      NewRoomStore(),
		Words:      cfg.Words,
		HintBudget: cfg.HintBudget,
		Deck:       cfg.TruthOrDare,
		Media:      cfg.Media,
		Config:     conf,
		Intn:       rand.IntN,
		Clock:      time.Now,
	}, nil
}

// Entrypoint for all inbound events. Events for a single room must not be processed concurrently.
func (eng *Engine) ProcessEvent(ctx context.Context, env *event.Envelope) (err error) {
	// similar to an HTTP server, we want to recover any panics from rule execution
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("event processing exception", "err", r, "type", env.Type, "id", env.ID)
			eventErrorCount.WithLabelValues(env.Type).Inc()
			err = fmt.Errorf("event processing panic: %v", r)
		}
	}()

	if err := env.Validate(); err != nil {
		eventErrorCount.WithLabelValues("invalid").Inc()
		return err
	}

	ctx, span := otel.Tracer("groupmod").Start(ctx, "ProcessEvent", trace.WithAttributes(
		attribute.String("room", env.RoomID()),
		attribute.String("type", env.Type),
		attribute.String("id", env.ID),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		eventProcessDuration.WithLabelValues(env.Type).Observe(time.Since(start).Seconds())
	}()
	eventProcessCount.WithLabelValues(env.Type).Inc()

	switch env.Type {
	case event.TypeMessage:
		err = eng.processMessage(ctx, env.Message)
	case event.TypeCommand:
		err = eng.processCommand(ctx, env.Command)
	case event.TypeButton:
		err = eng.processButton(ctx, env.Button)
	case event.TypeMembership:
		err = eng.processMembership(ctx, env.Membership)
	}
	if err != nil {
		eventErrorCount.WithLabelValues(env.Type).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (eng *Engine) room(id, title string) *Room {
	r := eng.Rooms.Get(id)
	if title != "" {
		r.Title = title
	}
	return r
}

func (eng *Engine) processMessage(ctx context.Context, msg *event.TextMessage) error {
	if cmd, ok := event.CommandFromMessage(msg); ok {
		return eng.processCommand(ctx, cmd)
	}
	room := eng.room(msg.Room, msg.RoomTitle)
	room.Touch(msg.User.ID, msg.User.Name)

	c := NewMessageContext(ctx, eng, room, msg)
	if err := eng.Rules.CallMessageRules(&c); err != nil {
		c.fail(fmt.Errorf("rule execution failed: %w", err))
	}
	return eng.finish(&c.BaseContext)
}

func (eng *Engine) processCommand(ctx context.Context, cmd *event.Command) error {
	room := eng.room(cmd.Room, cmd.RoomTitle)
	room.Touch(cmd.User.ID, cmd.User.Name)

	c := NewCommandContext(ctx, eng, room, cmd)
	if err := eng.Commands.Call(&c); err != nil {
		c.fail(fmt.Errorf("command %s failed: %w", cmd.Name, err))
	}
	return eng.finish(&c.BaseContext)
}

func (eng *Engine) processButton(ctx context.Context, press *event.ButtonPress) error {
	room := eng.room(press.Room, "")
	c := NewButtonContext(ctx, eng, room, press)
	f, ok := eng.Buttons[press.CallbackID]
	if !ok {
		c.Logger.Debug("ignoring unknown button")
		return nil
	}
	if err := f(&c); err != nil {
		c.fail(fmt.Errorf("button %s failed: %w", press.CallbackID, err))
	}
	return eng.finish(&c.BaseContext)
}

func (eng *Engine) processMembership(ctx context.Context, change *event.MembershipChange) error {
	room := eng.room(change.Room, change.RoomTitle)
	for _, u := range change.Joined {
		room.Touch(u.ID, u.Name)
	}
	c := NewMembershipContext(ctx, eng, room, change)
	if err := eng.Rules.CallMembershipRules(&c); err != nil {
		c.fail(fmt.Errorf("rule execution failed: %w", err))
	}
	return eng.finish(&c.BaseContext)
}

// Commits state (counters, flags) and then executes outbound actions. Action failures are logged and never undo state.
func (eng *Engine) finish(c *BaseContext) error {
	eff := c.effects
	if err := eng.persistCounters(c.Ctx, eff); err != nil {
		c.Logger.Error("failed to persist counters", "err", err)
		c.fail(err)
	}
	if err := eng.persistFlags(c.Ctx, eff); err != nil {
		c.Logger.Error("failed to persist flags", "err", err)
		c.fail(err)
	}
	eng.executeActions(c.Ctx, c.Logger, eff)
	eff.CanonicalLogLine(c.Logger)
	return c.Err
}
