package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/groupmod/groupmod/event"
	"github.com/groupmod/groupmod/transport"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/hashicorp/go-cleanhttp"
	cli "github.com/urfave/cli/v2"
)

var simulateCmd = &cli.Command{
	Name:  "simulate",
	Usage: "generate synthetic chat traffic, either into a running daemon or through an in-process engine",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "target",
			Usage:   "base URL of a running groupmod daemon; if unset, events run in-process and actions are printed",
			EnvVars: []string{"GROUPMOD_SIMULATE_TARGET"},
		},
		&cli.IntFlag{
			Name:  "count",
			Usage: "number of events to generate",
			Value: 200,
		},
		&cli.IntFlag{
			Name:  "rooms",
			Value: 3,
		},
		&cli.IntFlag{
			Name:  "users",
			Usage: "members per room",
			Value: 8,
		},
		&cli.Int64Flag{
			Name:  "seed",
			Usage: "random seed (0 picks one)",
		},
		&cli.IntFlag{
			Name:  "batch",
			Usage: "events per HTTP request",
			Value: 20,
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := configLogger(cctx, os.Stderr)

		seed := cctx.Int64("seed")
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		sim := NewSimulator(gofakeit.New(seed), cctx.Int("rooms"), cctx.Int("users"), time.Now())
		envs := sim.Events(cctx.Int("count"))
		logger.Info("generated events", "count", len(envs), "seed", seed)

		if target := cctx.String("target"); target != "" {
			return postEvents(cctx.Context, target, envs, cctx.Int("batch"))
		}

		pcfg, err := loadPolicy(cctx, logger)
		if err != nil {
			return err
		}
		conf, err := engineConfig(cctx)
		if err != nil {
			return err
		}
		eng, err := newEngine(logger, pcfg, conf)
		if err != nil {
			return err
		}
		lt := &transport.Log{Out: os.Stdout, Rosters: sim.Rosters()}
		eng.Transport = lt
		eng.Roster = lt
		failed := 0
		for _, env := range envs {
			if err := eng.ProcessEvent(cctx.Context, env); err != nil {
				failed++
				logger.Warn("event failed", "id", env.ID, "err", err)
			}
		}
		logger.Info("simulation complete", "events", len(envs), "failed", failed)
		return nil
	},
}

var simulatedCommands = [][]string{
	{"rank"},
	{"leaderboard"},
	{"mcount"},
	{"warnings"},
	{"wordgame"},
	{"hint"},
	{"truthordare"},
	{"tod_join"},
	{"truth"},
	{"dare"},
	{"emoji"},
	{"features"},
}

// Generates a plausible mix of chat events: mostly chatter, with greetings, links, spam, floods, commands and members
// coming and going. The first user of every room is its admin.
type Simulator struct {
	faker *gofakeit.Faker
	rooms []string
	users map[string][]event.User
	now   time.Time
	seq   int
}

func NewSimulator(faker *gofakeit.Faker, rooms, users int, start time.Time) *Simulator {
	if rooms < 1 {
		rooms = 1
	}
	if users < 1 {
		users = 1
	}
	s := &Simulator{
		faker: faker,
		users: make(map[string][]event.User),
		now:   start,
	}
	for i := 0; i < rooms; i++ {
		room := fmt.Sprintf("-100%d", faker.Number(100000, 999999))
		s.rooms = append(s.rooms, room)
		for j := 0; j < users; j++ {
			s.users[room] = append(s.users[room], event.User{
				ID:       fmt.Sprintf("%d", faker.Number(10000000, 99999999)),
				Name:     faker.FirstName(),
				Username: strings.ToLower(faker.Username()),
			})
		}
	}
	return s
}

func (s *Simulator) Rosters() map[string][]event.User {
	out := make(map[string][]event.User, len(s.rooms))
	for _, r := range s.rooms {
		out[r] = s.users[r][:1]
	}
	return out
}

func (s *Simulator) Events(n int) []*event.Envelope {
	out := make([]*event.Envelope, 0, n)
	for len(out) < n {
		out = append(out, s.next()...)
	}
	return out[:n]
}

func (s *Simulator) tick(d time.Duration) time.Time {
	s.now = s.now.Add(d)
	return s.now
}

func (s *Simulator) id() string {
	s.seq++
	return fmt.Sprintf("sim-%d", s.seq)
}

func (s *Simulator) message(room string, u event.User, text string, gap time.Duration) *event.Envelope {
	return &event.Envelope{
		ID:   s.id(),
		Type: event.TypeMessage,
		Message: &event.TextMessage{
			Room:      room,
			User:      u,
			Text:      text,
			MessageID: fmt.Sprintf("%d", s.seq),
			Timestamp: s.tick(gap),
		},
	}
}

func (s *Simulator) next() []*event.Envelope {
	f := s.faker
	room := s.rooms[f.Number(0, len(s.rooms)-1)]
	members := s.users[room]
	u := members[f.Number(0, len(members)-1)]

	switch roll := f.Number(1, 100); {
	case roll <= 55:
		return []*event.Envelope{s.message(room, u, f.Sentence(f.Number(2, 14)), 20*time.Second)}
	case roll <= 62:
		greeting := f.RandomString([]string{"hello", "hi everyone", "hey", "good morning"})
		return []*event.Envelope{s.message(room, u, greeting, 20*time.Second)}
	case roll <= 70:
		text := fmt.Sprintf("%s %s", f.Sentence(4), f.URL())
		return []*event.Envelope{s.message(room, u, text, 20*time.Second)}
	case roll <= 73:
		return []*event.Envelope{s.message(room, u, strings.Repeat(f.Letter(), 12), 20*time.Second)}
	case roll <= 76:
		burst := make([]*event.Envelope, 0, 7)
		for i := 0; i < 7; i++ {
			burst = append(burst, s.message(room, u, f.Word(), time.Second))
		}
		return burst
	case roll <= 94:
		cmd := simulatedCommands[f.Number(0, len(simulatedCommands)-1)]
		return []*event.Envelope{{
			ID:   s.id(),
			Type: event.TypeCommand,
			Command: &event.Command{
				Room:      room,
				User:      u,
				Name:      cmd[0],
				Args:      cmd[1:],
				MessageID: fmt.Sprintf("%d", s.seq),
				Timestamp: s.tick(20 * time.Second),
			},
		}}
	default:
		joined := event.User{
			ID:       fmt.Sprintf("%d", f.Number(10000000, 99999999)),
			Name:     f.FirstName(),
			Username: strings.ToLower(f.Username()),
		}
		s.users[room] = append(s.users[room], joined)
		s.tick(time.Minute)
		return []*event.Envelope{{
			ID:         s.id(),
			Type:       event.TypeMembership,
			Membership: &event.MembershipChange{Room: room, Joined: []event.User{joined}},
		}}
	}
}

func postEvents(ctx context.Context, target string, envs []*event.Envelope, batch int) error {
	if batch < 1 {
		batch = 1
	}
	client := cleanhttp.DefaultClient()
	client.Timeout = 30 * time.Second
	u := strings.TrimSuffix(target, "/") + "/events"
	for i := 0; i < len(envs); i += batch {
		end := min(i+batch, len(envs))
		body, err := json.Marshal(envs[i:end])
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			return fmt.Errorf("posting events %d-%d: status %d: %s", i, end, resp.StatusCode, msg)
		}
	}
	return nil
}
