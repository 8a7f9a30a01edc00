package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/groupmod/groupmod/engine"
	"github.com/groupmod/groupmod/event"
	"github.com/groupmod/groupmod/transport"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v2"
)

var replayCmd = &cli.Command{
	Name:      "replay",
	Usage:     "run a file of JSON-lines events through the engine, printing resulting actions",
	ArgsUsage: "<events.jsonl|->",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "admin",
			Usage: "room admin as <room>:<user-id>[:<name>]; may be repeated",
		},
	},
	Action: func(cctx *cli.Context) error {
		// actions go to stdout, so logs go to stderr
		logger := configLogger(cctx, os.Stderr)
		if cctx.Args().Len() != 1 {
			return fmt.Errorf("expected a single events file argument")
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
		rosters, err := parseAdmins(cctx.StringSlice("admin"))
		if err != nil {
			return err
		}
		lt := &transport.Log{Out: os.Stdout, Rosters: rosters}
		eng.Transport = lt
		eng.Roster = lt

		var in io.Reader = os.Stdin
		if p := cctx.Args().First(); p != "-" {
			f, err := os.Open(p)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		n, failed, err := replay(cctx.Context, eng, in, logger)
		logger.Info("replay complete", "events", n, "failed", failed)
		return err
	},
}

func parseAdmins(entries []string) (map[string][]event.User, error) {
	out := make(map[string][]event.User)
	for _, e := range entries {
		parts := strings.SplitN(e, ":", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid admin entry %q (want <room>:<user-id>[:<name>])", e)
		}
		u := event.User{ID: parts[1], Name: parts[1]}
		if len(parts) == 3 && parts[2] != "" {
			u.Name = parts[2]
		}
		out[parts[0]] = append(out[parts[0]], u)
	}
	return out, nil
}

// Processes events one at a time in file order. Blank lines are skipped; a line that fails to parse stops the replay,
// while a failed event is logged and counted.
func replay(ctx context.Context, eng *engine.Engine, in io.Reader, logger *slog.Logger) (int, int, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var n, failed, line int
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var env event.Envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			return n, failed, fmt.Errorf("line %d: %w", line, err)
		}
		if env.ID == "" {
			env.ID = uuid.NewString()
		}
		n++
		if err := eng.ProcessEvent(ctx, &env); err != nil {
			failed++
			logger.Warn("event failed", "line", line, "id", env.ID, "err", err)
		}
	}
	return n, failed, scanner.Err()
}
