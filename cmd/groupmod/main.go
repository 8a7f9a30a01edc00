package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/groupmod/groupmod/policy"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "groupmod",
		Usage:   "group chat moderation and engagement daemon",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			EnvVars: []string{"GROUPMOD_LOG_LEVEL", "GO_LOG_LEVEL", "LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "policy-file",
			Usage:   "YAML file with initial features, link policy, word lists and game decks",
			EnvVars: []string{"GROUPMOD_POLICY_FILE"},
		},
		&cli.IntFlag{
			Name:    "warn-limit",
			Usage:   "warnings after which a member is flagged",
			Value:   3,
			EnvVars: []string{"GROUPMOD_WARN_LIMIT"},
		},
		&cli.DurationFlag{
			Name:    "session-ttl",
			Usage:   "idle time after which game sessions are dropped (0 keeps them until finished)",
			EnvVars: []string{"GROUPMOD_SESSION_TTL"},
		},
		&cli.StringFlag{
			Name:    "timezone",
			Usage:   "IANA time zone in which ranking days and streaks roll over",
			Value:   "UTC",
			EnvVars: []string{"GROUPMOD_TIMEZONE"},
		},
		&cli.BoolFlag{
			Name:    "strict-invariants",
			Usage:   "fail commands on internal inconsistencies instead of degrading output (for non-production use)",
			EnvVars: []string{"GROUPMOD_STRICT_INVARIANTS"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
		replayCmd,
		simulateCmd,
	}

	return app.Run(args)
}

func configLogger(cctx *cli.Context, writer io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cctx.String("log-level")) {
	case "error":
		level = slog.LevelError
	case "warn":
		level = slog.LevelWarn
	case "info":
		level = slog.LevelInfo
	case "debug":
		level = slog.LevelDebug
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}

func loadPolicy(cctx *cli.Context, logger *slog.Logger) (policy.Config, error) {
	path := cctx.String("policy-file")
	if path == "" {
		return policy.DefaultConfig(), nil
	}
	cfg, err := policy.LoadFile(path)
	if err != nil {
		return policy.Config{}, err
	}
	logger.Info("loaded policy file", "path", path)
	return cfg, nil
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for HTTP APIs",
			Value:   ":3700",
			EnvVars: []string{"GROUPMOD_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3701",
			EnvVars: []string{"GROUPMOD_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "bridge-url",
			Usage:   "base URL of the chat bridge receiving actions; if unset, actions are only logged",
			EnvVars: []string{"GROUPMOD_BRIDGE_URL"},
		},
		&cli.StringFlag{
			Name:    "bridge-token",
			Usage:   "bearer token sent to the chat bridge",
			EnvVars: []string{"GROUPMOD_BRIDGE_TOKEN"},
		},
		&cli.Float64Flag{
			Name:    "send-rate",
			Usage:   "max actions per second sent to the bridge, across all rooms",
			Value:   30,
			EnvVars: []string{"GROUPMOD_SEND_RATE"},
		},
		&cli.Int64Flag{
			Name:    "room-send-limit",
			Usage:   "max actions per room per minute sent to the bridge (deletes and mutes are exempt)",
			Value:   20,
			EnvVars: []string{"GROUPMOD_ROOM_SEND_LIMIT"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL for counters, flags and caches: redis://<user>:<pass>@<hostname>:6379/<db>",
			EnvVars: []string{"GROUPMOD_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "postgres URL for ranking profile snapshots",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.DurationFlag{
			Name:    "profile-sync-interval",
			Usage:   "how often ranking profiles are written to the database",
			Value:   time.Minute,
			EnvVars: []string{"GROUPMOD_PROFILE_SYNC_INTERVAL"},
		},
		&cli.StringSliceFlag{
			Name:    "kafka-brokers",
			Usage:   "kafka brokers to consume events from; if unset, events only arrive over HTTP",
			EnvVars: []string{"GROUPMOD_KAFKA_BROKERS"},
		},
		&cli.StringFlag{
			Name:    "kafka-topic",
			Value:   "groupmod-events",
			EnvVars: []string{"GROUPMOD_KAFKA_TOPIC"},
		},
		&cli.StringFlag{
			Name:    "kafka-group",
			Value:   "groupmod",
			EnvVars: []string{"GROUPMOD_KAFKA_GROUP"},
		},
		&cli.IntFlag{
			Name:    "workers",
			Usage:   "number of rooms processed in parallel",
			Value:   16,
			EnvVars: []string{"GROUPMOD_WORKERS"},
		},
		&cli.IntFlag{
			Name:    "room-queue",
			Usage:   "max events waiting per room (0 for unbounded)",
			Value:   1000,
			EnvVars: []string{"GROUPMOD_ROOM_QUEUE"},
		},
		&cli.DurationFlag{
			Name:    "recompute-interval",
			Usage:   "how often the leaderboard is recomputed and idle flood windows swept",
			Value:   time.Hour,
			EnvVars: []string{"GROUPMOD_RECOMPUTE_INTERVAL"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := configLogger(cctx, os.Stdout)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		shutdownOTEL := configOTEL(ctx, "groupmod")
		defer shutdownOTEL()

		pcfg, err := loadPolicy(cctx, logger)
		if err != nil {
			return err
		}
		econf, err := engineConfig(cctx)
		if err != nil {
			return err
		}

		srv, err := NewServer(ctx, pcfg, Config{
			Logger:              logger,
			Bind:                cctx.String("bind"),
			BridgeURL:           cctx.String("bridge-url"),
			BridgeToken:         cctx.String("bridge-token"),
			SendRate:            cctx.Float64("send-rate"),
			RoomSendLimit:       cctx.Int64("room-send-limit"),
			RedisURL:            cctx.String("redis-url"),
			DatabaseURL:         cctx.String("database-url"),
			ProfileSyncInterval: cctx.Duration("profile-sync-interval"),
			KafkaBrokers:        cctx.StringSlice("kafka-brokers"),
			KafkaTopic:          cctx.String("kafka-topic"),
			KafkaGroup:          cctx.String("kafka-group"),
			Workers:             cctx.Int("workers"),
			RoomQueue:           cctx.Int("room-queue"),
			RecomputeInterval:   cctx.Duration("recompute-interval"),
			Engine:              econf,
		})
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("failed to run groupmod service: %w", err)
		}
		return nil
	},
}
