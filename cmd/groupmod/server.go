package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/groupmod/groupmod/cachestore"
	"github.com/groupmod/groupmod/countstore"
	"github.com/groupmod/groupmod/engine"
	"github.com/groupmod/groupmod/event"
	"github.com/groupmod/groupmod/flagstore"
	"github.com/groupmod/groupmod/policy"
	"github.com/groupmod/groupmod/ranking"
	"github.com/groupmod/groupmod/rules"
	"github.com/groupmod/groupmod/scheduler"
	"github.com/groupmod/groupmod/transport"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	slogecho "github.com/samber/slog-echo"
	cli "github.com/urfave/cli/v2"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

const redisPrefix = "groupmod/"

type Server struct {
	logger *slog.Logger
	engine *engine.Engine
	sched  *scheduler.Scheduler
	echo   *echo.Echo
	httpd  *http.Server
	rdb    *redis.Client

	profiles    *ranking.PostgresProfileStore
	profileSync *ranking.SyncWorker
	kafka       *KafkaConsumer

	recomputeInterval time.Duration
}

type Config struct {
	Logger              *slog.Logger
	Bind                string
	BridgeURL           string
	BridgeToken         string
	SendRate            float64
	RoomSendLimit       int64
	RedisURL            string
	DatabaseURL         string
	ProfileSyncInterval time.Duration
	KafkaBrokers        []string
	KafkaTopic          string
	KafkaGroup          string
	Workers             int
	RoomQueue           int
	RecomputeInterval   time.Duration
	Engine              engine.Config
}

func engineConfig(cctx *cli.Context) (engine.Config, error) {
	conf := engine.Config{
		WarnLimit:        cctx.Int("warn-limit"),
		SessionTTL:       cctx.Duration("session-ttl"),
		StrictInvariants: cctx.Bool("strict-invariants"),
	}
	if tz := cctx.String("timezone"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return engine.Config{}, fmt.Errorf("invalid timezone %q: %w", tz, err)
		}
		conf.Location = loc
	}
	return conf, nil
}

// Engine with the default rules over in-process stores. Callers swap in redis stores and a transport as configured.
func newEngine(logger *slog.Logger, pcfg policy.Config, conf engine.Config) (*engine.Engine, error) {
	eng, err := engine.NewEngine(logger, pcfg, conf)
	if err != nil {
		return nil, fmt.Errorf("initializing engine: %w", err)
	}
	eng.Rules = rules.DefaultRules()
	eng.Counters = countstore.NewMemCountStore()
	eng.Flags = flagstore.NewMemFlagStore()
	eng.Cache = cachestore.NewMemCacheStore(5_000, 30*time.Minute)
	return eng, nil
}

func NewServer(ctx context.Context, pcfg policy.Config, config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	eng, err := newEngine(logger, pcfg, config.Engine)
	if err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if config.RedisURL != "" {
		opt, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %v", err)
		}
		rdb = redis.NewClient(opt)
		// check redis connection
		_, err = rdb.Ping(ctx).Result()
		if err != nil {
			return nil, fmt.Errorf("redis ping failed: %v", err)
		}
		eng.Counters = countstore.NewRedisCountStore(rdb, redisPrefix)
		eng.Flags = flagstore.NewRedisFlagStore(rdb, redisPrefix)
		eng.Cache = cachestore.NewRedisCacheStore(rdb, redisPrefix, 30*time.Minute)
		logger.Info("using redis for counters, flags and caches")
	}

	if config.BridgeURL != "" {
		wh := transport.NewWebhook(transport.WebhookConfig{
			BaseURL:       config.BridgeURL,
			Token:         config.BridgeToken,
			SendRate:      config.SendRate,
			RoomLimit:     config.RoomSendLimit,
			RosterRetries: 2,
		}, logger)
		eng.Transport = wh
		eng.Roster = wh
	} else {
		logger.Warn("no bridge configured, actions will only be logged")
		lt := &transport.Log{Logger: logger}
		eng.Transport = lt
		eng.Roster = lt
	}

	s := &Server{
		logger:            logger,
		engine:            eng,
		rdb:               rdb,
		recomputeInterval: config.RecomputeInterval,
	}

	if config.DatabaseURL != "" {
		store, err := ranking.NewPostgresProfileStore(ctx, config.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		interval := config.ProfileSyncInterval
		if interval <= 0 {
			interval = time.Minute
		}
		s.profiles = store
		s.profileSync = ranking.NewSyncWorker(eng.Ranking, store, interval, logger)
	}

	// events already accepted are still processed (and their actions sent) after shutdown begins
	s.sched = scheduler.NewScheduler(context.WithoutCancel(ctx), config.Workers, config.RoomQueue, "rooms", eng.ProcessEvent)

	if len(config.KafkaBrokers) > 0 {
		kc, err := NewKafkaConsumer(KafkaConfig{
			Brokers: config.KafkaBrokers,
			Topic:   config.KafkaTopic,
			GroupID: config.KafkaGroup,
		}, s.Submit, logger)
		if err != nil {
			return nil, fmt.Errorf("initializing kafka consumer: %w", err)
		}
		s.kafka = kc
	}

	s.setupHTTP(config.Bind)
	return s, nil
}

func (s *Server) setupHTTP(bind string) {
	e := echo.New()

	// httpd
	var (
		httpTimeout        = 1 * time.Minute
		httpMaxHeaderBytes = 1 * (1024 * 1024)
	)

	s.echo = e
	s.httpd = &http.Server{
		Handler:        s,
		Addr:           bind,
		WriteTimeout:   httpTimeout,
		ReadTimeout:    httpTimeout,
		MaxHeaderBytes: httpMaxHeaderBytes,
	}

	e.HideBanner = true
	e.Use(slogecho.New(s.logger))
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("groupmod"))
	e.Use(echoprometheus.NewMiddleware("groupmod"))
	e.Use(middleware.BodyLimit("4M"))

	e.GET("/_health", s.HandleHealthCheck)
	e.POST("/events", s.HandleEvents)
}

func (s *Server) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	s.echo.ServeHTTP(rw, req)
}

// Assigns an ID if the event has none, checks it, and queues it behind earlier events for the same room.
func (s *Server) Submit(ctx context.Context, env *event.Envelope) error {
	if env.ID == "" {
		env.ID = uuid.NewString()
	}
	if err := env.Validate(); err != nil {
		return err
	}
	return s.sched.AddWork(ctx, env.RoomID(), env)
}

func (s *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

// Periodically recomputes the leaderboard and drops idle flood windows.
func (s *Server) RunMaintenance(ctx context.Context) {
	if s.recomputeInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.recomputeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			s.engine.Ranking.Recompute(now)
			swept := s.engine.Flood.Sweep(now)
			s.logger.Info("periodic maintenance", "profiles", s.engine.Ranking.Len(), "floodSwept", swept)
		}
	}
}

// Runs until ctx is cancelled, then drains queued events and flushes state.
func (s *Server) Run(ctx context.Context) error {
	if s.profileSync != nil {
		if err := s.profileSync.Restore(ctx); err != nil {
			return fmt.Errorf("restoring ranking profiles: %w", err)
		}
		s.profileSync.Start(ctx)
	}

	if s.kafka != nil {
		if err := s.kafka.Start(ctx); err != nil {
			return err
		}
	}

	go s.RunMaintenance(ctx)

	s.logger.Info("starting server", "bind", s.httpd.Addr)
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpd.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("received exit signal")
	case err := <-errCh:
		s.logger.Error("HTTP server shutting down unexpectedly", "err", err)
		runErr = err
	}

	s.Shutdown()
	s.logger.Info("graceful shutdown complete")
	return runErr
}

func (s *Server) Shutdown() {
	s.logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpd.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "err", err)
	}
	if s.kafka != nil {
		if err := s.kafka.Stop(); err != nil {
			s.logger.Error("kafka consumer shutdown error", "err", err)
		}
	}
	s.sched.Shutdown()

	if s.profileSync != nil {
		if err := s.profileSync.Stop(ctx); err != nil {
			s.logger.Error("failed to flush ranking profiles", "err", err)
		}
	}
	if s.profiles != nil {
		s.profiles.Close()
	}
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			s.logger.Error("redis close error", "err", err)
		}
	}
}
