package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/Sheulydsp/kanban-dashboard/api"
	"github.com/Sheulydsp/kanban-dashboard/board"
	"github.com/Sheulydsp/kanban-dashboard/config"
	"github.com/Sheulydsp/kanban-dashboard/notify"
	"github.com/Sheulydsp/kanban-dashboard/storage"
	"github.com/Sheulydsp/kanban-dashboard/telemetry"
)

func main() {
	configPath := flag.String("config", os.Getenv("BOARD_CONFIG"), "path to a YAML config file")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("dotenv: %v", err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := log.New()
	if cfg.Server.Debug {
		logger.SetLevel(log.DebugLevel)
	}
	if cfg.Server.LogFormat == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	}

	shutdownTelemetry, err := telemetry.Setup(cfg.Telemetry)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rc, err := cfg.NewRedisClient()
	if err != nil {
		log.Fatalf("redis: %v", err)
	}

	repo, closeRepo, err := storage.Open(ctx, cfg, rc, logger)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer closeRepo()

	store := board.New(repo, logger)
	if err := store.Load(ctx); err != nil {
		log.Fatalf("load tasks: %v", err)
	}

	broker := api.NewBroker()
	store.Subscribe(broker.Notify)

	var deduper api.Deduper
	if rc != nil {
		deduper = api.NewRedisDeduper(rc, cfg.Redis.DedupeTTL)
		if cfg.Redis.UpdatesChannel != "" {
			store.Subscribe(notify.NewRedisPublisher(rc, cfg.Redis.UpdatesChannel, logger).Notify)
		}
	}

	var events *notify.QueueNotifier
	if cfg.Queue.Name != "" {
		qc, err := notify.NewQueueClient(cfg.Queue.ConnectionString, cfg.Queue.Name)
		if err != nil {
			log.Fatalf("queue: %v", err)
		}
		events = notify.NewQueueNotifier(qc, notify.QueueOptions{
			Workers:        cfg.Queue.Workers,
			Buffer:         cfg.Queue.Buffer,
			Timeout:        cfg.Queue.Timeout,
			HandoffTimeout: cfg.Queue.HandoffTimeout,
		}, logger)
		store.Subscribe(events.Notify)
	}

	e := echo.New()
	e.HideBanner = true
	e.JSONSerializer = api.SonicSerializer{}
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderContentEncoding, "Idempotency-Key"},
	}))
	e.Use(echoprometheus.NewMiddleware("kanban"))
	e.Use(api.GzipRequestMiddleware())
	e.GET("/metrics", echoprometheus.NewHandler())

	api.Register(e, store, deduper, broker, logger)

	// Open event streams end with the process context.
	e.Server.BaseContext = func(net.Listener) context.Context { return ctx }

	go func() {
		if err := e.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatal(err)
		}
	}()
	logger.WithFields(log.Fields{"addr": cfg.Server.Addr, "tasks": len(store.Tasks())}).Info("board api started")

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server shutdown")
	}
	if events != nil {
		events.Close()
	}
	if rc != nil {
		_ = rc.Close()
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.WithError(err).Warn("telemetry shutdown")
	}
}
