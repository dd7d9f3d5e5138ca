package main

import (
	"context"
	"errors"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cashier/config"
	"cashier/database"
	"cashier/helpers"
	"cashier/jobs"
	"cashier/middlewares"
	"cashier/providers"
	_ "cashier/providers/telegram"
	"cashier/realtime"
	"cashier/routes"
	"cashier/services"
	"cashier/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	return cfg.Build()
}

// openSideChannel returns nil when the channel is not configured or cannot be
// reached, leaving delivery in-app only.
func openSideChannel(cfg *config.Config, logger *zap.Logger) providers.SideChannel {
	if cfg.TelegramBotToken == "" {
		logger.Warn("TELEGRAM_BOT_TOKEN not set, side-channel delivery disabled")
		return nil
	}
	channel, err := providers.Open(cfg.SideChannel, providers.Settings{
		Token:   cfg.TelegramBotToken,
		Timeout: cfg.SideChannelTimeout,
	})
	if err != nil {
		logger.Warn("side channel unavailable, delivering in-app only", zap.String("channel", cfg.SideChannel), zap.Error(err))
		return nil
	}
	return channel
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ invalid configuration: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("❌ invalid LOG_LEVEL %q: %v", cfg.LogLevel, err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	db, err := database.Connect(cfg.DB, logger)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer database.Close(db)

	channel := openSideChannel(cfg, logger)

	var pusher services.Pusher
	if cfg.RedisAddr != "" {
		rdb := realtime.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(ctx); err != nil {
			logger.Warn("redis ping failed, realtime push is best effort", zap.Error(err))
		}
		cancel()
		defer rdb.Close()
		pusher = rdb
	}

	store, err := storage.NewLocal(cfg.ProofDir, "/proofs")
	if err != nil {
		logger.Fatal("proof storage unavailable", zap.Error(err))
	}

	app := services.New(db, services.Options{
		Limits: cfg.Limits,
		Fanout: services.FanoutOptions{
			Channel:     channel,
			Pusher:      pusher,
			Timeout:     cfg.SideChannelTimeout,
			Concurrency: cfg.BroadcastConcurrency,
		},
		ProofStore:        store,
		ProofMaxBytes:     cfg.ProofMaxBytes,
		ProofMaxDimension: cfg.ProofMaxDimension,
	}, logger)

	server := fiber.New(fiber.Config{
		AppName:      "cashier",
		BodyLimit:    int(cfg.ProofMaxBytes) + 1<<20,
		ErrorHandler: helpers.ErrorHandler,
	})
	server.Use(middlewares.RequestLogger(logger.Named("http")))
	routes.Setup(server, app, routes.Options{JWTSecret: cfg.JWTSecret, ProofDir: cfg.ProofDir})

	scheduler, err := jobs.NewScheduler(db, app.Fanout, jobs.Options{
		DigestSpec:    cfg.PendingDigestCron,
		RetentionDays: cfg.NotificationRetentionDays,
	}, logger.Named("jobs"))
	if err != nil {
		logger.Fatal("scheduler setup failed", zap.Error(err))
	}
	scheduler.Start()

	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	logger.Info("server running", zap.String("addr", addr))

	go func() {
		if err := server.Listen(addr); err != nil {
			logger.Panic("failed to start server", zap.Error(err))
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logger.Info("gracefully shutting down")
	if err := server.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	scheduler.Stop(ctx)
	app.Fanout.Wait()
	logger.Info("server exited cleanly")
}
