package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/mka142/ccw-platform-sub001/internal/broadcast"
	"github.com/mka142/ccw-platform-sub001/internal/config"
	"github.com/mka142/ccw-platform-sub001/internal/database"
	"github.com/mka142/ccw-platform-sub001/internal/heartbeat"
	"github.com/mka142/ccw-platform-sub001/internal/jobs"
	"github.com/mka142/ccw-platform-sub001/internal/logging"
	"github.com/mka142/ccw-platform-sub001/internal/redis"
	"github.com/mka142/ccw-platform-sub001/internal/registry"
	"github.com/mka142/ccw-platform-sub001/internal/scheduler"
	"github.com/mka142/ccw-platform-sub001/internal/server"
)

const shutdownTimeout = 10 * time.Second

// redisPinger adapts the go-redis client to the health check interface.
type redisPinger struct {
	client *goredis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	rdb, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	clock := clockwork.NewRealClock()

	devices := database.NewDeviceRepo(pool)
	concerts := database.NewConcertRepo(pool)
	events := database.NewEventRepo(pool)
	recordings := redis.NewRecordingRepo(rdb, clock)

	reg := registry.New()
	broadcaster := broadcast.New(devices, concerts, events, reg)

	monitor := heartbeat.NewMonitor(devices, concerts, reg, cfg.HeartbeatInterval, clock)
	go monitor.Start(ctx)

	sched := scheduler.New(clock)
	userStatus := jobs.NewUserStatusValidator(devices, concerts, cfg.LivenessWindow, clock)
	recordingTimeout := jobs.NewRecordingTimeoutValidator(recordings, clock)
	sched.Schedule(ctx, "user-status-validation", userStatus.Run, cfg.UserStatusInterval)
	sched.Schedule(ctx, "recording-timeout-validation", recordingTimeout.Run, cfg.RecordingInterval)

	srv := server.NewServer(cfg, devices, concerts, events, recordings, reg, broadcaster, monitor, pool, redisPinger{client: rdb})

	go func() {
		slog.Info("Server starting", "port", cfg.Port, "env", cfg.AppEnv)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	monitor.Stop()
	sched.Stop()
	reg.Stop()

	slog.Info("Shutdown complete")
}
