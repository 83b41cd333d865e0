package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mossy-p/realtime-signaling/config"
	"github.com/mossy-p/realtime-signaling/internal/calls"
	"github.com/mossy-p/realtime-signaling/internal/handlers"
	"github.com/mossy-p/realtime-signaling/internal/logger"
	"github.com/mossy-p/realtime-signaling/internal/messenger"
	"github.com/mossy-p/realtime-signaling/internal/presence"
	"github.com/mossy-p/realtime-signaling/internal/redis"
	"github.com/mossy-p/realtime-signaling/internal/registry"
	"github.com/mossy-p/realtime-signaling/internal/rooms"
	"github.com/mossy-p/realtime-signaling/internal/runner"
	"github.com/mossy-p/realtime-signaling/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg := config.Load()
	log := logger.New(cfg.IsProduction())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to Redis
	redisClient, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer redisClient.Close()
	log.Info().Msg("Redis connection established")

	db, err := store.OpenSQL(cfg.DatabasePath, !cfg.IsProduction())
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("failed to open database")
	}
	defer store.CloseSQL(db)

	users := store.NewUserStore(db)
	reg := registry.New()
	sender := messenger.New(reg, log)
	online := presence.NewController(reg, sender, log)
	roomManager := rooms.NewManager(
		store.NewRoomStore(redisClient, cfg.Signaling.RoomMessageTTL),
		sender,
		rooms.Options{RequireMembership: cfg.Signaling.RequireMembership},
		log,
	)
	machine := calls.NewMachine(store.NewCallStore(db), users, sender, log)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	h := handlers.NewHandler(handlers.Deps{
		Rooms:      roomManager,
		Calls:      machine,
		Presence:   online,
		Users:      users,
		JWTSecret:  cfg.JWTSecret,
		SendBuffer: cfg.Signaling.SendBufferSize,
		Logger:     log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(h, cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	r := runner.New(ctx)

	r.Go(func(ctx context.Context) error {
		log.Info().Str("port", cfg.Port).Msg("starting signaling server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	r.Go(func(ctx context.Context) error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// hijacked WebSocket connections are not tracked by Shutdown
		n := online.CloseAll()
		log.Info().Int("connections", n).Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Signaling.CallRingTimeout > 0 {
		sweeper := calls.NewSweeper(machine, cfg.Signaling.CallRingTimeout, 0, log)
		r.Go(sweeper.Run)
	}

	if err := r.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return
	}
	log.Info().Msg("server stopped")
}
