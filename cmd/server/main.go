package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	router "github.com/dkeye/Rooms/internal/adapters/http"
	"github.com/dkeye/Rooms/internal/app"
	"github.com/dkeye/Rooms/internal/app/orch"
	"github.com/dkeye/Rooms/internal/config"
	"github.com/dkeye/Rooms/internal/core"
	"github.com/dkeye/Rooms/internal/journal"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	fs := pflag.NewFlagSet("rooms-server", pflag.ExitOnError)
	config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		log.Warn().Err(err).Str("level", cfg.LogLevel).Msg("unknown log level, keeping info")
	}

	var jr journal.Journal = journal.Nop{}
	if cfg.Journal.RedisAddr != "" {
		rj, err := journal.NewRedis(ctx, journal.RedisOptions{
			Addr:   cfg.Journal.RedisAddr,
			DB:     cfg.Journal.RedisDB,
			Queue:  cfg.Journal.Queue,
			MaxLen: cfg.Journal.MaxLen,
		})
		if err != nil {
			log.Error().Err(err).Msg("event journal disabled")
		} else {
			jr = rj
		}
	}
	defer func() {
		if err := jr.Close(); err != nil {
			log.Error().Err(err).Msg("close journal")
		}
	}()

	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    core.NewRoomManager(core.NewJoinCodeGenerator(cfg.JoinCodeLength)),
		Policy:   app.SimplePolicy{},
		Journal:  jr,
	}

	r := router.SetupRouter(ctx, cfg, o)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Rooms directory server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
