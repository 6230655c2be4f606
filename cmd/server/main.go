package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/adapters/http"
	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/app"
	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/app/orch"
	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/app/quiz"
	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/config"
	"github.com/sadiyakhan2004/Live-Quiz-App-sub000/internal/media"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	engine, err := media.NewEngine(media.Options{
		ListenIP:    cfg.ListenIP,
		AnnouncedIP: cfg.AnnouncedIP,
		RtcMinPort:  cfg.RtcMinPort,
		RtcMaxPort:  cfg.RtcMaxPort,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start media worker")
	}
	engine.OnDied(func() {
		// Unrecoverable: exit and let the supervisor restart us.
		log.Error().Msg("media worker died, exiting in 2s")
		time.Sleep(2 * time.Second)
		os.Exit(1)
	})

	registry := app.NewRegistry()
	dispatch := app.NewDispatcher(registry)
	quizzes := quiz.NewEngine(dispatch)

	o := &orch.Orchestrator{
		Registry: registry,
		Engine:   engine,
		Dispatch: dispatch,
		Quiz:     quizzes,
	}

	r := router.SetupRouter(ctx, cfg, o)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("live quiz server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	engine.Close()
	log.Info().Msg("Server exited gracefully")
}
