package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/susu3304/seisanbot/internal/api"
	"github.com/susu3304/seisanbot/internal/bot"
	"github.com/susu3304/seisanbot/internal/commands"
	"github.com/susu3304/seisanbot/internal/config"
	"github.com/susu3304/seisanbot/internal/db"
	"github.com/susu3304/seisanbot/internal/logging"
	"github.com/susu3304/seisanbot/internal/nomikai"
	"github.com/susu3304/seisanbot/internal/solver/backends"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seisanbot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(logging.Config{
		Environment: logging.Environment(cfg.LogEnv),
		Level:       cfg.LogLevel,
	})
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.RunMigrations(ctx); err != nil {
		return err
	}

	sv, err := backends.Open(backends.Config{Backend: cfg.SolverBackend, CBCPath: cfg.CBCPath}, logger)
	if err != nil {
		return err
	}
	logger.Info("solver ready", zap.String("backend", sv.Name()))

	svc := nomikai.NewService(nomikai.Options{
		Solver:          sv,
		TimeLimit:       cfg.SolverTimeLimit,
		MaxParticipants: cfg.MaxParticipants,
		Logger:          logger,
	})

	discordBot, err := bot.New(bot.Options{
		Token: cfg.DiscordToken,
		Deps: &commands.Deps{
			Nomikai:         svc,
			Store:           database,
			Solver:          sv,
			Logger:          logger,
			TimeLimit:       cfg.SolverTimeLimit,
			MaxTimeLimit:    cfg.SolverMaxTimeLimit,
			MaxParticipants: cfg.MaxParticipants,
		},
		Reminders:     database,
		ReminderEvery: cfg.ReminderInterval,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	apiServer := api.New(cfg, database, sv, logger)

	if err := discordBot.Start(); err != nil {
		return err
	}
	defer discordBot.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(apiServer.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return apiServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
