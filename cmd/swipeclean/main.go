package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/swipeclean/swipeclean/internal/api"
	"github.com/swipeclean/swipeclean/internal/config"
	"github.com/swipeclean/swipeclean/internal/database"
	"github.com/swipeclean/swipeclean/internal/library"
	"github.com/swipeclean/swipeclean/internal/library/localfs"
	"github.com/swipeclean/swipeclean/internal/library/mock"
	"github.com/swipeclean/swipeclean/internal/logger"
	"github.com/swipeclean/swipeclean/internal/processed"
	"github.com/swipeclean/swipeclean/internal/review"
	"github.com/swipeclean/swipeclean/internal/scheduler"
	"github.com/swipeclean/swipeclean/internal/triage"
	"github.com/swipeclean/swipeclean/internal/watcher"
	"github.com/swipeclean/swipeclean/internal/websocket"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Path:       cfg.Logging.Path,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	defer log.Close()

	log.Info().
		Str("version", api.Version).
		Str("provider", cfg.Library.Provider).
		Str("db", cfg.Database.Path).
		Msg("SwipeClean starting")

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	source, err := newSource(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create media source")
	}

	hub := websocket.NewHub()
	go hub.Run()

	processedStore := processed.NewStore(db.Conn(), cfg.Triage.ProcessedLimit, log.Logger)
	reviewService := review.NewService(db.Conn(), api.Version, log.Logger)

	triageService := triage.NewService(source, processedStore, triage.Config{
		DeleteBatchThreshold: cfg.Triage.DeleteBatchThreshold,
		DeleteFlushDelay:     cfg.Triage.DeleteFlushDelay,
		NoticeDismissDelay:   cfg.Triage.NoticeDismissDelay,
	}, log.Logger)
	triageService.SetReviewRecorder(reviewService)
	triageService.SetBroadcaster(hub)

	ctx := context.Background()
	reviewService.RecordLaunch(ctx)
	triageService.Bootstrap(ctx)

	var mediaWatcher *watcher.Watcher
	if cfg.Library.Provider == "localfs" && cfg.Library.Watch {
		mediaWatcher, err = watcher.New(watcher.DefaultConfig(), log.Logger)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to create media watcher")
		} else {
			mediaWatcher.SetHandler(func(events []watcher.Event) {
				log.Debug().Int("events", len(events)).Msg("Media root changed, reloading library")
				// Rebuild the queue so externally added or removed files
				// show up; the reload also refreshes the album list.
				triageService.ReloadLibrary(context.Background(), false)
			})
			if err := mediaWatcher.Watch(cfg.Library.Root); err != nil {
				log.Warn().Err(err).Msg("Failed to watch media root")
			} else {
				mediaWatcher.Start()
			}
		}
	}

	sched, err := scheduler.New(log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	registerTasks(sched, triageService, log)
	sched.Start()

	server := api.NewServer(triageService, reviewService, sched, hub, log.Logger)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(cfg.Server.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Pending deletions must not be lost on exit.
	triageService.FlushPendingDeletes(shutdownCtx)

	if mediaWatcher != nil {
		if err := mediaWatcher.Stop(); err != nil {
			log.Warn().Err(err).Msg("Failed to stop media watcher")
		}
	}
	if err := sched.Stop(); err != nil {
		log.Warn().Err(err).Msg("Failed to stop scheduler")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Failed to shut down HTTP server")
	}

	log.Info().Msg("SwipeClean stopped")
}

func newSource(cfg *config.Config, log *logger.Logger) (library.Source, error) {
	switch cfg.Library.Provider {
	case "localfs":
		return localfs.New(cfg.Library.Root, cfg.Library.Trash, log.Logger)
	case "mock":
		return mock.New(), nil
	default:
		return nil, fmt.Errorf("unknown library provider %q", cfg.Library.Provider)
	}
}

func registerTasks(sched *scheduler.Scheduler, triageService *triage.Service, log *logger.Logger) {
	tasks := []scheduler.TaskConfig{
		{
			ID:          "albums-refresh",
			Name:        "Album Refresh",
			Description: "Re-reads the album list from the media source",
			Interval:    time.Hour,
			RunOnStart:  true,
			Func: func(ctx context.Context) error {
				triageService.RefreshAlbums(ctx)
				return nil
			},
		},
		{
			ID:          "pending-flush",
			Name:        "Pending Delete Flush",
			Description: "Commits any delete batch left waiting by a stalled debounce cycle",
			Interval:    5 * time.Minute,
			Func: func(ctx context.Context) error {
				triageService.Flush(ctx)
				return nil
			},
		},
	}

	for _, task := range tasks {
		if err := sched.RegisterTask(task); err != nil {
			log.Warn().Err(err).Str("task", task.ID).Msg("Failed to register task")
		}
	}
}
