package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/conorfennell/knoldeck/internal/config"
	"github.com/conorfennell/knoldeck/internal/domain"
	"github.com/conorfennell/knoldeck/internal/fsrs"
	"github.com/conorfennell/knoldeck/internal/leitner"
	"github.com/conorfennell/knoldeck/internal/logger"
	"github.com/conorfennell/knoldeck/internal/storage"
	"github.com/conorfennell/knoldeck/internal/sync"
	"github.com/conorfennell/knoldeck/internal/web"
)

func main() {
	// 1. Define and parse command-line flags
	f := config.Flags()
	addSources := f.StringSlice("add-source", nil, "Register a deck source (local directory or git URL) before syncing")
	removeSources := f.StringSlice("remove-source", nil, "Unregister a deck source; its scheduling state is kept")
	serve := f.Bool("serve", false, "Serve the review API after syncing")
	f.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: knoldeck [flags]\n\n%s", f.FlagUsages())
	}

	cfg, err := config.Parse(f, os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "knoldeck: %v\n", err)
		os.Exit(2)
	}
	logger.Setup(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	// 2. Open the database
	db, err := storage.Open(cfg.DB)
	if err != nil {
		slog.Error("Failed to open database", "path", cfg.DB, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("Database opened", "path", cfg.DB)

	// 3. Register sources and sync every deck
	syncer := sync.New(db, cfg.ReposDir, newScheduler(cfg))
	syncer.Progress = os.Stderr
	for _, src := range append(cfg.Sources, *addSources...) {
		if _, err := syncer.AddSource(src); err != nil {
			slog.Error("Failed to add source", "path", src, "error", err)
			os.Exit(1)
		}
	}
	for _, src := range *removeSources {
		if err := syncer.RemoveSource(src); err != nil {
			slog.Error("Failed to remove source", "path", src, "error", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	decks, syncErr := syncer.Run(ctx)
	if syncErr != nil {
		slog.Warn("Sync finished with errors", "error", syncErr)
	}

	if !*serve {
		report(db, decks, syncErr)
		return
	}

	// 4. Serve the review API until interrupted
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           web.NewServer(decks, syncer.Run),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Server shutdown failed", "error", err)
		}
	}()

	slog.Info("Starting review API", "addr", cfg.Addr, "decks", len(decks))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func newScheduler(cfg *config.Config) domain.Scheduler {
	if cfg.Scheduler == leitner.Name {
		return leitner.New(cfg.Leitner.Boxes)
	}
	return fsrs.NewScheduler(&cfg.FSRS)
}

// report prints one line per deck followed by any sync errors.
func report(db *storage.DB, decks []*domain.Deck, syncErr error) {
	for _, d := range decks {
		cards, err := d.Cards()
		if err != nil {
			slog.Error("Failed to list cards", "deck", d.ID, "error", err)
			continue
		}
		due, err := d.NextN(len(cards))
		if err != nil {
			slog.Error("Failed to list due cards", "deck", d.ID, "error", err)
			continue
		}
		reviews, err := db.CountReviews(d.ID)
		if err != nil {
			slog.Warn("Failed to count reviews", "deck", d.ID, "error", err)
		}
		fmt.Printf("%s: %d notes, %d cards, %d due, %d reviews\n", d.ID, len(d.Notes()), len(cards), len(due), reviews)
	}
	fmt.Printf("Found %d decks.\n", len(decks))

	if syncErr != nil {
		fmt.Println("\nErrors:")
		fmt.Printf("- %s\n", syncErr)
	}
}
