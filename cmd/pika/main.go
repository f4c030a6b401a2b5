// Command pika is the MLS-over-relay sidecar daemon (spec §1/§2): it
// owns one Nostr identity, maintains relay and media-transport
// connections, manages MLS group state, and speaks a line-delimited
// JSON protocol on stdio to an external host process.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/suhailsaqan/pika/internal/actor"
	"github.com/suhailsaqan/pika/internal/buildinfo"
	"github.com/suhailsaqan/pika/internal/config"
	"github.com/suhailsaqan/pika/internal/identity"
	"github.com/suhailsaqan/pika/internal/mediatransport"
	"github.com/suhailsaqan/pika/internal/mlsstore"
	"github.com/suhailsaqan/pika/internal/obsbus"
	"github.com/suhailsaqan/pika/internal/relay"
	"github.com/suhailsaqan/pika/internal/tts"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Println(buildinfo.String())
		return
	}

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "pika: %v\n", err)
		os.Exit(1)
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pika: %v\n", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))

	if cfg.OpenMode() {
		logger.Warn("no --allow-pubkey configured, running in open mode: all senders accepted")
	}

	if err := os.MkdirAll(cfg.StateDir, 0o700); err != nil {
		logger.Error("create state dir failed", "path", cfg.StateDir, "error", err)
		os.Exit(1)
	}

	id, err := identity.LoadOrCreate(cfg.StateDir)
	if err != nil {
		logger.Error("load identity failed", "error", err)
		os.Exit(1)
	}

	storePath := filepath.Join(cfg.StateDir, mlsstore.FileName)
	store, err := mlsstore.Open(storePath)
	if err != nil {
		logger.Error("open mls store failed", "path", storePath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	engine := mlsstore.NewPlaceholderEngine()
	relayClient := relay.New(logger)
	bus := obsbus.New()

	ttsClient := tts.New(tts.Config{
		BaseURL: cfg.SpeechBaseURL,
		APIKey:  cfg.SpeechAPIKey,
		Model:   cfg.SpeechModel,
		Voice:   cfg.SpeechVoice,
		Fixture: cfg.TTSFixture,
	}, logger)

	dialer := func(l *slog.Logger) actor.MediaClient {
		return mediatransport.NewWebRTCClient(l)
	}

	a := actor.New(actor.Deps{
		Config:   cfg,
		Logger:   logger,
		Identity: id,
		Store:    store,
		Engine:   engine,
		Relay:    relayClient,
		Bus:      bus,
		TTS:      ttsClient,
		Dialer:   dialer,
		Out:      os.Stdout,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	go logBusEvents(ctx, bus, logger)

	logger.Info("starting pika", "version", buildinfo.Version, "state_dir", cfg.StateDir, "relays", cfg.Relays)

	if err := a.Run(ctx, os.Stdin); err != nil && ctx.Err() == nil {
		logger.Error("actor exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("pika stopped")
}

// logBusEvents drains the operational event bus to the structured
// logger until ctx is done, matching the teacher's internal/events.Bus
// being consumed by a handler rather than left unread (SPEC_FULL.md
// §4.8). Runs as its own goroutine for the daemon's whole lifetime.
func logBusEvents(ctx context.Context, bus *obsbus.Bus, logger *slog.Logger) {
	ch := bus.Subscribe(64)
	defer bus.Unsubscribe(ch)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			args := make([]any, 0, 2+2*len(ev.Data))
			args = append(args, "source", ev.Source)
			for k, v := range ev.Data {
				args = append(args, k, v)
			}
			logger.Debug("obsbus: "+ev.Kind, args...)
		case <-ctx.Done():
			return
		}
	}
}
