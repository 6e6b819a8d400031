// Package main is the entry point for the offloader appliance.
package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joe/offloader/internal/config"
	"github.com/joe/offloader/internal/device"
	"github.com/joe/offloader/internal/engine"
	"github.com/joe/offloader/internal/history"
	"github.com/joe/offloader/internal/notify"
	"github.com/joe/offloader/internal/server"
)

func main() {
	args := config.ParseFlags()
	logger := log.New(os.Stdout, "offloader: ", log.LstdFlags)

	verbose := log.New(io.Discard, "offloader: ", log.LstdFlags)
	if args.Verbose {
		verbose = logger
	}

	settingsStore := config.NewSettingsStore(args.ConfigDir)
	if !settingsStore.Exists() {
		if err := settingsStore.Save(config.DefaultSettings()); err != nil {
			logger.Printf("failed to write initial settings: %v", err)
		}
	}

	historyStore, err := history.Open(filepath.Join(args.ConfigDir, "history.db"))
	if err != nil {
		logger.Fatalf("failed to open history store: %v", err)
	}
	defer historyStore.Close()

	webhook := notify.NewWebhook(
		func() string { return settingsStore.Load().WebhookURL },
		logger,
	)
	defer webhook.Close()

	store := engine.NewStore()

	eng := engine.NewEngine(store, args.SourceMount, args.DestMount, settingsStore.Load, logger)
	eng.History = historyStore
	eng.Notifier = webhook

	manager := device.NewManager(store, args.SourceMount, args.DestMount, settingsStore.Load, verbose)
	manager.Interval = args.PollInterval

	snapshotFn := func() server.State {
		settings := settingsStore.Load()

		records, herr := historyStore.All()
		if herr != nil {
			logger.Printf("failed to read history: %v", herr)
		}

		return server.State{
			Snapshot:          store.Snapshot(),
			Config:            settings.Sanitized(),
			ConfigHasPassword: settings.HasPassword(),
			History:           records,
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var srv *server.Server

	commands := server.Commands{
		SaveSettings: func(settings config.Settings) error {
			if err := settingsStore.Save(settings); err != nil {
				return err
			}

			srv.Emit(engine.ConfigSaved{
				Config:            settings.Sanitized(),
				ConfigHasPassword: settings.HasPassword(),
			})

			return nil
		},
		ConnectDestination:    func() error { return manager.MountDestination(ctx) },
		DisconnectDestination: func() { manager.UnmountDestination(ctx) },
		RescanSource:          manager.RescanSource,
		StartTransfer:         eng.StartTransfer,
		CancelTransfer:        eng.CancelTransfer,
		ClearFinished:         eng.ClearFinished,
		RunSpeedTest:          eng.RunSpeedTest,
	}

	srv = server.NewServer(args.Port, logger, snapshotFn, commands)
	eng.SetEventEmitter(srv)
	manager.SetEventEmitter(srv)

	// Pick up a volume already attached before the first poll tick.
	if devices := manager.DetectDevices(ctx); len(devices) > 0 {
		if merr := manager.MountSource(ctx, devices[0]); merr != nil {
			logger.Printf("initial mount failed: %v", merr)
		}
	}

	go manager.PollLoop(ctx)
	srv.StartBackground(ctx)

	<-ctx.Done()
	logger.Printf("shutting down")
}
