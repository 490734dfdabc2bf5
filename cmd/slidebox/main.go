// Package main provides the player daemon entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/slidebox/internal/api/control"
	"github.com/osa030/slidebox/internal/app/library"
	"github.com/osa030/slidebox/internal/app/notification"
	"github.com/osa030/slidebox/internal/app/player"
	"github.com/osa030/slidebox/internal/app/presence"
	"github.com/osa030/slidebox/internal/infra/airtable"
	"github.com/osa030/slidebox/internal/infra/config"
	"github.com/osa030/slidebox/internal/infra/logger"
	"github.com/osa030/slidebox/internal/infra/mopidy"
	"github.com/osa030/slidebox/internal/infra/reader"
)

var (
	app        = kingpin.New("slidebox", "NFC-triggered remote for a Mopidy player")
	configPath = app.Flag("config", "Path to config file").Default("config/slidebox.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// check-library command
	checkLibraryCmd = app.Command("check-library", "Fetch the playlist document, report problems and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the player (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	// Override with command-line flags if specified
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	// Switch to the rotating log file once its limits are known
	if *logfile != "" {
		loggerConfig.Output = *logfile
		loggerConfig.File = *logfile
		loggerConfig.MaxSizeMB = cfg.Log.MaxSizeMB
		loggerConfig.MaxBackups = cfg.Log.MaxBackups
		if err := logger.Init(loggerConfig); err != nil {
			zlog.Fatal().Msgf("Failed to open log file: %v", err)
		}
	}

	if command == checkLibraryCmd.FullCommand() {
		if err := checkLibrary(cfg); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Run player until a signal or server error
	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Player error: %v", err)
		os.Exit(1)
	}
}

// run wires the player and blocks until a shutdown signal or server error.
func run(cfg *config.Config) error {
	// Display fan-out; the log stands in for the OLED
	notifications := notification.NewManager()
	notifications.Subscribe(notification.NewLogStream())

	remote, err := mopidy.New(mopidy.Config{
		URL:     cfg.Mopidy.URL,
		Timeout: cfg.Mopidy.Timeout(),
	})
	if err != nil {
		return fmt.Errorf("failed to create Mopidy client: %w", err)
	}
	zlog.Info().Msgf("Mopidy endpoint: %s", remote.Endpoint())

	source, err := airtable.New(airtable.Config{
		URL:     cfg.Library.URL,
		Token:   cfg.Library.Token,
		Timeout: cfg.Library.Timeout(),
	})
	if err != nil {
		return fmt.Errorf("failed to create playlist source: %w", err)
	}

	index := library.NewIndex(source, notifications, library.Config{
		RetryDelay: cfg.Library.RetryDelay(),
	})
	ctrl := player.NewController(remote, index, notifications, player.Config{
		Name: cfg.Player.Name,
	})
	index.OnLoaded(ctrl.OnLibraryLoaded)

	tracker := presence.NewTracker(presence.Config{
		Grace: cfg.Presence.Grace(),
	}, ctrl.HandlePresence)

	rdr, err := reader.New(reader.Config{
		Type:    cfg.Reader.Type,
		Command: cfg.Reader.Command,
	})
	if err != nil {
		return fmt.Errorf("failed to create tag reader: %w", err)
	}
	var placer control.TagPlacer
	if v, ok := rdr.(*reader.VirtualReader); ok {
		placer = v
	}
	poller := reader.NewPoller(rdr, tracker, cfg.Presence.PollInterval())

	// Control API
	done := make(chan struct{})
	service := control.NewService(ctrl, index, placer, notifications, done)
	server := &http.Server{
		Addr:    cfg.Control.Addr,
		Handler: control.NewHandler(service, cfg.Control.Token),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Player events drive the session hooks until the controller closes
	eventsDone := make(chan struct{})
	go func() {
		defer close(eventsDone)
		watchEvents(ctrl.Events(), cfg.Hooks)
	}()

	// Load the playlist index; the player initializes once it is ready
	index.EnsureLoaded()

	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		zlog.Info().Msgf("Polling %s reader every %v", cfg.Reader.Type, cfg.Presence.PollInterval())
		poller.Run(ctx)
	}()

	// Channel to capture server startup errors
	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	go func() {
		zlog.Info().Msgf("Starting control API: addr=%s", cfg.Control.Addr)
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Wait for server to start listening
	<-serverStartedCh
	time.Sleep(100 * time.Millisecond)

	// Execute startup hook if configured (after server is running)
	executeHooks(cfg.Hooks.OnStarted, "on_started", nil)

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		runErr = fmt.Errorf("control API error: %w", err)
	}

	// Graceful shutdown: stop reading tags first so no new chains start
	cancel()
	<-pollerDone
	tracker.Stop()
	close(done)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown control API: %v", err)
	}

	index.Close()
	ctrl.Close()
	<-eventsDone
	notifications.Close()

	zlog.Info().Msg("Player stopped")

	// Execute shutdown hook if configured
	executeHooks(cfg.Hooks.OnStopped, "on_stopped", nil)

	return runErr
}

// watchEvents logs player events and runs the session hooks.
func watchEvents(events <-chan player.Event, hooks config.HooksConfig) {
	for e := range events {
		zlog.Info().Msgf("Player event: type=%s tag=%s state=%s", e.Type, e.TagID, e.State)

		env := []string{"SLIDEBOX_TAG_ID=" + e.TagID, "SLIDEBOX_URI=" + e.URI}
		if e.Track != nil {
			env = append(env, "SLIDEBOX_TRACK="+e.Track.Name, "SLIDEBOX_ARTIST="+e.Track.Artist())
		}

		switch e.Type {
		case player.EventSessionStarted:
			executeHooks(hooks.OnSessionStarted, "on_session_started", env)
		case player.EventSessionEnded:
			executeHooks(hooks.OnSessionEnded, "on_session_ended", env)
		}
	}
}

// executeHooks runs a list of shell commands with extra environment variables.
func executeHooks(hooks []string, stage string, env []string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Env = append(os.Environ(), env...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
