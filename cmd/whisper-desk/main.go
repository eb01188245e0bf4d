package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/petems/whisper-desk/internal/app"
	"github.com/petems/whisper-desk/internal/audio"
	"github.com/petems/whisper-desk/internal/config"
	"github.com/petems/whisper-desk/internal/hotkey"
	"github.com/petems/whisper-desk/internal/inject"
	"github.com/petems/whisper-desk/internal/logging"
	"github.com/petems/whisper-desk/internal/permissions"
	"github.com/petems/whisper-desk/internal/tray"
	"github.com/petems/whisper-desk/internal/whisper"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

// noDevice marks -device as unset; -1 already means "system default"
const noDevice = -2

type options struct {
	configPath   string
	listDevices  bool
	file         string
	record       int
	model        string
	device       int
	noTranscribe bool
	version      bool
}

func (o options) headless() bool {
	return o.listDevices || o.file != "" || o.record > 0
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("whisper-desk", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "path to config.json (default: platform config dir)")
	fs.BoolVar(&o.listDevices, "list-devices", false, "list audio input devices and exit")
	fs.StringVar(&o.file, "file", "", "transcribe an existing .wav file and exit")
	fs.IntVar(&o.record, "record", 0, "record this many seconds, transcribe, and exit")
	fs.StringVar(&o.model, "model", "", "whisper model (tiny, base, small, medium, large)")
	fs.IntVar(&o.device, "device", noDevice, "input device index (-1 for system default)")
	fs.BoolVar(&o.noTranscribe, "no-transcribe", false, "with -record, only save the recording")
	fs.BoolVar(&o.version, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.record < 0 {
		return o, fmt.Errorf("-record must be positive")
	}
	if o.noTranscribe && o.record == 0 {
		return o, fmt.Errorf("-no-transcribe requires -record")
	}
	return o, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if opts.version {
		fmt.Printf("whisper-desk %s (%s)\n", Version, Commit)
		return
	}

	// Load config from XDG/Library/AppData
	var cfg *config.Config
	if opts.configPath != "" {
		cfg, err = config.LoadFrom(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		// Use default logger if config fails to load
		log := logging.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if opts.model != "" {
		cfg.Whisper.Model = opts.model
	}
	if opts.device != noDevice {
		cfg.Audio.DeviceIndex = opts.device
	}
	if opts.record > 0 {
		cfg.Audio.RecordSeconds = opts.record
	}

	// Initialize logger with configured level
	log := logging.NewWithLevel(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// macOS requires explicit microphone approval before capture works
	if !opts.listDevices && opts.file == "" {
		if err := permissions.EnsureMicrophone(); err != nil {
			log.Fatal().Err(err).Msg("Required permissions not granted")
		}
	}

	// Initialize audio backend
	backend, err := audio.NewPortAudio()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize audio")
	}
	defer backend.Close()

	// Initialize whisper
	transcriber, err := whisper.New(cfg.Whisper, cfg.ModelsDir(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize whisper")
	}
	defer transcriber.Close()

	if opts.headless() {
		application := app.New(app.Config{
			Backend:       backend,
			Transcriber:   transcriber,
			Config:        cfg,
			Logger:        log,
			StatusUpdater: cliStatus{log: log},
			Presenter:     cliPresenter{},
		})

		// Setup shutdown signal handling
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigChan
			log.Info().Msg("Interrupted, shutting down...")
			cancel()
			shutdown(application, log)
		}()

		if err := runCLI(ctx, application, opts); err != nil {
			shutdown(application, log)
			transcriber.Close()
			backend.Close()
			os.Exit(1)
		}
		shutdown(application, log)
		return
	}

	runTray(ctx, cancel, cfg, backend, transcriber, log)
}

// runCLI performs the one-shot action selected by the flags. Failures have
// already been reported through the presenter.
func runCLI(ctx context.Context, application *app.App, opts options) error {
	if opts.listDevices {
		devices := application.ListDevices()
		if len(devices) == 0 {
			return fmt.Errorf("no input devices")
		}
		for _, d := range devices {
			marker := ""
			if d.Default {
				marker = " (default)"
			}
			fmt.Printf("%s%s\n", d, marker)
		}
		return nil
	}

	needsModel := opts.file != "" || !opts.noTranscribe
	if needsModel {
		task, err := application.LoadModel()
		if err != nil {
			return err
		}
		if err := task.Wait(); err != nil {
			return err
		}
	}

	if opts.file != "" {
		_, err := application.TranscribeFile(ctx, opts.file)
		return err
	}

	record := application.RecordAndTranscribe
	if opts.noTranscribe {
		record = application.RecordOnly
	}
	task, err := record()
	if err != nil {
		return err
	}
	if err := task.Wait(); err != nil {
		return err
	}
	if opts.noTranscribe {
		fmt.Println(application.SelectedFile())
	}
	return nil
}

func runTray(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, backend audio.Backend, transcriber whisper.Transcriber, log zerolog.Logger) {
	// Initialize transcript output
	injector := inject.New(cfg.Output, log)

	application := app.New(app.Config{
		Backend:     backend,
		Transcriber: transcriber,
		Injector:    injector,
		Config:      cfg,
		Logger:      log,
	})

	// Tray needs the app; the app reports back through the tray
	trayUI := tray.New(application, Version, Commit, log)
	application.SetStatusUpdater(trayUI)
	application.SetPresenter(trayUI)

	// Initialize hotkey manager; the tray still works without one
	hkManager, err := hotkey.New()
	if err != nil {
		log.Warn().Err(err).Msg("Global hotkey unavailable")
	} else {
		defer hkManager.Close()
		if err := permissions.EnsureAccessibility(); err != nil {
			log.Warn().Err(err).Msg("Hotkey may not work until access is granted")
		}
		accel := cfg.PlatformHotkey()
		if err := hkManager.Register(accel, application.OnHotkey); err != nil {
			log.Error().Err(err).Str("hotkey", accel).Msg("Failed to register hotkey")
		} else {
			log.Info().Str("hotkey", accel).Str("mode", cfg.Mode).Msg("Hotkey registered")
		}
	}

	// Load the configured model in the background
	if _, err := application.LoadModel(); err != nil {
		log.Warn().Err(err).Msg("Failed to start model load")
	}

	log.Info().Str("version", Version).Msg("whisper-desk starting...")

	// Setup shutdown signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Shutting down...")
		cancel()
	}()

	// Start tray UI - MUST run on main thread
	if err := trayUI.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Tray error")
	}
}

func shutdown(application *app.App, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := application.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Shutdown error")
	}
}

// cliStatus logs status changes in headless mode.
type cliStatus struct {
	log zerolog.Logger
}

func (s cliStatus) SetIdle(msg string)       { s.log.Info().Msg(msg) }
func (s cliStatus) SetRecording(msg string)  { s.log.Info().Msg(msg) }
func (s cliStatus) SetProcessing(msg string) { s.log.Info().Msg(msg) }
func (s cliStatus) SetError(msg string)      { s.log.Debug().Msg(msg) }

// cliPresenter prints transcripts to stdout so they can be piped.
type cliPresenter struct{}

func (p cliPresenter) ShowTranscript(text string) {
	fmt.Println(text)
}

func (p cliPresenter) ShowError(title string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", title, err)
}
