package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/petems/whisper-desk/internal/artifact"
	"github.com/petems/whisper-desk/internal/audio"
	"github.com/petems/whisper-desk/internal/config"
	"github.com/petems/whisper-desk/internal/inject"
	"github.com/petems/whisper-desk/internal/whisper"
	"github.com/petems/whisper-desk/internal/worker"
)

// Task kinds; at most one of each runs at a time
const (
	KindModel      = "model"
	KindRecord     = "record"
	KindTranscribe = "transcribe"
)

var (
	// ErrNoFile is returned when transcription is requested before a file is chosen.
	ErrNoFile = errors.New("no audio file selected")
	// ErrNotWave is returned for a selected file without a .wav extension.
	ErrNotWave = errors.New("not a .wav file")
)

// StatusUpdater is an interface for updating status (e.g., tray icon)
type StatusUpdater interface {
	SetIdle(msg string)
	SetRecording(msg string)
	SetProcessing(msg string)
	SetError(msg string)
}

// Presenter shows results and failures to the user.
type Presenter interface {
	ShowTranscript(text string)
	ShowError(title string, err error)
}

type Config struct {
	Backend       audio.Backend
	Transcriber   whisper.Transcriber
	Injector      inject.Injector // Optional - can be nil
	Config        *config.Config
	Logger        zerolog.Logger
	StatusUpdater StatusUpdater // Optional - can be nil
	Presenter     Presenter     // Optional - can be nil
}

type App struct {
	session *audio.Session
	devices *audio.Enumerator
	stt     whisper.Transcriber
	inj     inject.Injector
	pool    *worker.Pool
	log     zerolog.Logger

	// cfg is shared with the tray; writes go through mu
	mu             sync.Mutex
	cfg            *config.Config
	status         StatusUpdater
	presenter      Presenter
	model          string
	device         int
	file           string
	transcript     string
	deviceErrShown bool
}

func New(cfg Config) *App {
	return &App{
		session:   audio.NewSession(cfg.Backend, cfg.Logger),
		devices:   audio.NewEnumerator(cfg.Backend),
		stt:       cfg.Transcriber,
		inj:       cfg.Injector,
		pool:      worker.New(cfg.Logger),
		log:       cfg.Logger.With().Str("component", "app").Logger(),
		cfg:       cfg.Config,
		status:    cfg.StatusUpdater,
		presenter: cfg.Presenter,
		model:     cfg.Config.Whisper.Model,
		device:    cfg.Config.Audio.DeviceIndex,
	}
}

// SetStatusUpdater attaches the UI after construction (the tray needs the app first)
func (a *App) SetStatusUpdater(s StatusUpdater) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = s
}

// SetPresenter attaches the result/error sink after construction
func (a *App) SetPresenter(p Presenter) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.presenter = p
}

// Model selection

// SelectModel records the model the next LoadModel will load.
func (a *App) SelectModel(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", whisper.ErrUnknownModel)
	}

	a.mu.Lock()
	if a.cfg.Whisper.Backend != config.BackendRemote {
		if _, err := whisper.ModelFile(name); err != nil {
			a.mu.Unlock()
			return err
		}
	}
	old := a.model
	a.model = name
	a.cfg.Whisper.Model = name
	a.mu.Unlock()

	a.log.Info().Str("from", old).Str("to", name).Msg("Changed Whisper model")
	a.save()
	return nil
}

// SelectedModel returns the model chosen in the selector.
func (a *App) SelectedModel() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.model
}

// LoadedModel returns the model currently usable for transcription.
func (a *App) LoadedModel() string {
	return a.stt.Model()
}

// LoadModel fetches (if needed) and loads the selected model in the background.
func (a *App) LoadModel() (*worker.Task, error) {
	name := a.SelectedModel()

	return a.submit(KindModel, "Model load failed", func(ctx context.Context) error {
		a.setProcessing(fmt.Sprintf("Checking if %s model is downloaded...", name))
		if a.stt.Cached(name) {
			a.setProcessing(fmt.Sprintf("Model %s found locally. Loading...", name))
		} else {
			a.setProcessing(fmt.Sprintf("Downloading model %s...", name))
		}

		if err := a.stt.LoadModel(ctx, name); err != nil {
			return a.fail("Model load failed", err)
		}

		a.setIdle(fmt.Sprintf("Model %s loaded successfully!", name))
		return nil
	})
}

// Devices

// ListDevices returns the current input devices. A failed query yields an
// empty list; the error is shown once until a query succeeds again.
func (a *App) ListDevices() []audio.Device {
	devices, err := a.devices.ListInputDevices()

	a.mu.Lock()
	show := err != nil && !a.deviceErrShown
	a.deviceErrShown = err != nil
	a.mu.Unlock()

	if err != nil {
		a.log.Error().Err(err).Msg("Failed to list audio devices")
		if show {
			a.showError("Audio devices unavailable", err)
		}
	}
	return devices
}

// SelectDevice chooses the input for the next capture. A negative index
// selects the platform default.
func (a *App) SelectDevice(index int) error {
	if index >= 0 {
		if _, err := a.devices.Resolve(index); err != nil {
			return err
		}
	}

	a.mu.Lock()
	a.device = index
	a.cfg.Audio.DeviceIndex = index
	a.mu.Unlock()

	a.log.Info().Int("device", index).Msg("Changed audio device")
	a.save()
	return nil
}

// SelectedDevice returns the device index captures will use.
func (a *App) SelectedDevice() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.device
}

// SelectFile chooses an existing wave file for Transcribe.
func (a *App) SelectFile(path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		return fmt.Errorf("%w: %s", ErrNotWave, path)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("select %s: %w", path, err)
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("select %s: not a regular file", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.file = abs
	a.mu.Unlock()
	return nil
}

// SelectedFile returns the file Transcribe will use.
func (a *App) SelectedFile() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file
}

// Recording

// StartRecording begins an open-ended capture on the selected device.
func (a *App) StartRecording() error {
	a.mu.Lock()
	device := a.device
	rate := a.cfg.Audio.SampleRate
	channels := a.cfg.Audio.Channels
	a.mu.Unlock()

	if _, err := a.session.Start(device, rate, channels); err != nil {
		if errors.Is(err, audio.ErrAlreadyRecording) {
			return err
		}
		return a.fail("Recording failed", err)
	}

	a.setRecording("Recording... press Stop when done")
	return nil
}

// StopRecording ends the open-ended capture and saves it, returning the
// artifact path. Stopping an idle session is a no-op and returns "".
func (a *App) StopRecording() (string, error) {
	path, _, err := a.stop(false)
	return path, err
}

// stop writes the capture before any task is queued, so a busy pool never
// costs a finished recording. Only the transcription runs on the pool.
func (a *App) stop(transcribe bool) (string, *worker.Task, error) {
	rec, err := a.session.Stop()
	switch {
	case errors.Is(err, audio.ErrNotRecording):
		return "", nil, nil
	case errors.Is(err, audio.ErrEmptyRecording):
		a.log.Info().Str("session", rec.SessionID).Msg("No audio recorded")
		a.setIdle("No audio recorded.")
		return "", nil, err
	case err != nil:
		return "", nil, a.fail("Recording failed", err)
	}

	path, err := a.saveRecording(rec)
	if err != nil || !transcribe {
		return path, nil, err
	}
	if a.stt.Model() == "" {
		return path, nil, a.fail("Transcription unavailable", whisper.ErrModelNotLoaded)
	}

	task, err := a.pool.Go(KindTranscribe, func(ctx context.Context) error {
		_, err := a.transcribe(ctx, path)
		return err
	})
	if errors.Is(err, worker.ErrBusy) {
		a.log.Warn().Str("path", path).Msg("Transcriber busy, recording kept")
		a.showError("Transcription busy", fmt.Errorf("recording kept at %s: %w", path, err))
		a.setIdle(fmt.Sprintf("Audio saved to %s. Transcribe it once the current job finishes.", path))
		return path, nil, err
	}
	if err != nil {
		a.showError("Transcription failed", err)
		return path, nil, err
	}
	return path, task, nil
}

// RecordAndTranscribe records the configured number of seconds, then
// transcribes the result.
func (a *App) RecordAndTranscribe() (*worker.Task, error) {
	if a.stt.Model() == "" {
		return nil, a.fail("Please load a model first", whisper.ErrModelNotLoaded)
	}
	return a.record(true)
}

// RecordOnly records the configured number of seconds and saves the file.
func (a *App) RecordOnly() (*worker.Task, error) {
	return a.record(false)
}

func (a *App) record(transcribe bool) (*worker.Task, error) {
	if a.session.IsRecording() {
		return nil, a.fail("Recording failed", audio.ErrAlreadyRecording)
	}

	a.mu.Lock()
	device := a.device
	rate := a.cfg.Audio.SampleRate
	seconds := a.cfg.Audio.RecordSeconds
	a.mu.Unlock()

	return a.submit(KindRecord, "Recording failed", func(ctx context.Context) error {
		a.setRecording(fmt.Sprintf("Recording for %d seconds...", seconds))

		rec, err := a.session.Record(ctx, device, time.Duration(seconds)*time.Second, rate)
		if err != nil {
			return a.fail("Recording failed", err)
		}

		path, err := a.saveRecording(rec)
		if err != nil || !transcribe {
			return err
		}
		_, err = a.transcribe(ctx, path)
		return err
	})
}

// saveRecording writes the capture and makes it the selected file.
func (a *App) saveRecording(rec audio.Recording) (string, error) {
	path := a.artifactPath(rec.SessionID)

	art, err := artifact.WriteRecording(path, rec)
	if errors.Is(err, artifact.ErrEmptyRecording) {
		a.setIdle("No audio recorded.")
		return "", err
	}
	if err != nil {
		return "", a.fail("Failed to save recording", err)
	}
	if art.Clipped > 0 {
		a.log.Warn().
			Str("path", art.Path).
			Int("clipped", art.Clipped).
			Int("samples", art.Samples).
			Msg("Samples outside [-1, 1] were clamped")
	}

	a.mu.Lock()
	a.file = art.Path
	a.mu.Unlock()

	a.log.Info().
		Str("session", rec.SessionID).
		Str("path", art.Path).
		Dur("duration", rec.Duration()).
		Msg("Recording saved")
	a.setIdle(fmt.Sprintf("Audio recorded and saved to %s", art.Path))
	return art.Path, nil
}

// artifactPath returns the fixed output path, or a per-session file when
// recordings are kept.
func (a *App) artifactPath(sessionID string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cfg.Audio.KeepRecordings && sessionID != "" {
		return filepath.Join(a.cfg.Audio.RecordingsDir, "recording-"+sessionID+".wav")
	}
	return a.cfg.Audio.OutputPath
}

// IsRecording reports whether a capture of either mode is running.
func (a *App) IsRecording() bool {
	return a.session.IsRecording()
}

// Transcription

// Transcribe transcribes the selected file in the background.
func (a *App) Transcribe() (*worker.Task, error) {
	if a.stt.Model() == "" {
		return nil, a.fail("Please load a model first", whisper.ErrModelNotLoaded)
	}
	path := a.SelectedFile()
	if path == "" {
		return nil, a.fail("Please select an audio file", ErrNoFile)
	}

	return a.submit(KindTranscribe, "Transcription failed", func(ctx context.Context) error {
		_, err := a.transcribe(ctx, path)
		return err
	})
}

// TranscribeFile selects path and transcribes it on the calling goroutine.
func (a *App) TranscribeFile(ctx context.Context, path string) (whisper.Result, error) {
	if err := a.SelectFile(path); err != nil {
		return whisper.Result{}, a.fail("Invalid audio file", err)
	}
	return a.transcribe(ctx, a.SelectedFile())
}

func (a *App) transcribe(ctx context.Context, path string) (whisper.Result, error) {
	a.setProcessing("Transcribing...")

	res, err := a.stt.Transcribe(ctx, path)
	if err != nil {
		return whisper.Result{}, a.fail("Transcription failed", err)
	}

	a.mu.Lock()
	a.transcript = res.Text
	presenter := a.presenter
	a.mu.Unlock()

	a.log.Info().Str("path", path).Int("chars", len(res.Text)).Msg("Transcription completed")
	if presenter != nil {
		presenter.ShowTranscript(res.Text)
	}

	if a.inj != nil {
		if err := a.inj.Deliver(ctx, res.Text); err != nil {
			a.log.Warn().Err(err).Msg("Failed to deliver transcript")
			a.showError("Clipboard unavailable", err)
		}
	}

	a.setIdle("Transcription completed!")
	return res, nil
}

// LastTranscript returns the most recent transcription text.
func (a *App) LastTranscript() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.transcript
}

// CopyLastTranscript puts the last transcript on the clipboard.
func (a *App) CopyLastTranscript(ctx context.Context) error {
	text := a.LastTranscript()
	if text == "" || a.inj == nil {
		return nil
	}
	return a.inj.Copy(ctx, text)
}

// Hotkey

func (a *App) OnHotkey(pressed bool) {
	a.mu.Lock()
	mode := a.cfg.Mode
	a.mu.Unlock()

	recording := a.session.IsRecording()

	switch mode {
	case config.ModePushToTalk:
		if pressed && !recording {
			a.StartRecording()
		} else if !pressed && recording {
			a.stop(true)
		}
	default: // Toggle
		if !pressed {
			return
		}
		if recording {
			a.stop(true)
		} else {
			a.StartRecording()
		}
	}
}

// SetMode switches between PushToTalk and Toggle.
func (a *App) SetMode(mode string) error {
	if mode != config.ModePushToTalk && mode != config.ModeToggle {
		return fmt.Errorf("invalid mode %q", mode)
	}

	a.mu.Lock()
	old := a.cfg.Mode
	a.cfg.Mode = mode
	a.mu.Unlock()

	a.log.Info().Str("from", old).Str("to", mode).Msg("Changed mode")
	a.save()
	return nil
}

// Mode returns the hotkey mode.
func (a *App) Mode() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg.Mode
}

// RecordSeconds returns the fixed recording length.
func (a *App) RecordSeconds() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg.Audio.RecordSeconds
}

// Stats reports background task activity.
func (a *App) Stats() worker.Stats {
	return a.pool.Stats()
}

// Shutdown discards any open-ended capture and waits for running tasks.
func (a *App) Shutdown(ctx context.Context) error {
	if a.session.IsRecording() {
		if _, err := a.session.Stop(); err != nil && !errors.Is(err, audio.ErrEmptyRecording) && !errors.Is(err, audio.ErrNotRecording) {
			a.log.Warn().Err(err).Msg("Failed to stop recording")
		}
	}

	stats := a.pool.Stats()
	a.log.Info().
		Int("in_flight", stats.InFlight).
		Int64("completed", stats.Completed).
		Int64("failed", stats.Failed).
		Msg("Shutting down")
	return a.pool.Shutdown(ctx)
}

// helpers

// submit runs fn on the pool; a busy kind is reported like any other failure.
func (a *App) submit(kind, title string, fn worker.Func) (*worker.Task, error) {
	task, err := a.pool.Go(kind, fn)
	if err != nil {
		a.showError(title, err)
		return nil, err
	}
	return task, nil
}

// fail reports err to the user and returns it.
func (a *App) fail(title string, err error) error {
	a.log.Error().Err(err).Msg(title)
	a.setError(title)
	a.showError(title, err)
	a.setIdle("Ready")
	return err
}

func (a *App) showError(title string, err error) {
	a.mu.Lock()
	p := a.presenter
	a.mu.Unlock()
	if p != nil {
		p.ShowError(title, err)
	}
}

func (a *App) updater() StatusUpdater {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

func (a *App) setIdle(msg string) {
	if s := a.updater(); s != nil {
		s.SetIdle(msg)
	}
}

func (a *App) setRecording(msg string) {
	if s := a.updater(); s != nil {
		s.SetRecording(msg)
	}
}

func (a *App) setProcessing(msg string) {
	if s := a.updater(); s != nil {
		s.SetProcessing(msg)
	}
}

func (a *App) setError(msg string) {
	if s := a.updater(); s != nil {
		s.SetError(msg)
	}
}

// save persists UI selections; a failure only costs them on restart
func (a *App) save() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.cfg.Save(); err != nil {
		a.log.Warn().Err(err).Msg("Failed to save config")
	}
}
