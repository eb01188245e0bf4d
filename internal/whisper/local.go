package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/rs/zerolog"

	"github.com/petems/whisper-desk/internal/artifact"
	"github.com/petems/whisper-desk/internal/config"
)

type whisperTranscriber struct {
	cfg config.WhisperConfig
	dir string
	dl  *downloader
	log zerolog.Logger

	// Transcriptions hold mu for reading; swapping the model waits for them
	mu    sync.RWMutex
	model whisper.Model
	name  string
}

// NewLocal creates a whisper.cpp transcriber caching models in modelsDir.
// No model is loaded until LoadModel.
func NewLocal(cfg config.WhisperConfig, modelsDir string, log zerolog.Logger) Transcriber {
	log = log.With().Str("component", "whisper").Logger()
	return &whisperTranscriber{
		cfg: cfg,
		dir: modelsDir,
		dl:  newDownloader(log),
		log: log,
	}
}

func (w *whisperTranscriber) Cached(name string) bool {
	return IsCached(w.dir, name)
}

func (w *whisperTranscriber) LoadModel(ctx context.Context, name string) error {
	modelPath, err := ModelPath(w.dir, name)
	if err != nil {
		return &GatewayError{Op: "load", Model: name, Err: err}
	}

	// Check if model exists, download if needed
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		if err := w.dl.download(ctx, name, modelPath); err != nil {
			return &GatewayError{Op: "load", Model: name, Err: err}
		}
	}
	if err := ctx.Err(); err != nil {
		return &GatewayError{Op: "load", Model: name, Err: err}
	}

	// Load model using official bindings
	model, err := whisper.New(modelPath)
	if err != nil {
		return &GatewayError{Op: "load", Model: name, Err: fmt.Errorf("failed to load model: %w", err)}
	}

	w.mu.Lock()
	old := w.model
	w.model = model
	w.name = name
	w.mu.Unlock()

	if old != nil {
		old.Close()
	}

	w.log.Info().Str("model", name).Str("path", modelPath).Msg("Model loaded")
	return nil
}

func (w *whisperTranscriber) Transcribe(ctx context.Context, path string) (Result, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.model == nil {
		return Result{}, &GatewayError{Op: "transcribe", Err: ErrModelNotLoaded}
	}

	audio, err := artifact.Read(path)
	if err != nil {
		return Result{}, &GatewayError{Op: "read", Model: w.name, Err: err}
	}
	if audio.SampleRate != int(whisper.SampleRate) {
		return Result{}, &GatewayError{
			Op:    "read",
			Model: w.name,
			Err:   fmt.Errorf("%w: sample rate %d, want %d", artifact.ErrUnsupportedFormat, audio.SampleRate, whisper.SampleRate),
		}
	}
	samples := audio.Mono()

	// Create context
	wctx, err := w.model.NewContext()
	if err != nil {
		return Result{}, &GatewayError{Op: "transcribe", Model: w.name, Err: fmt.Errorf("failed to create context: %w", err)}
	}

	// Set parameters
	if w.cfg.Threads > 0 {
		wctx.SetThreads(uint(w.cfg.Threads))
	}
	if w.cfg.Language != "" {
		if err := wctx.SetLanguage(w.cfg.Language); err != nil {
			return Result{}, &GatewayError{Op: "transcribe", Model: w.name, Err: fmt.Errorf("language %q: %w", w.cfg.Language, err)}
		}
	}
	if w.cfg.Temperature > 0 {
		wctx.SetTemperature(w.cfg.Temperature)
	}
	wctx.SetTranslate(false)

	start := time.Now()

	// The encoder-begin hook is the only point where whisper.cpp can be aborted
	keepGoing := func() bool { return ctx.Err() == nil }
	if err := wctx.Process(samples, keepGoing, nil, nil); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return Result{}, &GatewayError{Op: "transcribe", Model: w.name, Err: fmt.Errorf("whisper process failed: %w", err)}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, &GatewayError{Op: "transcribe", Model: w.name, Err: err}
	}

	// Get transcription segments
	var (
		segments []Segment
		text     strings.Builder
	)
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, &GatewayError{Op: "transcribe", Model: w.name, Err: err}
		}
		segments = append(segments, Segment{Start: segment.Start, End: segment.End, Text: segment.Text})
		text.WriteString(segment.Text)
	}

	result := Result{
		Text:     strings.TrimSpace(text.String()),
		Language: w.cfg.Language,
		Duration: time.Duration(len(samples)) * time.Second / time.Duration(whisper.SampleRate),
		Segments: segments,
	}

	w.log.Info().
		Str("model", w.name).
		Str("path", path).
		Int("segments", len(segments)).
		Dur("audio", result.Duration).
		Dur("elapsed", time.Since(start)).
		Msg("Transcription finished")

	return result, nil
}

func (w *whisperTranscriber) Model() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.name
}

func (w *whisperTranscriber) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.model != nil {
		w.model.Close()
		w.model = nil
		w.name = ""
	}
	return nil
}
