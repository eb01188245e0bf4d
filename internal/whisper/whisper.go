package whisper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/petems/whisper-desk/internal/config"
)

var (
	// ErrModelNotLoaded is returned by Transcribe before a successful LoadModel.
	ErrModelNotLoaded = errors.New("no model loaded")
	// ErrUnknownModel is returned for names outside the catalog.
	ErrUnknownModel = errors.New("unknown model")
)

// Transcriber turns a wave file into text
type Transcriber interface {
	// LoadModel makes name the active model, fetching it first if needed.
	LoadModel(ctx context.Context, name string) error
	Transcribe(ctx context.Context, path string) (Result, error)
	// Cached reports whether LoadModel(name) can run without a download.
	Cached(name string) bool
	// Model returns the active model, or "" if none is loaded.
	Model() string
	Close() error
}

// Result is the recognized text of one file.
type Result struct {
	Text     string
	Language string
	Duration time.Duration
	Segments []Segment
}

// Segment is a timed piece of the transcript.
type Segment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// GatewayError wraps every transcription backend failure.
type GatewayError struct {
	Op    string // "load", "read", "transcribe"
	Model string
	Err   error
}

func (e *GatewayError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("whisper %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("whisper %s (%s): %v", e.Op, e.Model, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// New creates the transcriber for the configured backend
func New(cfg config.WhisperConfig, modelsDir string, log zerolog.Logger) (Transcriber, error) {
	switch cfg.Backend {
	case config.BackendLocal, "":
		return NewLocal(cfg, modelsDir, log), nil
	case config.BackendRemote:
		return NewRemote(cfg, log)
	default:
		return nil, fmt.Errorf("unknown whisper backend %q", cfg.Backend)
	}
}
