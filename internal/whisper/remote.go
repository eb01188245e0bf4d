package whisper

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/petems/whisper-desk/internal/config"
)

// remoteTranscriber uploads artifacts to an OpenAI-compatible
// /audio/transcriptions endpoint. Model names are passed through as-is.
type remoteTranscriber struct {
	client *openai.Client
	cfg    config.WhisperConfig
	log    zerolog.Logger

	mu   sync.RWMutex
	name string
}

// NewRemote creates a transcriber for cfg.RemoteURL.
func NewRemote(cfg config.WhisperConfig, log zerolog.Logger) (Transcriber, error) {
	if cfg.RemoteURL == "" {
		return nil, fmt.Errorf("remote backend requires a URL")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimRight(cfg.RemoteURL, "/")

	return &remoteTranscriber{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
		log:    log.With().Str("component", "whisper-remote").Logger(),
	}, nil
}

func (r *remoteTranscriber) Cached(string) bool { return true }

func (r *remoteTranscriber) LoadModel(ctx context.Context, name string) error {
	if name == "" {
		return &GatewayError{Op: "load", Err: fmt.Errorf("%w: empty name", ErrUnknownModel)}
	}
	if err := ctx.Err(); err != nil {
		return &GatewayError{Op: "load", Model: name, Err: err}
	}

	r.mu.Lock()
	r.name = name
	r.mu.Unlock()

	r.log.Info().Str("model", name).Str("url", r.cfg.RemoteURL).Msg("Remote model selected")
	return nil
}

func (r *remoteTranscriber) Transcribe(ctx context.Context, path string) (Result, error) {
	name := r.Model()
	if name == "" {
		return Result{}, &GatewayError{Op: "transcribe", Err: ErrModelNotLoaded}
	}

	req := openai.AudioRequest{
		Model:       name,
		FilePath:    path,
		Temperature: r.cfg.Temperature,
	}
	if r.cfg.Language != "" && r.cfg.Language != "auto" {
		req.Language = r.cfg.Language
	}

	start := time.Now()
	resp, err := r.client.CreateTranscription(ctx, req)
	if err != nil {
		return Result{}, &GatewayError{Op: "transcribe", Model: name, Err: err}
	}

	result := Result{
		Text:     strings.TrimSpace(resp.Text),
		Language: resp.Language,
		Duration: seconds(resp.Duration),
	}
	for _, s := range resp.Segments {
		result.Segments = append(result.Segments, Segment{
			Start: seconds(s.Start),
			End:   seconds(s.End),
			Text:  s.Text,
		})
	}

	r.log.Info().
		Str("model", name).
		Str("path", path).
		Dur("elapsed", time.Since(start)).
		Msg("Remote transcription finished")

	return result, nil
}

func (r *remoteTranscriber) Model() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.name
}

func (r *remoteTranscriber) Close() error {
	r.mu.Lock()
	r.name = ""
	r.mu.Unlock()
	return nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
