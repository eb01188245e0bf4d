package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/petems/whisper-desk/internal/audio"
	"github.com/petems/whisper-desk/internal/whisper"
)

// mockBackend delivers blocks of a constant level from a goroutine until the
// stream is stopped. With silent set, streams never deliver anything.
type mockBackend struct {
	devices []audio.PlatformDevice
	devErr  error
	silent  bool
	level   float32
}

func (m *mockBackend) Devices() ([]audio.PlatformDevice, error) {
	if m.devErr != nil {
		return nil, m.devErr
	}
	return m.devices, nil
}

func (m *mockBackend) OpenInput(params audio.StreamParams, onSamples func([]float32)) (audio.Stream, error) {
	return &mockStream{params: params, cb: onSamples, silent: m.silent, level: m.level, quit: make(chan struct{})}, nil
}

func (m *mockBackend) Close() error { return nil }

type mockStream struct {
	params audio.StreamParams
	cb     func([]float32)
	silent bool
	level  float32

	once sync.Once
	quit chan struct{}
	wg   sync.WaitGroup
}

func (s *mockStream) Start() error {
	if s.silent {
		return nil
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		block := make([]float32, 1600*s.params.Channels)
		for i := range block {
			block[i] = s.level
		}
		for {
			select {
			case <-s.quit:
				return
			default:
				s.cb(block)
				time.Sleep(time.Millisecond)
			}
		}
	}()
	return nil
}

func (s *mockStream) Stop() error {
	s.once.Do(func() { close(s.quit) })
	s.wg.Wait()
	return nil
}

func (s *mockStream) Close() error { return s.Stop() }

type mockTranscriber struct {
	mu      sync.Mutex
	loaded  string
	cached  map[string]bool
	text    string
	err     error
	block   chan struct{} // LoadModel waits on it when set
	gate    chan struct{} // Transcribe waits on it when set
	waiting int
	paths   []string
	loadErr error
}

func (m *mockTranscriber) LoadModel(ctx context.Context, name string) error {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if m.loadErr != nil {
		return m.loadErr
	}
	m.mu.Lock()
	m.loaded = name
	m.mu.Unlock()
	return nil
}

func (m *mockTranscriber) Transcribe(ctx context.Context, path string) (whisper.Result, error) {
	if m.gate != nil {
		m.mu.Lock()
		m.waiting++
		m.mu.Unlock()
		select {
		case <-m.gate:
		case <-ctx.Done():
			return whisper.Result{}, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loaded == "" {
		return whisper.Result{}, &whisper.GatewayError{Op: "transcribe", Err: whisper.ErrModelNotLoaded}
	}
	if m.err != nil {
		return whisper.Result{}, m.err
	}
	if _, err := os.Stat(path); err != nil {
		return whisper.Result{}, &whisper.GatewayError{Op: "read", Model: m.loaded, Err: err}
	}
	m.paths = append(m.paths, path)
	return whisper.Result{Text: m.text}, nil
}

func (m *mockTranscriber) Cached(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cached[name]
}

func (m *mockTranscriber) Model() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

func (m *mockTranscriber) Close() error { return nil }

func (m *mockTranscriber) blocked() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waiting
}

func (m *mockTranscriber) transcribed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.paths...)
}

type mockInjector struct {
	mu        sync.Mutex
	delivered []string
	copied    []string
}

func (m *mockInjector) Copy(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.copied = append(m.copied, text)
	return nil
}

func (m *mockInjector) Paste(ctx context.Context, text string) error {
	return errors.New("paste not supported")
}

func (m *mockInjector) Deliver(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delivered = append(m.delivered, text)
	return nil
}

// recorder implements StatusUpdater and Presenter.
type recorder struct {
	mu          sync.Mutex
	statuses    []string
	transcripts []string
	errors      []error
	titles      []string
}

func (r *recorder) add(kind, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, fmt.Sprintf("%s: %s", kind, msg))
}

func (r *recorder) SetIdle(msg string)       { r.add("idle", msg) }
func (r *recorder) SetRecording(msg string)  { r.add("recording", msg) }
func (r *recorder) SetProcessing(msg string) { r.add("processing", msg) }
func (r *recorder) SetError(msg string)      { r.add("error", msg) }

func (r *recorder) ShowTranscript(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcripts = append(r.transcripts, text)
}

func (r *recorder) ShowError(title string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles = append(r.titles, title)
	r.errors = append(r.errors, err)
}

func (r *recorder) status() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.statuses...)
}

func (r *recorder) shownErrors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errors...)
}

func (r *recorder) shownTranscripts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.transcripts...)
}

func (r *recorder) hasStatus(s string) bool {
	for _, got := range r.status() {
		if got == s {
			return true
		}
	}
	return false
}
