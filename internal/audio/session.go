package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State of a capture session.
type State int

const (
	Idle State = iota
	StateRecording
)

func (s State) String() string {
	switch s {
	case StateRecording:
		return "recording"
	default:
		return "idle"
	}
}

type captureMode int

const (
	modeNone captureMode = iota
	modeOpenEnded
	modeFixed
)

// Session owns the lifecycle of one recording at a time. Blocks delivered
// by the backend callback are appended under mu; Stop swaps the chunk list
// out in the same critical section that returns the session to Idle, so a
// late callback can never land in a drained buffer.
type Session struct {
	backend Backend
	log     zerolog.Logger
	newID   func() string

	mu       sync.Mutex
	mode     captureMode
	stopping bool
	id       string
	stream   Stream
	params   StreamParams
	chunks   [][]float32
}

func NewSession(backend Backend, log zerolog.Logger) *Session {
	return &Session{
		backend: backend,
		log:     log.With().Str("component", "capture").Logger(),
		newID:   uuid.NewString,
	}
}

// State reports whether a capture, of either mode, is running.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == modeNone {
		return Idle
	}
	return StateRecording
}

func (s *Session) IsRecording() bool {
	return s.State() == StateRecording
}

// Start opens a continuous input stream on the device and begins
// accumulating blocks. It returns the new session ID, or ErrAlreadyRecording
// without touching the running stream.
func (s *Session) Start(deviceIndex, sampleRate, channels int) (string, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if channels <= 0 {
		channels = 1
	}
	params := StreamParams{DeviceIndex: deviceIndex, SampleRate: sampleRate, Channels: channels}

	s.mu.Lock()
	if s.mode != modeNone {
		s.mu.Unlock()
		return "", ErrAlreadyRecording
	}
	id := s.newID()
	s.mode = modeOpenEnded
	s.id = id
	s.params = params
	s.chunks = nil
	s.mu.Unlock()

	stream, err := s.backend.OpenInput(params, func(in []float32) {
		s.appendBlock(id, in, channels)
	})
	if err != nil {
		s.reset(id)
		return "", err
	}

	s.mu.Lock()
	s.stream = stream
	s.mu.Unlock()

	if err := stream.Start(); err != nil {
		stream.Close()
		s.reset(id)
		return "", fmt.Errorf("failed to start audio stream: %w", err)
	}

	s.log.Info().
		Str("session", id).
		Int("device", deviceIndex).
		Int("sample_rate", sampleRate).
		Int("channels", channels).
		Msg("Recording started")
	return id, nil
}

func (s *Session) appendBlock(id string, in []float32, channels int) {
	if len(in) == 0 {
		return
	}
	// The backend reuses its buffer, so always copy
	block := downmixInterleaved(in, channels, len(in)/channels)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != modeOpenEnded || s.id != id {
		return
	}
	s.chunks = append(s.chunks, block)
}

// Stop closes the stream and returns the concatenated recording. It returns
// ErrNotRecording when no open-ended capture is running and
// ErrEmptyRecording when no samples arrived.
func (s *Session) Stop() (Recording, error) {
	s.mu.Lock()
	if s.mode != modeOpenEnded || s.stream == nil || s.stopping {
		s.mu.Unlock()
		return Recording{}, ErrNotRecording
	}
	s.stopping = true
	stream := s.stream
	s.mu.Unlock()

	// Stop waits for in-flight callbacks, so the drain below sees every block
	if err := stream.Stop(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to stop audio stream")
	}
	if err := stream.Close(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to close audio stream")
	}

	s.mu.Lock()
	chunks := s.chunks
	rec := Recording{
		SessionID:  s.id,
		SampleRate: s.params.SampleRate,
		Channels:   1,
	}
	s.chunks = nil
	s.stream = nil
	s.stopping = false
	s.mode = modeNone
	s.id = ""
	s.mu.Unlock()

	rec.Samples = concatChunks(chunks)

	s.log.Info().
		Str("session", rec.SessionID).
		Int("chunks", len(chunks)).
		Int("samples", len(rec.Samples)).
		Dur("duration", rec.Duration()).
		Msg("Recording stopped")

	if len(rec.Samples) == 0 {
		return rec, ErrEmptyRecording
	}
	return rec, nil
}

// Record captures exactly duration*sampleRate mono samples and blocks until
// they have arrived or ctx is done. It refuses to run alongside an
// open-ended capture, and Start is refused while it runs.
func (s *Session) Record(ctx context.Context, deviceIndex int, duration time.Duration, sampleRate int) (Recording, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	want := int(int64(duration) * int64(sampleRate) / int64(time.Second))
	if want <= 0 {
		return Recording{}, fmt.Errorf("invalid record duration %s", duration)
	}

	s.mu.Lock()
	if s.mode != modeNone {
		s.mu.Unlock()
		return Recording{}, ErrAlreadyRecording
	}
	id := s.newID()
	s.mode = modeFixed
	s.id = id
	s.mu.Unlock()
	defer s.reset(id)

	var (
		bufMu sync.Mutex
		buf   = make([]float32, 0, want)
		done  = make(chan struct{})
		once  sync.Once
	)

	params := StreamParams{DeviceIndex: deviceIndex, SampleRate: sampleRate, Channels: 1}
	stream, err := s.backend.OpenInput(params, func(in []float32) {
		bufMu.Lock()
		defer bufMu.Unlock()
		if len(buf) >= want {
			return
		}
		n := min(len(in), want-len(buf))
		buf = append(buf, in[:n]...)
		if len(buf) == want {
			once.Do(func() { close(done) })
		}
	})
	if err != nil {
		return Recording{}, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return Recording{}, fmt.Errorf("failed to start audio stream: %w", err)
	}

	s.log.Info().Str("session", id).Dur("duration", duration).Int("device", deviceIndex).Msg("Fixed-length recording started")

	select {
	case <-done:
	case <-ctx.Done():
		if err := stream.Stop(); err != nil {
			s.log.Warn().Err(err).Str("session", id).Msg("Failed to stop audio stream")
		}
		return Recording{}, ctx.Err()
	}

	if err := stream.Stop(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to stop audio stream")
	}

	bufMu.Lock()
	samples := buf
	bufMu.Unlock()

	s.log.Info().Str("session", id).Int("samples", len(samples)).Msg("Fixed-length recording finished")

	return Recording{
		SessionID:  id,
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   1,
	}, nil
}

// reset returns the session to Idle if id still owns it.
func (s *Session) reset(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id != id {
		return
	}
	s.mode = modeNone
	s.id = ""
	s.stream = nil
	s.stopping = false
	s.chunks = nil
}

func concatChunks(chunks [][]float32) []float32 {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	out := make([]float32, 0, total)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// downmixInterleaved averages interleaved frames to mono. The result is
// always a fresh slice.
func downmixInterleaved(in []float32, channels, frames int) []float32 {
	if channels <= 1 {
		out := make([]float32, frames)
		copy(out, in[:frames])
		return out
	}

	out := make([]float32, frames)
	for f := 0; f < frames; f++ {
		var sum float32
		base := f * channels
		for c := 0; c < channels; c++ {
			sum += in[base+c]
		}
		out[f] = sum / float32(channels)
	}
	return out
}
