package audio

import (
	"errors"
	"sync"
)

// fakeBackend is a synthetic audio subsystem. Streams either deliver blocks
// pushed by the test through emit, or, when blockSize > 0, generate
// zero-signal blocks on their own goroutine until stopped.
type fakeBackend struct {
	mu        sync.Mutex
	devices   []PlatformDevice
	devErr    error
	openErr   error
	blockSize int
	stopErr   error
	opened    []*fakeStream
}

func (b *fakeBackend) Devices() ([]PlatformDevice, error) {
	if b.devErr != nil {
		return nil, b.devErr
	}
	return b.devices, nil
}

func (b *fakeBackend) OpenInput(params StreamParams, onSamples func([]float32)) (Stream, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	s := &fakeStream{params: params, cb: onSamples, blockSize: b.blockSize, stopErr: b.stopErr, quit: make(chan struct{})}
	b.mu.Lock()
	b.opened = append(b.opened, s)
	b.mu.Unlock()
	return s, nil
}

func (b *fakeBackend) Close() error { return nil }

func (b *fakeBackend) streams() []*fakeStream {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*fakeStream(nil), b.opened...)
}

type fakeStream struct {
	params    StreamParams
	cb        func([]float32)
	blockSize int
	stopErr   error

	mu      sync.Mutex
	started bool
	stopped bool
	closed  bool
	quit    chan struct{}
	wg      sync.WaitGroup
}

func (s *fakeStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("already started")
	}
	s.started = true
	if s.blockSize > 0 {
		s.wg.Add(1)
		go s.generate()
	}
	return nil
}

func (s *fakeStream) generate() {
	defer s.wg.Done()
	block := make([]float32, s.blockSize*s.params.Channels)
	for {
		select {
		case <-s.quit:
			return
		default:
			s.cb(block)
		}
	}
}

// emit delivers one block as the audio thread would.
func (s *fakeStream) emit(block []float32) {
	s.cb(block)
}

func (s *fakeStream) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	close(s.quit)
	s.mu.Unlock()
	s.wg.Wait()
	return s.stopErr
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeStream) isActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.stopped && !s.closed
}
