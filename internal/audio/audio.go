package audio

import (
	"errors"
	"time"
)

// DefaultSampleRate is the rate whisper models expect.
const DefaultSampleRate = 16000

var (
	// ErrDeviceQuery reports that the platform device list could not be read.
	ErrDeviceQuery = errors.New("audio device query failed")
	// ErrAlreadyRecording is returned when a capture is already running.
	ErrAlreadyRecording = errors.New("already recording")
	// ErrNotRecording is returned by Stop when no open-ended capture is running.
	ErrNotRecording = errors.New("not recording")
	// ErrEmptyRecording means the capture ended before any audio arrived.
	ErrEmptyRecording = errors.New("no audio recorded")
	// ErrDeviceNotFound is returned for an index with no matching input device.
	ErrDeviceNotFound = errors.New("input device not found")
)

// Device represents an audio input device
type Device struct {
	Index    int
	Label    string
	Channels int
	Default  bool
}

// PlatformDevice is one entry of the backend's raw device list, inputs and
// outputs alike.
type PlatformDevice struct {
	Name          string
	InputChannels int
	Default       bool
}

// StreamParams describes an input stream to open.
type StreamParams struct {
	DeviceIndex int // -1 selects the default input
	SampleRate  int
	Channels    int
}

// Stream is an open input stream.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// Backend is the platform audio subsystem. OpenInput delivers blocks of
// interleaved float samples in [-1, 1] to onSamples from a thread it owns;
// the slice is only valid for the duration of the call.
type Backend interface {
	Devices() ([]PlatformDevice, error)
	OpenInput(params StreamParams, onSamples func(samples []float32)) (Stream, error)
	Close() error
}

// Recording is the output of one capture: contiguous mono samples.
type Recording struct {
	SessionID  string
	Samples    []float32
	SampleRate int
	Channels   int
}

// Duration returns the length of the recording.
func (r Recording) Duration() time.Duration {
	if r.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(r.Samples)) * time.Second / time.Duration(r.SampleRate)
}
