// Package artifact writes and reads the PCM wave files handed to the
// transcription gateway.
package artifact

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/petems/whisper-desk/internal/audio"
)

const (
	// BitDepth of every artifact written.
	BitDepth = 16
	// FullScale is the int16 magnitude a sample of 1.0 maps to.
	FullScale = 32767

	headerSize = 44
	formatPCM  = 1
	// WAVE_FORMAT_EXTENSIBLE, used by some recorders for plain PCM
	formatExtensible = 0xFFFE

	tmpPattern   = ".%s.*.tmp"
	maxInt16     = 32767
	minInt16     = -32768
	overflowHigh = maxInt16 + 1
	overflowLow  = minInt16 - 1
)

var (
	// ErrEmptyRecording is returned when there are no samples to write.
	ErrEmptyRecording = audio.ErrEmptyRecording
	// ErrUnsupportedFormat is returned for files that are not PCM wave.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// WriteError reports an artifact that could not be durably written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Artifact describes a wave file on disk. Only the path is kept after
// writing; the bytes belong to the filesystem.
type Artifact struct {
	Path       string
	SampleRate int
	BitDepth   int
	Channels   int
	Samples    int
	// Clipped counts samples outside [-1, 1] that were clamped.
	Clipped int
}

// Quantize scales a normalized sample to int16, truncating toward zero.
// Inputs whose scaled value would not fit in int16 (at or above about
// 1.0000305, or below about -1.0000610) are clamped and reported.
func Quantize(s float32) (int16, bool) {
	v := float64(s) * FullScale
	switch {
	case math.IsNaN(v):
		return 0, true
	case v >= overflowHigh:
		return maxInt16, true
	case v <= overflowLow:
		return minInt16, true
	}
	return int16(v), false
}

// ExpectedSize returns the byte length of a canonical PCM wave file holding
// the given number of frames.
func ExpectedSize(frames, channels, bitDepth int) int64 {
	return headerSize + int64(frames)*int64(channels)*int64(bitDepth/8)
}

// WriteRecording writes a capture to path.
func WriteRecording(path string, rec audio.Recording) (Artifact, error) {
	return Write(path, rec.Samples, rec.SampleRate)
}

// Write encodes mono samples as 16-bit PCM wave at path, replacing any
// existing file. It returns only once the data, and the rename that
// publishes it, have been synced to stable storage.
func Write(path string, samples []float32, sampleRate int) (Artifact, error) {
	if len(samples) == 0 {
		return Artifact{}, ErrEmptyRecording
	}
	if sampleRate <= 0 {
		return Artifact{}, &WriteError{Path: path, Err: fmt.Errorf("invalid sample rate %d", sampleRate)}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return Artifact{}, &WriteError{Path: path, Err: err}
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Artifact{}, &WriteError{Path: abs, Err: err}
	}

	data := make([]int, len(samples))
	clipped := 0
	for i, s := range samples {
		v, clip := Quantize(s)
		if clip {
			clipped++
		}
		data[i] = int(v)
	}

	// Write to a temp file first so a reader never sees a partial artifact
	tmp, err := os.CreateTemp(dir, fmt.Sprintf(tmpPattern, filepath.Base(abs)))
	if err != nil {
		return Artifact{}, &WriteError{Path: abs, Err: err}
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	enc := wav.NewEncoder(tmp, sampleRate, BitDepth, 1, formatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return Artifact{}, &WriteError{Path: abs, Err: fmt.Errorf("encode wav: %w", err)}
	}
	if err := enc.Close(); err != nil {
		return Artifact{}, &WriteError{Path: abs, Err: fmt.Errorf("close wav encoder: %w", err)}
	}
	if err := tmp.Sync(); err != nil {
		return Artifact{}, &WriteError{Path: abs, Err: fmt.Errorf("sync: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		return Artifact{}, &WriteError{Path: abs, Err: err}
	}
	if err := os.Rename(tmpPath, abs); err != nil {
		return Artifact{}, &WriteError{Path: abs, Err: err}
	}
	committed = true

	if err := syncDir(dir); err != nil {
		return Artifact{}, &WriteError{Path: abs, Err: fmt.Errorf("sync dir: %w", err)}
	}

	return Artifact{
		Path:       abs,
		SampleRate: sampleRate,
		BitDepth:   BitDepth,
		Channels:   1,
		Samples:    len(samples),
		Clipped:    clipped,
	}, nil
}

// syncDir makes the rename durable. Windows cannot fsync a directory.
func syncDir(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
