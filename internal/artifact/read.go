package artifact

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// Audio is a decoded wave file with samples normalized to [-1, 1).
type Audio struct {
	Samples    []float32 // interleaved when Channels > 1
	SampleRate int
	Channels   int
	BitDepth   int
}

// Frames returns the number of sample frames.
func (a Audio) Frames() int {
	if a.Channels <= 0 {
		return 0
	}
	return len(a.Samples) / a.Channels
}

// Mono averages all channels into one.
func (a Audio) Mono() []float32 {
	if a.Channels <= 1 {
		return a.Samples
	}
	frames := a.Frames()
	out := make([]float32, frames)
	for f := 0; f < frames; f++ {
		var sum float32
		for c := 0; c < a.Channels; c++ {
			sum += a.Samples[f*a.Channels+c]
		}
		out[f] = sum / float32(a.Channels)
	}
	return out
}

// Read decodes a PCM wave file.
func Read(path string) (Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return Audio{}, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Audio{}, fmt.Errorf("%w: %s is not a valid wave file", ErrUnsupportedFormat, path)
	}
	if dec.WavAudioFormat != formatPCM && dec.WavAudioFormat != formatExtensible {
		return Audio{}, fmt.Errorf("%w: wave format %d", ErrUnsupportedFormat, dec.WavAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Audio{}, fmt.Errorf("decode %s: %w", path, err)
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth <= 0 || bitDepth > 32 {
		return Audio{}, fmt.Errorf("%w: bit depth %d", ErrUnsupportedFormat, bitDepth)
	}
	scale := float32(int64(1) << (bitDepth - 1))
	// 8-bit PCM is unsigned, centered on 128
	offset := 0
	if bitDepth == 8 {
		offset = 128
	}

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v-offset) / scale
	}

	return Audio{
		Samples:    samples,
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   bitDepth,
	}, nil
}

// ReadPCM16 returns the raw int16 samples of a 16-bit wave file.
func ReadPCM16(path string) ([]int16, Audio, error) {
	a, err := Read(path)
	if err != nil {
		return nil, Audio{}, err
	}
	if a.BitDepth != BitDepth {
		return nil, a, fmt.Errorf("%w: bit depth %d", ErrUnsupportedFormat, a.BitDepth)
	}
	out := make([]int16, len(a.Samples))
	for i, s := range a.Samples {
		out[i] = int16(s * 32768)
	}
	return out, a, nil
}
