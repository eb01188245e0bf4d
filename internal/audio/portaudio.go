package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

type portAudioBackend struct{}

// NewPortAudio initializes PortAudio and returns it as a Backend.
func NewPortAudio() (Backend, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &portAudioBackend{}, nil
}

func (p *portAudioBackend) Devices() ([]PlatformDevice, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}

	defaultDevice, _ := portaudio.DefaultInputDevice()

	result := make([]PlatformDevice, 0, len(devices))
	for _, d := range devices {
		result = append(result, PlatformDevice{
			Name:          d.Name,
			InputChannels: d.MaxInputChannels,
			Default:       defaultDevice != nil && d == defaultDevice,
		})
	}
	return result, nil
}

func (p *portAudioBackend) OpenInput(params StreamParams, onSamples func([]float32)) (Stream, error) {
	device, err := p.device(params.DeviceIndex)
	if err != nil {
		return nil, err
	}

	// Open stream: specified channels and sample rate, float32, callback driven
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: params.Channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(params.SampleRate),
		FramesPerBuffer: portaudio.FramesPerBufferUnspecified,
	}, func(in []float32) {
		onSamples(in)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}
	return stream, nil
}

func (p *portAudioBackend) device(index int) (*portaudio.DeviceInfo, error) {
	if index < 0 {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("failed to get default input device: %w", err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	if index >= len(devices) || devices[index].MaxInputChannels == 0 {
		return nil, fmt.Errorf("%w: index %d", ErrDeviceNotFound, index)
	}
	return devices[index], nil
}

func (p *portAudioBackend) Close() error {
	return portaudio.Terminate()
}
