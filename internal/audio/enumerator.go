package audio

import "fmt"

// Enumerator lists input devices. Results are never cached: indices are
// only valid for the device topology at the time of the call.
type Enumerator struct {
	backend Backend
}

func NewEnumerator(backend Backend) *Enumerator {
	return &Enumerator{backend: backend}
}

// ListInputDevices returns the devices that can capture, in platform order.
// On a failed platform query it returns an empty list and an error wrapping
// ErrDeviceQuery; callers may report the error and carry on.
func (e *Enumerator) ListInputDevices() ([]Device, error) {
	devices, err := e.backend.Devices()
	if err != nil {
		return []Device{}, fmt.Errorf("%w: %v", ErrDeviceQuery, err)
	}

	result := make([]Device, 0, len(devices))
	for i, d := range devices {
		if d.InputChannels > 0 {
			result = append(result, Device{
				Index:    i,
				Label:    d.Name,
				Channels: d.InputChannels,
				Default:  d.Default,
			})
		}
	}
	return result, nil
}

// Resolve finds the input device with the given index. A negative index
// selects the default input, or the first one if none is flagged.
func (e *Enumerator) Resolve(index int) (Device, error) {
	devices, err := e.ListInputDevices()
	if err != nil {
		return Device{}, err
	}
	if len(devices) == 0 {
		return Device{}, ErrDeviceNotFound
	}

	if index < 0 {
		for _, d := range devices {
			if d.Default {
				return d, nil
			}
		}
		return devices[0], nil
	}

	for _, d := range devices {
		if d.Index == index {
			return d, nil
		}
	}
	return Device{}, fmt.Errorf("%w: index %d", ErrDeviceNotFound, index)
}

// String renders a device the way the device selector shows it.
func (d Device) String() string {
	return fmt.Sprintf("%d: %s", d.Index, d.Label)
}
