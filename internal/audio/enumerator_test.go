package audio

import (
	"errors"
	"testing"
)

func TestListInputDevicesSingleMic(t *testing.T) {
	e := NewEnumerator(&fakeBackend{devices: []PlatformDevice{
		{Name: "Built-in Mic", InputChannels: 1},
	}})

	devices, err := e.ListInputDevices()
	if err != nil {
		t.Fatalf("ListInputDevices: %v", err)
	}
	want := []Device{{Index: 0, Label: "Built-in Mic", Channels: 1}}
	if len(devices) != len(want) || devices[0] != want[0] {
		t.Fatalf("devices = %+v, want %+v", devices, want)
	}
}

func TestListInputDevicesFiltersOutputs(t *testing.T) {
	e := NewEnumerator(&fakeBackend{devices: []PlatformDevice{
		{Name: "Speakers", InputChannels: 0},
		{Name: "USB Mic", InputChannels: 2, Default: true},
		{Name: "HDMI", InputChannels: 0},
		{Name: "Line In", InputChannels: 1},
	}})

	devices, err := e.ListInputDevices()
	if err != nil {
		t.Fatalf("ListInputDevices: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("expected 2 input devices, got %d", len(devices))
	}
	// indices are positions in the platform list, not in the filtered one
	if devices[0].Index != 1 || devices[0].Label != "USB Mic" || !devices[0].Default {
		t.Errorf("unexpected first device %+v", devices[0])
	}
	if devices[1].Index != 3 || devices[1].Label != "Line In" {
		t.Errorf("unexpected second device %+v", devices[1])
	}
	if devices[1].String() != "3: Line In" {
		t.Errorf("String() = %q", devices[1].String())
	}
}

func TestListInputDevicesQueryFailure(t *testing.T) {
	e := NewEnumerator(&fakeBackend{devErr: errors.New("host api unavailable")})

	devices, err := e.ListInputDevices()
	if !errors.Is(err, ErrDeviceQuery) {
		t.Fatalf("expected ErrDeviceQuery, got %v", err)
	}
	if devices == nil || len(devices) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", devices)
	}
}

func TestResolve(t *testing.T) {
	e := NewEnumerator(&fakeBackend{devices: []PlatformDevice{
		{Name: "Speakers"},
		{Name: "Mic A", InputChannels: 1},
		{Name: "Mic B", InputChannels: 1, Default: true},
	}})

	d, err := e.Resolve(-1)
	if err != nil || d.Label != "Mic B" {
		t.Errorf("Resolve(-1) = %+v, %v; want Mic B", d, err)
	}
	d, err = e.Resolve(1)
	if err != nil || d.Label != "Mic A" {
		t.Errorf("Resolve(1) = %+v, %v; want Mic A", d, err)
	}
	if _, err := e.Resolve(0); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Resolve(0) on an output device: expected ErrDeviceNotFound, got %v", err)
	}

	empty := NewEnumerator(&fakeBackend{})
	if _, err := empty.Resolve(-1); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound with no devices, got %v", err)
	}
}
