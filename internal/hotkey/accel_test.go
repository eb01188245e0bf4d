package hotkey

import (
	"testing"
)

func TestParseAccelerator(t *testing.T) {
	tests := []struct {
		in   string
		mods Modifier
		key  string
	}{
		{"Alt+Space", ModAlt, "space"},
		{"Ctrl+Space", ModCtrl, "space"},
		{"ctrl + shift + r", ModCtrl | ModShift, "r"},
		{"Cmd+Option+F5", ModSuper | ModAlt, "f5"},
		{"Super+Return", ModSuper, "enter"},
		{"F12", 0, "f12"},
		{"Control+7", ModCtrl, "7"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			acc, err := ParseAccelerator(tt.in)
			if err != nil {
				t.Fatalf("ParseAccelerator(%q): %v", tt.in, err)
			}
			if acc.Mods != tt.mods || acc.Key != tt.key {
				t.Errorf("got {%v %q}, want {%v %q}", acc.Mods, acc.Key, tt.mods, tt.key)
			}
		})
	}
}

func TestParseAcceleratorErrors(t *testing.T) {
	for _, in := range []string{"", "Alt+", "Hyper+Space", "Ctrl+Shift", "Alt+F13", "Ctrl+PageUp", "Space+Alt"} {
		if _, err := ParseAccelerator(in); err == nil {
			t.Errorf("ParseAccelerator(%q) should fail", in)
		}
	}
}

func TestAcceleratorString(t *testing.T) {
	acc, err := ParseAccelerator("shift+alt+ctrl+space")
	if err != nil {
		t.Fatal(err)
	}
	if got := acc.String(); got != "Ctrl+Alt+Shift+Space" {
		t.Errorf("String() = %q", got)
	}
}

func TestX11Mapping(t *testing.T) {
	acc, _ := ParseAccelerator("Alt+Space")
	if acc.X11Mask() != 8 {
		t.Errorf("Alt mask = %d, want Mod1Mask (8)", acc.X11Mask())
	}
	if acc.X11Keysym() != "space" {
		t.Errorf("keysym = %q", acc.X11Keysym())
	}

	acc, _ = ParseAccelerator("Ctrl+Shift+Super+F3")
	if want := 1 | 4 | 64; acc.X11Mask() != want {
		t.Errorf("mask = %d, want %d", acc.X11Mask(), want)
	}
	if acc.X11Keysym() != "F3" {
		t.Errorf("keysym = %q, want F3", acc.X11Keysym())
	}

	acc, _ = ParseAccelerator("Ctrl+Enter")
	if acc.X11Keysym() != "Return" {
		t.Errorf("keysym = %q, want Return", acc.X11Keysym())
	}
}

func TestCarbonMapping(t *testing.T) {
	acc, _ := ParseAccelerator("Ctrl+Space")
	code, ok := acc.CarbonKeyCode()
	if !ok || code != 49 {
		t.Errorf("Space key code = %d, %v; want 49", code, ok)
	}
	if acc.CarbonModifiers() != 0x1000 {
		t.Errorf("Ctrl modifiers = %#x, want 0x1000", acc.CarbonModifiers())
	}

	acc, _ = ParseAccelerator("Cmd+Shift+Option+R")
	if want := uint32(0x0100 | 0x0200 | 0x0800); acc.CarbonModifiers() != want {
		t.Errorf("modifiers = %#x, want %#x", acc.CarbonModifiers(), want)
	}
	if code, _ := acc.CarbonKeyCode(); code != 0x0F {
		t.Errorf("R key code = %#x, want 0x0F", code)
	}
}
