package hotkey

import (
	"fmt"
	"strings"
)

// Modifier is a bit set of modifier keys.
type Modifier uint8

const (
	ModShift Modifier = 1 << iota
	ModCtrl
	ModAlt
	ModSuper
)

// Accelerator is a parsed shortcut such as "Ctrl+Shift+R".
type Accelerator struct {
	Mods Modifier
	// Key is the lower-case key name: "a", "7", "space", "f5", ...
	Key string
}

var modifierNames = map[string]Modifier{
	"shift":   ModShift,
	"ctrl":    ModCtrl,
	"control": ModCtrl,
	"alt":     ModAlt,
	"option":  ModAlt,
	"opt":     ModAlt,
	"super":   ModSuper,
	"cmd":     ModSuper,
	"command": ModSuper,
	"meta":    ModSuper,
	"win":     ModSuper,
}

var namedKeys = map[string]string{
	"space":     "space",
	"enter":     "enter",
	"return":    "enter",
	"tab":       "tab",
	"esc":       "escape",
	"escape":    "escape",
	"backspace": "backspace",
	"delete":    "delete",
	"up":        "up",
	"down":      "down",
	"left":      "left",
	"right":     "right",
}

// ParseAccelerator parses "Mod+Mod+Key". Names are case-insensitive and
// exactly one non-modifier key is required.
func ParseAccelerator(s string) (Accelerator, error) {
	var acc Accelerator
	parts := strings.Split(s, "+")
	for i, raw := range parts {
		part := strings.ToLower(strings.TrimSpace(raw))
		if part == "" {
			return Accelerator{}, fmt.Errorf("invalid accelerator %q: empty component", s)
		}
		if mod, ok := modifierNames[part]; ok && i < len(parts)-1 {
			acc.Mods |= mod
			continue
		}
		if i != len(parts)-1 {
			return Accelerator{}, fmt.Errorf("invalid accelerator %q: unknown modifier %q", s, raw)
		}
		key, ok := normalizeKey(part)
		if !ok {
			return Accelerator{}, fmt.Errorf("invalid accelerator %q: unknown key %q", s, raw)
		}
		acc.Key = key
	}
	return acc, nil
}

func normalizeKey(k string) (string, bool) {
	if named, ok := namedKeys[k]; ok {
		return named, true
	}
	if len(k) == 1 && (k[0] >= 'a' && k[0] <= 'z' || k[0] >= '0' && k[0] <= '9') {
		return k, true
	}
	if n, ok := functionKey(k); ok {
		return fmt.Sprintf("f%d", n), true
	}
	return "", false
}

func functionKey(k string) (int, bool) {
	var n int
	if _, err := fmt.Sscanf(k, "f%d", &n); err != nil || fmt.Sprintf("f%d", n) != k {
		return 0, false
	}
	return n, n >= 1 && n <= 12
}

func (a Accelerator) String() string {
	var parts []string
	for _, m := range []struct {
		mod  Modifier
		name string
	}{{ModCtrl, "Ctrl"}, {ModAlt, "Alt"}, {ModShift, "Shift"}, {ModSuper, "Super"}} {
		if a.Mods&m.mod != 0 {
			parts = append(parts, m.name)
		}
	}
	key := a.Key
	if len(key) > 0 {
		key = strings.ToUpper(key[:1]) + key[1:]
	}
	return strings.Join(append(parts, key), "+")
}

// X11 modifier masks from X.h
const (
	x11ShiftMask   = 1 << 0
	x11ControlMask = 1 << 2
	x11Mod1Mask    = 1 << 3
	x11Mod4Mask    = 1 << 6
)

// X11Mask returns the modifier state for XGrabKey.
func (a Accelerator) X11Mask() int {
	mask := 0
	if a.Mods&ModShift != 0 {
		mask |= x11ShiftMask
	}
	if a.Mods&ModCtrl != 0 {
		mask |= x11ControlMask
	}
	if a.Mods&ModAlt != 0 {
		mask |= x11Mod1Mask
	}
	if a.Mods&ModSuper != 0 {
		mask |= x11Mod4Mask
	}
	return mask
}

var x11Keysyms = map[string]string{
	"space":     "space",
	"enter":     "Return",
	"tab":       "Tab",
	"escape":    "Escape",
	"backspace": "BackSpace",
	"delete":    "Delete",
	"up":        "Up",
	"down":      "Down",
	"left":      "Left",
	"right":     "Right",
}

// X11Keysym returns the name XStringToKeysym understands.
func (a Accelerator) X11Keysym() string {
	if sym, ok := x11Keysyms[a.Key]; ok {
		return sym
	}
	if strings.HasPrefix(a.Key, "f") && len(a.Key) > 1 {
		return "F" + a.Key[1:]
	}
	return a.Key
}

// Carbon modifier flags from Events.h
const (
	carbonCmdKey     = 0x0100
	carbonShiftKey   = 0x0200
	carbonOptionKey  = 0x0800
	carbonControlKey = 0x1000
)

// CarbonModifiers returns the modifier flags for RegisterEventHotKey.
func (a Accelerator) CarbonModifiers() uint32 {
	var m uint32
	if a.Mods&ModSuper != 0 {
		m |= carbonCmdKey
	}
	if a.Mods&ModShift != 0 {
		m |= carbonShiftKey
	}
	if a.Mods&ModAlt != 0 {
		m |= carbonOptionKey
	}
	if a.Mods&ModCtrl != 0 {
		m |= carbonControlKey
	}
	return m
}

// ANSI virtual key codes
var carbonKeyCodes = map[string]uint32{
	"a": 0x00, "s": 0x01, "d": 0x02, "f": 0x03, "h": 0x04, "g": 0x05, "z": 0x06,
	"x": 0x07, "c": 0x08, "v": 0x09, "b": 0x0B, "q": 0x0C, "w": 0x0D, "e": 0x0E,
	"r": 0x0F, "y": 0x10, "t": 0x11, "1": 0x12, "2": 0x13, "3": 0x14, "4": 0x15,
	"6": 0x16, "5": 0x17, "9": 0x19, "7": 0x1A, "8": 0x1C, "0": 0x1D, "o": 0x1F,
	"u": 0x20, "i": 0x22, "p": 0x23, "l": 0x25, "j": 0x26, "k": 0x28, "n": 0x2D,
	"m": 0x2E,
	"enter": 0x24, "tab": 0x30, "space": 0x31, "backspace": 0x33, "escape": 0x35,
	"delete": 0x75, "left": 0x7B, "right": 0x7C, "down": 0x7D, "up": 0x7E,
	"f1": 0x7A, "f2": 0x78, "f3": 0x63, "f4": 0x76, "f5": 0x60, "f6": 0x61,
	"f7": 0x62, "f8": 0x64, "f9": 0x65, "f10": 0x6D, "f11": 0x67, "f12": 0x6F,
}

// CarbonKeyCode returns the virtual key code for RegisterEventHotKey.
func (a Accelerator) CarbonKeyCode() (uint32, bool) {
	code, ok := carbonKeyCodes[a.Key]
	return code, ok
}
