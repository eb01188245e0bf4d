//go:build linux

package hotkey

/*
#cgo pkg-config: x11
#include <X11/Xlib.h>
#include <X11/keysym.h>
#include <stdlib.h>

Display* displayPtr = NULL;

int openDisplay() {
    if (displayPtr == NULL) {
        displayPtr = XOpenDisplay(NULL);
    }
    return displayPtr != NULL;
}

int keycodeFor(const char* name) {
    if (!openDisplay()) return 0;
    KeySym sym = XStringToKeysym(name);
    if (sym == NoSymbol) return 0;
    return XKeysymToKeycode(displayPtr, sym);
}

int grabKey(int keycode, int modifiers) {
    if (!openDisplay()) return 0;

    Window root = DefaultRootWindow(displayPtr);
    // Grab with and without NumLock (Mod2) and CapsLock so the shortcut
    // works regardless of lock state
    XGrabKey(displayPtr, keycode, modifiers, root, False, GrabModeAsync, GrabModeAsync);
    XGrabKey(displayPtr, keycode, modifiers | Mod2Mask, root, False, GrabModeAsync, GrabModeAsync);
    XGrabKey(displayPtr, keycode, modifiers | LockMask, root, False, GrabModeAsync, GrabModeAsync);
    XGrabKey(displayPtr, keycode, modifiers | Mod2Mask | LockMask, root, False, GrabModeAsync, GrabModeAsync);
    XSelectInput(displayPtr, root, KeyPressMask | KeyReleaseMask);
    XSync(displayPtr, False);

    return 1;
}

void ungrabKey(int keycode, int modifiers) {
    if (displayPtr == NULL) return;

    Window root = DefaultRootWindow(displayPtr);
    XUngrabKey(displayPtr, keycode, modifiers, root);
    XUngrabKey(displayPtr, keycode, modifiers | Mod2Mask, root);
    XUngrabKey(displayPtr, keycode, modifiers | LockMask, root);
    XUngrabKey(displayPtr, keycode, modifiers | Mod2Mask | LockMask, root);
    XSync(displayPtr, False);
}

int checkEvent(int* keycode, int* pressed) {
    if (displayPtr == NULL) return 0;

    XEvent event;
    if (XPending(displayPtr) > 0) {
        XNextEvent(displayPtr, &event);
        if (event.type == KeyPress || event.type == KeyRelease) {
            // X delivers auto-repeat as release+press pairs; drop the release
            if (event.type == KeyRelease && XEventsQueued(displayPtr, QueuedAfterReading)) {
                XEvent next;
                XPeekEvent(displayPtr, &next);
                if (next.type == KeyPress && next.xkey.time == event.xkey.time &&
                    next.xkey.keycode == event.xkey.keycode) {
                    return 0;
                }
            }
            *keycode = event.xkey.keycode;
            *pressed = (event.type == KeyPress) ? 1 : 0;
            return 1;
        }
    }
    return 0;
}
*/
import "C"

import (
	"fmt"
	"sync"
	"time"
	"unsafe"
)

type grab struct {
	keycode  int
	mask     int
	callback func(bool)
}

type linuxManager struct {
	mu    sync.Mutex
	grabs map[string]grab
	down  map[int]bool // suppresses auto-repeat presses
	stop  chan struct{}
	once  sync.Once
}

// New creates a new Linux hotkey manager using X11
func New() (Manager, error) {
	if C.openDisplay() == 0 {
		return nil, fmt.Errorf("failed to open X display")
	}

	mgr := &linuxManager{
		grabs: make(map[string]grab),
		down:  make(map[int]bool),
		stop:  make(chan struct{}),
	}

	go mgr.eventLoop()

	return mgr, nil
}

func (m *linuxManager) Register(accel string, callback func(pressed bool)) error {
	acc, err := ParseAccelerator(accel)
	if err != nil {
		return err
	}

	name := C.CString(acc.X11Keysym())
	defer C.free(unsafe.Pointer(name))

	keycode := int(C.keycodeFor(name))
	if keycode == 0 {
		return fmt.Errorf("no keycode for %s", acc)
	}
	mask := acc.X11Mask()

	if C.grabKey(C.int(keycode), C.int(mask)) == 0 {
		return fmt.Errorf("failed to grab key %s", acc)
	}

	m.mu.Lock()
	m.grabs[acc.String()] = grab{keycode: keycode, mask: mask, callback: callback}
	m.mu.Unlock()
	return nil
}

func (m *linuxManager) eventLoop() {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			var keycode, pressed C.int
			if C.checkEvent(&keycode, &pressed) != 0 {
				if cb := m.callbackFor(int(keycode), pressed == 1); cb != nil {
					cb(pressed == 1)
				}
			}
		}
	}
}

// callbackFor returns nil for keys we did not grab and for repeated presses.
func (m *linuxManager) callbackFor(keycode int, pressed bool) func(bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pressed && m.down[keycode] {
		return nil
	}
	m.down[keycode] = pressed
	for _, g := range m.grabs {
		if g.keycode == keycode {
			return g.callback
		}
	}
	return nil
}

func (m *linuxManager) Unregister(accel string) error {
	acc, err := ParseAccelerator(accel)
	if err != nil {
		return err
	}

	m.mu.Lock()
	g, ok := m.grabs[acc.String()]
	delete(m.grabs, acc.String())
	m.mu.Unlock()

	if ok {
		C.ungrabKey(C.int(g.keycode), C.int(g.mask))
	}
	return nil
}

func (m *linuxManager) Close() error {
	m.once.Do(func() {
		close(m.stop)
	})
	return nil
}
