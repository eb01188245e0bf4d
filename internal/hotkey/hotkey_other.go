//go:build !darwin && !linux

package hotkey

// New reports that no global hotkey backend exists for this platform.
func New() (Manager, error) {
	return nil, ErrUnsupported
}
