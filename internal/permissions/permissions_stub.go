//go:build !darwin

package permissions

// EnsureMicrophone is a no-op on non-macOS platforms.
func EnsureMicrophone() error {
	return nil
}

// EnsureAccessibility is a no-op on non-macOS platforms.
func EnsureAccessibility() error {
	return nil
}
