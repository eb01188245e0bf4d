//go:build !darwin

package inject

// pasteShortcut is nil where no keystroke can be injected
var pasteShortcut func() error
