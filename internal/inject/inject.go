package inject

import "context"

// Injector hands a finished transcript to the user's desktop
type Injector interface {
	// Copy places text on the clipboard.
	Copy(ctx context.Context, text string) error
	// Paste copies text and sends the paste shortcut to the focused app.
	Paste(ctx context.Context, text string) error
	// Deliver applies the configured output policy.
	Deliver(ctx context.Context, text string) error
}
