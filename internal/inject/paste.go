package inject

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog"

	"github.com/petems/whisper-desk/internal/config"
)

// ErrPasteUnsupported is returned where no paste shortcut can be sent.
var ErrPasteUnsupported = errors.New("paste not supported on this platform")

// swapped out in tests
var (
	clipboardRead  = clipboard.ReadAll
	clipboardWrite = clipboard.WriteAll
)

// The focused application reads the clipboard asynchronously, so the
// write and the shortcut each need time to land.
var (
	clipboardSettle = 50 * time.Millisecond
	pasteSettle     = 100 * time.Millisecond
)

type clipboardInjector struct {
	cfg config.OutputConfig
	log zerolog.Logger
}

// New creates a new transcript injector
func New(cfg config.OutputConfig, log zerolog.Logger) Injector {
	return &clipboardInjector{
		cfg: cfg,
		log: log.With().Str("component", "inject").Logger(),
	}
}

func (c *clipboardInjector) Copy(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := clipboardWrite(text); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	return nil
}

// Paste puts text on the clipboard and sends the paste shortcut. The
// previous clipboard is restored afterwards unless the transcript is meant
// to stay there, or the user copied something else in the meantime.
func (c *clipboardInjector) Paste(ctx context.Context, text string) error {
	if pasteShortcut == nil {
		return ErrPasteUnsupported
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	previous, readErr := clipboardRead()
	if err := clipboardWrite(text); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	if err := wait(ctx, clipboardSettle); err != nil {
		return err
	}
	if err := pasteShortcut(); err != nil {
		return fmt.Errorf("failed to send paste shortcut: %w", err)
	}

	if c.cfg.CopyToClipboard || readErr != nil {
		return nil
	}
	if wait(ctx, pasteSettle) != nil {
		// already pasted; leave the clipboard as is
		return nil
	}
	if current, err := clipboardRead(); err == nil && current == text {
		if err := clipboardWrite(previous); err != nil {
			c.log.Debug().Err(err).Msg("Failed to restore clipboard")
		}
	}
	return nil
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deliver pastes when enabled, falling back to a plain clipboard copy.
func (c *clipboardInjector) Deliver(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if c.cfg.Paste {
		err := c.Paste(ctx, text)
		if err == nil {
			c.log.Debug().Int("chars", len(text)).Msg("Transcript pasted")
			return nil
		}
		c.log.Warn().Err(err).Msg("Paste failed, copying to clipboard instead")
		return c.Copy(ctx, text)
	}
	if c.cfg.CopyToClipboard {
		if err := c.Copy(ctx, text); err != nil {
			return err
		}
		c.log.Debug().Int("chars", len(text)).Msg("Transcript copied to clipboard")
	}
	return nil
}
