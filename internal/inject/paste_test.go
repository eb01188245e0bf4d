package inject

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/petems/whisper-desk/internal/config"
)

func stubClipboard(t *testing.T, err error) *[]string {
	t.Helper()
	var written []string
	orig := clipboardWrite
	clipboardWrite = func(text string) error {
		if err != nil {
			return err
		}
		written = append(written, text)
		return nil
	}
	t.Cleanup(func() { clipboardWrite = orig })
	return &written
}

func TestDeliverCopiesToClipboard(t *testing.T) {
	written := stubClipboard(t, nil)
	inj := New(config.OutputConfig{CopyToClipboard: true}, zerolog.Nop())

	if err := inj.Deliver(context.Background(), "hello world"); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(*written) != 1 || (*written)[0] != "hello world" {
		t.Errorf("clipboard got %q, want [hello world]", *written)
	}
}

func TestDeliverDisabled(t *testing.T) {
	written := stubClipboard(t, nil)
	inj := New(config.OutputConfig{}, zerolog.Nop())

	if err := inj.Deliver(context.Background(), "hello"); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(*written) != 0 {
		t.Errorf("clipboard should be untouched, got %q", *written)
	}
}

func TestDeliverSkipsEmptyText(t *testing.T) {
	written := stubClipboard(t, nil)
	inj := New(config.OutputConfig{CopyToClipboard: true}, zerolog.Nop())

	if err := inj.Deliver(context.Background(), ""); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(*written) != 0 {
		t.Errorf("empty transcript should not be copied, got %q", *written)
	}
}

func TestDeliverPasteFallsBackToCopy(t *testing.T) {
	written := stubClipboard(t, nil)
	stubShortcut(t, nil)
	inj := New(config.OutputConfig{Paste: true}, zerolog.Nop())

	if err := inj.Paste(context.Background(), "x"); !errors.Is(err, ErrPasteUnsupported) {
		t.Fatalf("Paste error = %v, want ErrPasteUnsupported", err)
	}
	if err := inj.Deliver(context.Background(), "fallback"); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(*written) != 1 || (*written)[0] != "fallback" {
		t.Errorf("clipboard got %q, want [fallback]", *written)
	}
}

// fakeClipboard holds one value, like the system clipboard.
type fakeClipboard struct {
	mu   sync.Mutex
	text string
}

func (f *fakeClipboard) read() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text, nil
}

func (f *fakeClipboard) write(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = text
	return nil
}

func useFakeClipboard(t *testing.T, initial string) *fakeClipboard {
	t.Helper()
	fc := &fakeClipboard{text: initial}
	origRead, origWrite := clipboardRead, clipboardWrite
	origSettle, origPaste := clipboardSettle, pasteSettle
	clipboardRead, clipboardWrite = fc.read, fc.write
	clipboardSettle, pasteSettle = 0, 0
	t.Cleanup(func() {
		clipboardRead, clipboardWrite = origRead, origWrite
		clipboardSettle, pasteSettle = origSettle, origPaste
	})
	return fc
}

func stubShortcut(t *testing.T, fn func() error) {
	t.Helper()
	orig := pasteShortcut
	pasteShortcut = fn
	t.Cleanup(func() { pasteShortcut = orig })
}

func TestPasteRestoresPreviousClipboard(t *testing.T) {
	fc := useFakeClipboard(t, "previous")
	var pastedText string
	stubShortcut(t, func() error {
		pastedText, _ = fc.read()
		return nil
	})
	inj := New(config.OutputConfig{Paste: true}, zerolog.Nop())

	if err := inj.Deliver(context.Background(), "dictated"); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if pastedText != "dictated" {
		t.Errorf("clipboard at paste time = %q, want dictated", pastedText)
	}
	if got, _ := fc.read(); got != "previous" {
		t.Errorf("clipboard = %q, want previous restored", got)
	}
}

func TestPasteKeepsTranscriptWhenCopyEnabled(t *testing.T) {
	fc := useFakeClipboard(t, "previous")
	stubShortcut(t, func() error { return nil })
	inj := New(config.OutputConfig{Paste: true, CopyToClipboard: true}, zerolog.Nop())

	if err := inj.Deliver(context.Background(), "dictated"); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if got, _ := fc.read(); got != "dictated" {
		t.Errorf("clipboard = %q, want transcript kept", got)
	}
}

func TestPasteLeavesNewerClipboardAlone(t *testing.T) {
	fc := useFakeClipboard(t, "previous")
	stubShortcut(t, func() error {
		// the user copies something while the paste lands
		return fc.write("user copy")
	})
	inj := New(config.OutputConfig{Paste: true}, zerolog.Nop())

	if err := inj.Paste(context.Background(), "dictated"); err != nil {
		t.Fatalf("Paste: %v", err)
	}
	if got, _ := fc.read(); got != "user copy" {
		t.Errorf("clipboard = %q, want the user's copy", got)
	}
}

func TestPasteShortcutFailureFallsBackToCopy(t *testing.T) {
	fc := useFakeClipboard(t, "previous")
	stubShortcut(t, func() error { return errors.New("accessibility denied") })
	inj := New(config.OutputConfig{Paste: true}, zerolog.Nop())

	if err := inj.Deliver(context.Background(), "dictated"); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if got, _ := fc.read(); got != "dictated" {
		t.Errorf("clipboard = %q, want transcript copied", got)
	}
}

func TestCopyErrors(t *testing.T) {
	stubClipboard(t, errors.New("no clipboard utility"))
	inj := New(config.OutputConfig{CopyToClipboard: true}, zerolog.Nop())

	if err := inj.Deliver(context.Background(), "hello"); err == nil {
		t.Fatal("expected clipboard error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := inj.Copy(ctx, "hello"); !errors.Is(err, context.Canceled) {
		t.Errorf("Copy on canceled ctx = %v, want context.Canceled", err)
	}
}
