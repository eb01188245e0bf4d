package tray

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/petems/whisper-desk/internal/config"
	"github.com/petems/whisper-desk/internal/worker"
)

func TestEmojiForStatus(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{"recording", "🔴"},
		{"processing", "🟡"},
		{"idle", "🟢"},
		{"error", "⚪️"},
		{"unknown", "🟢"},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := emojiForStatus(tt.status); got != tt.want {
				t.Errorf("emojiForStatus(%q) = %q, want %q", tt.status, got, tt.want)
			}
		})
	}
}

func TestModeTitle(t *testing.T) {
	tests := []struct {
		name string
		mode string
		want string
	}{
		{
			name: "PushToTalk mode",
			mode: config.ModePushToTalk,
			want: "Mode: Push-to-Talk",
		},
		{
			name: "Toggle mode",
			mode: config.ModeToggle,
			want: "Mode: Toggle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := modeTitle(tt.mode); got != tt.want {
				t.Errorf("modeTitle(%q) = %q, want %q", tt.mode, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate kept %q", got)
	}

	got := truncate("the quick brown fox jumps", 10)
	if got != "the quick…" {
		t.Errorf("truncate = %q", got)
	}

	// multi-byte text is cut on rune boundaries
	got = truncate("größenwahnsinnig", 5)
	if !utf8.ValidString(got) || utf8.RuneCountInString(got) != 5 {
		t.Errorf("truncate = %q", got)
	}
}

func TestPickerCommand(t *testing.T) {
	tests := []struct {
		goos string
		name string
		want string // fragment expected in the arguments
	}{
		{"darwin", "osascript", "choose file"},
		{"linux", "zenity", "--file-selection"},
		{"windows", "powershell", "OpenFileDialog"},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			name, args, err := pickerCommand(tt.goos)
			if err != nil {
				t.Fatalf("pickerCommand(%q): %v", tt.goos, err)
			}
			if name != tt.name {
				t.Errorf("command = %q, want %q", name, tt.name)
			}
			if joined := strings.Join(args, " "); !strings.Contains(joined, tt.want) {
				t.Errorf("args %q missing %q", joined, tt.want)
			}
			if joined := strings.ToLower(strings.Join(args, " ")); !strings.Contains(joined, "wav") {
				t.Errorf("args %q do not filter wave files", joined)
			}
		})
	}

	if _, _, err := pickerCommand("plan9"); !errors.Is(err, errNoPicker) {
		t.Errorf("pickerCommand(plan9) = %v, want errNoPicker", err)
	}
}

func TestAboutText(t *testing.T) {
	got := aboutText("v1.2.0", "abc123", worker.Stats{Completed: 4, Failed: 1})
	want := "whisper-desk v1.2.0 (abc123) · 4 done, 1 failed"
	if got != want {
		t.Errorf("aboutText = %q, want %q", got, want)
	}
}

func TestWatchClicksStopsOnQuit(t *testing.T) {
	clicked := make(chan struct{})
	quit := make(chan struct{})
	clicks := make(chan struct{}, 1)
	done := make(chan struct{})

	go func() {
		watchClicks(clicked, quit, func() { clicks <- struct{}{} })
		close(done)
	}()

	clicked <- struct{}{}
	select {
	case <-clicks:
	case <-time.After(time.Second):
		t.Fatal("click was not handled")
	}

	close(quit)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher still running after quit")
	}
}
