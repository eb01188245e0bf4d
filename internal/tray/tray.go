package tray

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/getlantern/systray"
	"github.com/rs/zerolog"

	"github.com/petems/whisper-desk/internal/app"
	"github.com/petems/whisper-desk/internal/audio"
	"github.com/petems/whisper-desk/internal/config"
	"github.com/petems/whisper-desk/internal/logging"
	"github.com/petems/whisper-desk/internal/whisper"
	"github.com/petems/whisper-desk/internal/worker"
)

// transcripts longer than this are shortened in the menu
const maxMenuText = 60

type UI struct {
	app     *app.App
	version string
	commit  string
	log     zerolog.Logger

	ready chan struct{}

	// Menu items
	mStatus     *systray.MenuItem
	mTranscript *systray.MenuItem
	mModels     *systray.MenuItem
	mLoadModel  *systray.MenuItem
	mDevices    *systray.MenuItem
	mRefresh    *systray.MenuItem
	mRecordTx   *systray.MenuItem
	mRecordOnly *systray.MenuItem
	mStartStop  *systray.MenuItem
	mTranscribe *systray.MenuItem
	mPickFile   *systray.MenuItem
	mCopy       *systray.MenuItem
	mMode       *systray.MenuItem

	mu          sync.Mutex
	modelItems  map[string]*systray.MenuItem
	deviceItems map[int]*systray.MenuItem
	// closed when the device list is rebuilt
	deviceQuit chan struct{}
}

// Status update methods for the app to call
func (u *UI) SetIdle(msg string) {
	u.updateStatus("idle", msg)
}

func (u *UI) SetRecording(msg string) {
	u.updateStatus("recording", msg)
}

func (u *UI) SetProcessing(msg string) {
	u.updateStatus("processing", msg)
}

func (u *UI) SetError(msg string) {
	u.updateStatus("error", msg)
}

// ShowTranscript puts the transcript in the menu; the full text is in the tooltip.
func (u *UI) ShowTranscript(text string) {
	if !u.isReady() {
		return
	}
	u.mTranscript.SetTitle(truncate(text, maxMenuText))
	u.mTranscript.SetTooltip(text)
	u.mCopy.Enable()
}

func (u *UI) ShowError(title string, err error) {
	u.log.Error().Err(err).Str("title", title).Msg("Error shown to user")
	if !u.isReady() {
		return
	}
	u.mStatus.SetTitle(fmt.Sprintf("⚠️ %s", title))
	u.mStatus.SetTooltip(err.Error())
}

func New(application *app.App, version, commit string, log zerolog.Logger) *UI {
	return &UI{
		app:         application,
		version:     version,
		commit:      commit,
		log:         log.With().Str("component", "tray").Logger(),
		ready:       make(chan struct{}),
		modelItems:  make(map[string]*systray.MenuItem),
		deviceItems: make(map[int]*systray.MenuItem),
	}
}

// Run blocks until Quit; systray must own the main thread.
func (u *UI) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(u.onReady, u.onExit)
	return nil
}

func (u *UI) isReady() bool {
	select {
	case <-u.ready:
		return true
	default:
		return false
	}
}

func (u *UI) onReady() {
	systray.SetTooltip("Whisper transcription")

	u.mStatus = systray.AddMenuItem("Ready", "Current status")
	u.mStatus.Disable()
	u.mTranscript = systray.AddMenuItem("No transcript yet", "Last transcript")
	u.mTranscript.Disable()
	systray.AddSeparator()

	u.mModels = systray.AddMenuItem("Model", "Select Whisper model")
	u.buildModelMenu()
	u.mLoadModel = systray.AddMenuItem("Load Model", "Download if needed and load the selected model")

	u.mDevices = systray.AddMenuItem("Microphone", "Select audio device")
	u.buildDeviceMenu()
	u.mRefresh = u.mDevices.AddSubMenuItem("Refresh Devices", "Query the audio system again")
	systray.AddSeparator()

	seconds := u.app.RecordSeconds()
	u.mRecordTx = systray.AddMenuItem(fmt.Sprintf("Record %ds & Transcribe", seconds), "Record a fixed clip and transcribe it")
	u.mRecordOnly = systray.AddMenuItem(fmt.Sprintf("Record %ds", seconds), "Record a fixed clip without transcribing")
	u.mStartStop = systray.AddMenuItem("Start Recording", "Record until stopped")
	u.mTranscribe = systray.AddMenuItem("Transcribe Last Recording", "Transcribe the selected audio file")
	u.mPickFile = systray.AddMenuItem("Transcribe File…", "Choose an existing .wav file and transcribe it")
	u.mCopy = systray.AddMenuItem("Copy Last Transcript", "Copy the transcript to the clipboard")
	u.mCopy.Disable()
	systray.AddSeparator()

	u.mMode = systray.AddMenuItem(modeTitle(u.app.Mode()), "Toggle between modes")
	systray.AddSeparator()

	mLogs := systray.AddMenuItem("Open Logs", "View application logs")
	mAbout := systray.AddMenuItem("About", "About whisper-desk")
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	close(u.ready)
	u.updateStatus("idle", "Ready")

	// Event loop
	go u.handleEvents(mLogs, mAbout, mQuit)
}

func (u *UI) handleEvents(mLogs, mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-u.mLoadModel.ClickedCh:
			u.run(u.app.LoadModel())
		case <-u.mRefresh.ClickedCh:
			u.buildDeviceMenu()
		case <-u.mRecordTx.ClickedCh:
			u.run(u.app.RecordAndTranscribe())
		case <-u.mRecordOnly.ClickedCh:
			u.run(u.app.RecordOnly())
		case <-u.mStartStop.ClickedCh:
			u.toggleRecording()
		case <-u.mTranscribe.ClickedCh:
			u.run(u.app.Transcribe())
		case <-u.mPickFile.ClickedCh:
			go u.transcribePickedFile()
		case <-u.mCopy.ClickedCh:
			if err := u.app.CopyLastTranscript(context.Background()); err != nil {
				u.ShowError("Clipboard unavailable", err)
			}
		case <-u.mMode.ClickedCh:
			u.toggleMode()
		case <-mLogs.ClickedCh:
			u.openLogs()
		case <-mAbout.ClickedCh:
			u.showAbout()
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

// run logs task failures; the app has already shown them
func (u *UI) run(task *worker.Task, err error) {
	if err != nil || task == nil {
		return
	}
	go func() {
		if err := task.Wait(); err != nil {
			u.log.Debug().Err(err).Str("task", task.Kind).Msg("Task ended with error")
		}
	}()
}

func (u *UI) toggleRecording() {
	if u.app.IsRecording() {
		if _, err := u.app.StopRecording(); err != nil && !errors.Is(err, audio.ErrEmptyRecording) {
			u.log.Error().Err(err).Msg("Failed to stop recording")
		}
		u.mStartStop.SetTitle("Start Recording")
		return
	}

	if err := u.app.StartRecording(); err != nil {
		u.log.Error().Err(err).Msg("Failed to start recording")
		return
	}
	u.mStartStop.SetTitle("Stop Recording")
}

// transcribePickedFile asks for a wave file and transcribes it.
func (u *UI) transcribePickedFile() {
	path, err := pickFile(runtime.GOOS)
	if err != nil {
		u.ShowError("Could not open file dialog", err)
		return
	}
	if path == "" {
		return
	}
	if err := u.app.SelectFile(path); err != nil {
		u.ShowError("Invalid audio file", err)
		return
	}
	u.run(u.app.Transcribe())
}

func (u *UI) buildModelMenu() {
	selected := u.app.SelectedModel()

	for _, model := range whisper.Models() {
		item := u.mModels.AddSubMenuItem(model, "")
		if model == selected {
			item.Check()
		}
		u.mu.Lock()
		u.modelItems[model] = item
		u.mu.Unlock()

		go func(m string, menuItem *systray.MenuItem) {
			for range menuItem.ClickedCh {
				if err := u.app.SelectModel(m); err != nil {
					u.ShowError("Invalid model", err)
					continue
				}
				u.checkOnly(menuItem, u.modelMenuItems())
				u.SetIdle(fmt.Sprintf("Model %s selected. Click Load Model to use it.", m))
			}
		}(model, item)
	}
}

func (u *UI) modelMenuItems() []*systray.MenuItem {
	u.mu.Lock()
	defer u.mu.Unlock()
	items := make([]*systray.MenuItem, 0, len(u.modelItems))
	for _, item := range u.modelItems {
		items = append(items, item)
	}
	return items
}

// buildDeviceMenu lists the current inputs. Earlier items are hidden, as
// systray cannot remove them.
func (u *UI) buildDeviceMenu() {
	devices := u.app.ListDevices()
	selected := u.app.SelectedDevice()

	u.mu.Lock()
	for idx, item := range u.deviceItems {
		item.Hide()
		delete(u.deviceItems, idx)
	}
	if u.deviceQuit != nil {
		close(u.deviceQuit)
	}
	quit := make(chan struct{})
	u.deviceQuit = quit
	u.mu.Unlock()

	defaultItem := u.mDevices.AddSubMenuItem("System Default", "Use the platform default input")
	u.addDeviceItem(-1, "System Default", defaultItem, selected < 0, quit)

	for _, dev := range devices {
		label := dev.String()
		if dev.Default {
			label += " (default)"
		}
		item := u.mDevices.AddSubMenuItem(label, "")
		u.addDeviceItem(dev.Index, label, item, dev.Index == selected, quit)
	}
}

func (u *UI) addDeviceItem(index int, label string, item *systray.MenuItem, checked bool, quit <-chan struct{}) {
	if checked {
		item.Check()
	}

	u.mu.Lock()
	u.deviceItems[index] = item
	u.mu.Unlock()

	go watchClicks(item.ClickedCh, quit, func() {
		if err := u.app.SelectDevice(index); err != nil {
			u.ShowError("Device unavailable", err)
			return
		}
		u.checkOnly(item, u.deviceMenuItems())
		u.log.Info().Str("device", label).Msg("Changed audio device")
	})
}

// watchClicks calls onClick for every click until quit is closed.
func watchClicks(clicked <-chan struct{}, quit <-chan struct{}, onClick func()) {
	for {
		select {
		case <-quit:
			return
		case <-clicked:
			onClick()
		}
	}
}

func (u *UI) deviceMenuItems() []*systray.MenuItem {
	u.mu.Lock()
	defer u.mu.Unlock()
	items := make([]*systray.MenuItem, 0, len(u.deviceItems))
	for _, item := range u.deviceItems {
		items = append(items, item)
	}
	return items
}

func (u *UI) checkOnly(selected *systray.MenuItem, items []*systray.MenuItem) {
	for _, itm := range items {
		if itm != selected {
			itm.Uncheck()
		}
	}
	selected.Check()
}

func (u *UI) toggleMode() {
	next := config.ModeToggle
	if u.app.Mode() == config.ModeToggle {
		next = config.ModePushToTalk
	}
	if err := u.app.SetMode(next); err != nil {
		u.log.Error().Err(err).Msg("Failed to change mode")
		return
	}
	u.mMode.SetTitle(modeTitle(next))
}

func (u *UI) openLogs() {
	path := logging.LogPath()

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		u.ShowError("Could not open logs", err)
		return
	}
	go cmd.Wait()
}

func (u *UI) showAbout() {
	stats := u.app.Stats()
	u.log.Info().
		Str("version", u.version).
		Str("commit", u.commit).
		Int64("tasks_completed", stats.Completed).
		Int64("tasks_failed", stats.Failed).
		Msg("whisper-desk")
	u.SetIdle(aboutText(u.version, u.commit, stats))
}

func (u *UI) onExit() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := u.app.Shutdown(ctx); err != nil {
		u.log.Warn().Err(err).Msg("Shutdown did not finish cleanly")
	}
}

// updateStatus sets the tray title with microphone emoji and status indicator
func (u *UI) updateStatus(status, msg string) {
	if !u.isReady() {
		return
	}
	emoji := emojiForStatus(status)
	systray.SetTitle(fmt.Sprintf("🎤 %s", emoji))
	if msg == "" {
		return
	}
	u.mStatus.SetTitle(truncate(msg, maxMenuText))
	u.mStatus.SetTooltip(msg)
	if status != "recording" && !u.app.IsRecording() {
		u.mStartStop.SetTitle("Start Recording")
	}
}

// emojiForStatus returns the appropriate status emoji
func emojiForStatus(status string) string {
	switch status {
	case "recording":
		return "🔴" // Red - recording
	case "processing":
		return "🟡" // Yellow - processing transcription
	case "idle":
		return "🟢" // Green - ready/idle
	case "error":
		return "⚪️" // White - error
	default:
		return "🟢" // Green - default to ready
	}
}

func aboutText(version, commit string, stats worker.Stats) string {
	return fmt.Sprintf("whisper-desk %s (%s) · %d done, %d failed", version, commit, stats.Completed, stats.Failed)
}

func modeTitle(mode string) string {
	if mode == config.ModePushToTalk {
		return "Mode: Push-to-Talk"
	}
	return "Mode: Toggle"
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
