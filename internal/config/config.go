package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	ModePushToTalk = "PushToTalk"
	ModeToggle     = "Toggle"

	BackendLocal  = "local"
	BackendRemote = "remote"

	// EnvPrefix namespaces every environment override.
	EnvPrefix = "WHISPER_DESK_"
)

type Config struct {
	Hotkey       string        `json:"hotkey" env:"HOTKEY"`
	HotkeyDarwin string        `json:"hotkey_darwin" env:"HOTKEY_DARWIN"`
	Mode         string        `json:"mode" env:"MODE"` // "PushToTalk" or "Toggle"
	LogLevel     string        `json:"log_level" env:"LOG_LEVEL"`
	Audio        AudioConfig   `json:"audio" envPrefix:"AUDIO_"`
	Whisper      WhisperConfig `json:"whisper" envPrefix:"WHISPER_"`
	Output       OutputConfig  `json:"output" envPrefix:"OUTPUT_"`

	path string
}

type AudioConfig struct {
	DeviceIndex    int    `json:"device_index" env:"DEVICE_INDEX"` // -1 selects the platform default
	SampleRate     int    `json:"sample_rate" env:"SAMPLE_RATE"`
	Channels       int    `json:"channels" env:"CHANNELS"`
	RecordSeconds  int    `json:"record_seconds" env:"RECORD_SECONDS"`
	OutputPath     string `json:"output_path" env:"OUTPUT_PATH"`
	KeepRecordings bool   `json:"keep_recordings" env:"KEEP_RECORDINGS"`
	RecordingsDir  string `json:"recordings_dir" env:"RECORDINGS_DIR"`
}

type WhisperConfig struct {
	Backend     string  `json:"backend" env:"BACKEND"` // "local" or "remote"
	Model       string  `json:"model" env:"MODEL"`     // "tiny", "base.en", etc.
	Language    string  `json:"language" env:"LANGUAGE"`
	Threads     int     `json:"threads" env:"THREADS"`
	Temperature float32 `json:"temperature" env:"TEMPERATURE"`
	ModelsDir   string  `json:"models_dir" env:"MODELS_DIR"`
	RemoteURL   string  `json:"remote_url" env:"REMOTE_URL"`
	APIKey      string  `json:"-" env:"API_KEY"`
}

type OutputConfig struct {
	CopyToClipboard bool `json:"copy_to_clipboard" env:"COPY_TO_CLIPBOARD"`
	Paste           bool `json:"paste" env:"PASTE"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Hotkey:       "Alt+Space",
		HotkeyDarwin: "Ctrl+Space",
		Mode:         ModeToggle,
		LogLevel:     "info",
		Audio: AudioConfig{
			DeviceIndex:   -1,
			SampleRate:    16000, // whisper expects 16kHz
			Channels:      1,
			RecordSeconds: 5,
			OutputPath:    "recorded_audio.wav",
			RecordingsDir: filepath.Join(DataPath(), "recordings"),
		},
		Whisper: WhisperConfig{
			Backend:  BackendLocal,
			Model:    "tiny",
			Language: "auto",
			Threads:  0, // Auto-detect
		},
		Output: OutputConfig{
			CopyToClipboard: true,
		},
	}
}

// Load reads the config from the default location.
func Load() (*Config, error) {
	return LoadFrom(configPath())
}

// LoadFrom reads the config at path, then applies .env and environment
// overrides. A missing file yields the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	cfg.path = path

	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	// .env is optional; real environment variables win over it
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the rest of the app cannot work with.
func (c *Config) Validate() error {
	if c.Mode != ModePushToTalk && c.Mode != ModeToggle {
		return fmt.Errorf("invalid mode %q", c.Mode)
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", c.Audio.SampleRate)
	}
	if c.Audio.Channels <= 0 {
		return fmt.Errorf("invalid channel count %d", c.Audio.Channels)
	}
	if c.Audio.RecordSeconds <= 0 {
		return fmt.Errorf("invalid record duration %ds", c.Audio.RecordSeconds)
	}
	if c.Audio.OutputPath == "" {
		return fmt.Errorf("output path is empty")
	}
	switch c.Whisper.Backend {
	case BackendLocal:
	case BackendRemote:
		if c.Whisper.RemoteURL == "" {
			return fmt.Errorf("remote backend requires whisper.remote_url")
		}
	default:
		return fmt.Errorf("invalid whisper backend %q", c.Whisper.Backend)
	}
	return nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		path = configPath()
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string {
	if c.path == "" {
		return configPath()
	}
	return c.path
}

// PlatformHotkey returns the appropriate hotkey for the current platform
func (c *Config) PlatformHotkey() string {
	if runtime.GOOS == "darwin" && c.HotkeyDarwin != "" {
		return c.HotkeyDarwin
	}
	return c.Hotkey
}

// ModelsDir returns the configured model cache, falling back to ModelsPath.
func (c *Config) ModelsDir() string {
	if c.Whisper.ModelsDir != "" {
		return c.Whisper.ModelsDir
	}
	return ModelsPath()
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "whisper-desk", "config.json")
}

// DataPath returns the platform-specific data directory
func DataPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("LOCALAPPDATA")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.local/share"
		}
	}

	return filepath.Join(base, "whisper-desk")
}

// ModelsPath returns the platform-specific models directory path
func ModelsPath() string {
	return filepath.Join(DataPath(), "models")
}
