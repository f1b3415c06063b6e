package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrConfigMissing is returned when the config document does not exist.
	ErrConfigMissing = errors.New("config missing")
	// ErrConfigMalformed is returned when the config document cannot be parsed.
	ErrConfigMalformed = errors.New("config malformed")
)

// Config holds configurable parameters. It lives in the same JSON document as the
// chatbots section managed by the targets package.
type Config struct {
	APIEndpoint    string `json:"API_ENDPOINT"`
	Token          string `json:"TOKEN"`
	Model          string `json:"MODEL"`
	Language       string `json:"LANGUAGE"`
	Prompt         string `json:"PROMPT"`
	TEXTPath       string `json:"TEXT_PATH"`
	ExtraConfig    string `json:"ExtraConfig"`
	Backend        string `json:"BACKEND"`
	Proxy          string `json:"PROXY"`
	RequestTimeout int    `json:"REQUEST_TIMEOUT"`
	EnableHTTP2    bool   `json:"ENABLE_HTTP2"`
	VerifySSL      bool   `json:"VERIFY_SSL"`

	Channels            int    `json:"CHANNELS"`
	SAMPLING_RATE       int    `json:"SAMPLING_RATE"`
	SAMPLING_RATE_DEPTH int    `json:"SAMPLING_RATE_DEPTH"`
	BIT_RATE            int    `json:"BIT_RATE"`
	CODECS              string `json:"CODECS"`
	CONTAINER           string `json:"CONTAINER"`

	StartKey  string `json:"START_KEY"`
	PauseKey  string `json:"PAUSE_KEY"`
	CancelKey string `json:"CANCEL_KEY"`

	CacheDir     string `json:"CACHE_DIR"`
	KeepCache    bool   `json:"KEEP_CACHE"`
	Notification bool   `json:"NOTIFICATION"`
	BeepSound    string `json:"BEEP_SOUND"`
	LevelMeter   bool   `json:"LEVEL_METER"`

	DispatchDelayMs int `json:"DISPATCH_DELAY_MS"`
	MaxTargets      int `json:"MAX_TARGETS"`
	ScreenCount     int `json:"SCREEN_COUNT"`

	RelayAddr string `json:"RELAY_ADDR"`
	RelayURL  string `json:"RELAY_URL"`

	FFMPEG_DEBUG   bool `json:"FFMPEG_DEBUG"`
	RECORD_DEBUG   bool `json:"RECORD_DEBUG"`
	HOTKEY_DEBUG   bool `json:"HOTKEY_DEBUG"`
	UPLOAD_DEBUG   bool `json:"UPLOAD_DEBUG"`
	DISPATCH_DEBUG bool `json:"DISPATCH_DEBUG"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		APIEndpoint:         "",
		Token:               "",
		Model:               "",
		Language:            "",
		Prompt:              "",
		TEXTPath:            "text",
		ExtraConfig:         "",
		Backend:             "http",
		Proxy:               "",
		RequestTimeout:      30,
		EnableHTTP2:         true,
		VerifySSL:           true,
		Channels:            1,
		SAMPLING_RATE:       16000,
		SAMPLING_RATE_DEPTH: 16,
		BIT_RATE:            128,
		CODECS:              "opus",
		CONTAINER:           "ogg",
		StartKey:            "alt+q",
		PauseKey:            "alt+s",
		CancelKey:           "esc",
		CacheDir:            "",
		KeepCache:           false,
		Notification:        false,
		BeepSound:           "",
		LevelMeter:          false,
		DispatchDelayMs:     1000,
		MaxTargets:          12,
		ScreenCount:         1,
		RelayAddr:           ":5000",
		RelayURL:            "http://127.0.0.1:5000",
		FFMPEG_DEBUG:        false,
		RECORD_DEBUG:        false,
		HOTKEY_DEBUG:        false,
		UPLOAD_DEBUG:        false,
		DISPATCH_DEBUG:      false,
	}
}

// Load reads config from the JSON document at path. Keys that are not config
// fields (such as the chatbots section) are ignored.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigMissing, path)
		}
		return cfg, err
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", ErrConfigMalformed, path, err)
	}
	return cfg, nil
}

// SaveDefault writes a default config JSON, with an empty chatbots section, to path.
func SaveDefault(path string) error {
	b, err := json.MarshalIndent(struct {
		Config
		Chatbots map[string]any `json:"chatbots"`
	}{DefaultConfig(), map[string]any{}}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// ApplyEnv fills the token from the environment when the document leaves it empty.
func ApplyEnv(cfg *Config) {
	if cfg.Token != "" {
		return
	}
	for _, k := range []string{"STT_TOKEN", "OPENAI_API_KEY"} {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			cfg.Token = v
			return
		}
	}
}

// Validate verifies config fields and returns an error if any value is invalid.
func Validate(cfg *Config) error {
	if cfg.Channels < 1 || cfg.Channels > 8 {
		return fmt.Errorf("invalid Channels: %d (allowed 1..8)", cfg.Channels)
	}
	if cfg.SAMPLING_RATE <= 0 {
		return fmt.Errorf("invalid SAMPLING_RATE: %d (must be > 0)", cfg.SAMPLING_RATE)
	}
	switch cfg.SAMPLING_RATE_DEPTH {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("invalid SAMPLING_RATE_DEPTH: %d (allowed: 8,16,24,32)", cfg.SAMPLING_RATE_DEPTH)
	}
	if cfg.BIT_RATE <= 0 {
		return fmt.Errorf("invalid BIT_RATE: %d (must be > 0)", cfg.BIT_RATE)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("invalid REQUEST_TIMEOUT: %d (must be > 0)", cfg.RequestTimeout)
	}
	switch strings.ToLower(cfg.Backend) {
	case "http", "openai":
	default:
		return fmt.Errorf("invalid BACKEND: %s (allowed: http, openai)", cfg.Backend)
	}
	if cfg.DispatchDelayMs < 0 {
		return fmt.Errorf("invalid DISPATCH_DELAY_MS: %d (must be >= 0)", cfg.DispatchDelayMs)
	}
	if cfg.MaxTargets < 0 {
		return fmt.Errorf("invalid MAX_TARGETS: %d (must be >= 0)", cfg.MaxTargets)
	}
	if cfg.ScreenCount < 1 {
		return fmt.Errorf("invalid SCREEN_COUNT: %d (must be >= 1)", cfg.ScreenCount)
	}
	if ContainerExt(cfg.CONTAINER) == "" {
		return fmt.Errorf("invalid CONTAINER: %s", cfg.CONTAINER)
	}
	return nil
}

// InitCacheDir validates/creates the configured cache directory.
// It mutates cfg.CacheDir to an absolute path or clears it on failure.
func InitCacheDir(cfg *Config) {
	if cfg.CacheDir == "" {
		return
	}
	abs, err := filepath.Abs(cfg.CacheDir)
	if err != nil {
		slog.Warn("cache-dir path invalid, falling back to cwd", "dir", cfg.CacheDir, "err", err)
		cfg.CacheDir = ""
		return
	}
	info, err := os.Stat(abs)
	switch {
	case err == nil && !info.IsDir():
		slog.Warn("cache-dir is not a directory, falling back to cwd", "dir", abs)
		cfg.CacheDir = ""
	case err == nil:
		cfg.CacheDir = abs
		slog.Debug("using existing cache-dir", "dir", abs)
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(abs, 0755); err != nil {
			slog.Warn("cannot create cache-dir, falling back to cwd", "dir", abs, "err", err)
			cfg.CacheDir = ""
			return
		}
		cfg.CacheDir = abs
		slog.Info("created cache-dir", "dir", abs)
	default:
		slog.Warn("cannot access cache-dir, falling back to cwd", "dir", abs, "err", err)
		cfg.CacheDir = ""
	}
}

// TempDir returns the directory to use for temporary files.
func TempDir(cfg *Config) string {
	if cfg.CacheDir != "" {
		return cfg.CacheDir
	}
	cwd, _ := os.Getwd()
	return cwd
}

// ContainerExt maps container names to file extensions (lowercase).
// Unknown containers map to "".
func ContainerExt(container string) string {
	c := strings.ToLower(container)
	switch c {
	case "":
		return "ogg"
	case "wav", "ogg", "oga", "mp3", "flac", "aac", "m4a", "mp4", "opus", "webm":
		return c
	default:
		return ""
	}
}
